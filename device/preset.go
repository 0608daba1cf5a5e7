package device

import (
	"sort"
	"strings"
	"sync"
)

// ColorPreset is a named color that light payloads may refer to.
type ColorPreset struct {
	Name        string
	Description string
	Color       Color
}

// PresetManager holds named color presets.
type PresetManager struct {
	mu      sync.RWMutex
	presets map[string]ColorPreset
}

// NewPresetManager returns a manager with no presets.
func NewPresetManager() *PresetManager {
	return &PresetManager{presets: make(map[string]ColorPreset)}
}

// NewDefaultPresets returns a manager loaded with the built-in colors.
func NewDefaultPresets() *PresetManager {
	pm := NewPresetManager()
	for _, p := range defaultPresets {
		pm.RegisterPreset(p)
	}
	return pm
}

var defaultPresets = []ColorPreset{
	{Name: "off", Description: "All LEDs dark", Color: Color{0, 0, 0}},
	{Name: "white", Description: "Full white", Color: Color{255, 255, 255}},
	{Name: "warm", Description: "Warm reading light", Color: Color{255, 180, 107}},
	{Name: "red", Description: "Red", Color: Color{255, 0, 0}},
	{Name: "green", Description: "Green", Color: Color{0, 255, 0}},
	{Name: "blue", Description: "Blue", Color: Color{0, 0, 255}},
	{Name: "orange", Description: "Orange", Color: Color{255, 120, 0}},
	{Name: "purple", Description: "Purple", Color: Color{160, 32, 240}},
	{Name: "cyan", Description: "Cyan", Color: Color{0, 255, 255}},
}

// RegisterPreset adds or replaces a preset. Names are case-insensitive.
func (pm *PresetManager) RegisterPreset(p ColorPreset) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presets[strings.ToLower(p.Name)] = p
}

// GetPreset looks name up case-insensitively.
func (pm *PresetManager) GetPreset(name string) (ColorPreset, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.presets[strings.ToLower(name)]
	return p, ok
}

// GetSupportedPresets returns the sorted preset names.
func (pm *PresetManager) GetSupportedPresets() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	names := make([]string, 0, len(pm.presets))
	for _, p := range pm.presets {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func (pm *PresetManager) GetPresetDescription(name string) string {
	if p, ok := pm.GetPreset(name); ok {
		return p.Description
	}
	return ""
}
