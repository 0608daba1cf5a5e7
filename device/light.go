package device

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"lamp/define"
	"lamp/recording"
)

const (
	EventSolid = "solid"
	EventPaint = "paint"
)

// LedChannel names one color component of one LED, e.g. "led3.g".
func LedChannel(index int, component string) string {
	return fmt.Sprintf("led%d.%s", index, component)
}

// LedState encodes colors as LED channels.
func LedState(colors []Color) State {
	st := make(State, len(colors)*3)
	for i, c := range colors {
		st[LedChannel(i, "r")] = float64(c.R)
		st[LedChannel(i, "g")] = float64(c.G)
		st[LedChannel(i, "b")] = float64(c.B)
	}
	return st
}

// LedColors decodes count LEDs from state. Missing channels read as 0 and
// values are clamped to 0..255.
func LedColors(state State, count int) []Color {
	out := make([]Color, count)
	for i := range out {
		out[i] = Color{
			R: clampByte(state[LedChannel(i, "r")]),
			G: clampByte(state[LedChannel(i, "g")]),
			B: clampByte(state[LedChannel(i, "b")]),
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

type lightHandler struct {
	ledCount int
	presets  *PresetManager
}

// NewLightService builds a service for an LED strip of ledCount pixels.
// It understands "solid" (one color for every LED) and "paint" (a color
// per LED, starting at LED 0).
func NewLightService(id string, driver Driver, ledCount int, presets *PresetManager, opts ...Option) *Service {
	if presets == nil {
		presets = NewDefaultPresets()
	}
	return NewService(id, driver, &lightHandler{ledCount: ledCount, presets: presets}, opts...)
}

func (h *lightHandler) Kind() define.ActuatorKind { return define.KIND_LIGHT }

func (h *lightHandler) Events() []string { return []string{EventSolid, EventPaint} }

func (h *lightHandler) Resolve(event string, payload any) (Request, error) {
	var (
		frame map[string]float64
		err   error
	)
	switch event {
	case EventSolid:
		frame, err = h.solid(payload)
	case EventPaint:
		frame, err = h.paint(payload)
	default:
		return Request{}, fmt.Errorf("unsupported light event %q", event)
	}
	if err != nil {
		return Request{}, err
	}

	seq, err := recording.NewSequence(event, []recording.Frame{{Timestamp: 0, State: frame}})
	if err != nil {
		return Request{}, err
	}
	return Request{Name: event, Sequence: seq}, nil
}

func (h *lightHandler) solid(payload any) (map[string]float64, error) {
	c, err := ParseColor(payload, h.presets)
	if err != nil {
		return nil, fmt.Errorf("solid: %w", err)
	}
	colors := make([]Color, h.ledCount)
	for i := range colors {
		colors[i] = c
	}
	return LedState(colors), nil
}

func (h *lightHandler) paint(payload any) (map[string]float64, error) {
	items, err := colorList(payload)
	if err != nil {
		return nil, fmt.Errorf("paint: %w", err)
	}

	frame := make(map[string]float64)
	for i, item := range items {
		if i >= h.ledCount {
			break
		}
		c, err := ParseColor(item, h.presets)
		if err != nil {
			logger.With(zap.Int("led", i), zap.Error(err)).Warn("Skipping invalid paint color")
			continue
		}
		frame[LedChannel(i, "r")] = float64(c.R)
		frame[LedChannel(i, "g")] = float64(c.G)
		frame[LedChannel(i, "b")] = float64(c.B)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("paint: no valid colors")
	}
	return frame, nil
}

func colorList(payload any) ([]any, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case []Color:
		out := make([]any, len(v))
		for i, c := range v {
			out[i] = c
		}
		return out, nil
	case []int:
		out := make([]any, len(v))
		for i, c := range v {
			out[i] = c
		}
		return out, nil
	case []string:
		out := make([]any, len(v))
		for i, c := range v {
			out[i] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of colors, got %T", payload)
	}
}

// SafeState turns every LED off.
func (h *lightHandler) SafeState(State) State {
	return LedState(make([]Color, h.ledCount))
}
