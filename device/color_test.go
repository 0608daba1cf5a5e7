package device

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	presets := NewDefaultPresets()

	tests := []struct {
		name    string
		input   any
		want    Color
		wantErr bool
	}{
		{name: "packed int", input: 0xFF8000, want: Color{255, 128, 0}},
		{name: "packed float from json", input: float64(0x0000FF), want: Color{0, 0, 255}},
		{name: "packed json number", input: json.Number("65280"), want: Color{0, 255, 0}},
		{name: "triple", input: []any{float64(1), float64(2), float64(3)}, want: Color{1, 2, 3}},
		{name: "int triple", input: []int{10, 20, 30}, want: Color{10, 20, 30}},
		{name: "object", input: map[string]any{"r": float64(9), "g": float64(8), "b": float64(7)}, want: Color{9, 8, 7}},
		{name: "hex", input: "#0a0B0c", want: Color{10, 11, 12}},
		{name: "preset", input: "Warm", want: Color{255, 180, 107}},
		{name: "color value", input: Color{1, 1, 1}, want: Color{1, 1, 1}},
		{name: "negative packed", input: -1, wantErr: true},
		{name: "packed too large", input: 0x1000000, wantErr: true},
		{name: "fractional", input: 1.5, wantErr: true},
		{name: "short triple", input: []any{float64(1), float64(2)}, wantErr: true},
		{name: "component out of range", input: []int{0, 256, 0}, wantErr: true},
		{name: "object missing b", input: map[string]any{"r": float64(1), "g": float64(1)}, wantErr: true},
		{name: "short hex", input: "#fff", wantErr: true},
		{name: "bad hex", input: "#gggggg", wantErr: true},
		{name: "unknown name", input: "mauve", wantErr: true},
		{name: "unsupported type", input: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColor(tt.input, presets)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColorEncoding(t *testing.T) {
	c := Color{R: 0x12, G: 0x34, B: 0x56}
	assert.Equal(t, uint32(0x123456), c.Packed())
	assert.Equal(t, "#123456", c.Hex())

	st := LedState([]Color{c, {255, 0, 0}})
	assert.Equal(t, 18.0, st["led0.r"])
	assert.Equal(t, 255.0, st["led1.r"])
	assert.Len(t, st, 6)

	// blended values are rounded and clamped
	st["led0.g"] = 51.6
	st["led1.b"] = -3
	st["led0.b"] = 400
	colors := LedColors(st, 3)
	assert.Equal(t, Color{0x12, 52, 255}, colors[0])
	assert.Equal(t, Color{255, 0, 0}, colors[1])
	assert.Equal(t, Color{}, colors[2])
}

func TestPresetManager(t *testing.T) {
	pm := NewDefaultPresets()
	assert.Contains(t, pm.GetSupportedPresets(), "warm")
	assert.Equal(t, "Warm reading light", pm.GetPresetDescription("WARM"))
	assert.Empty(t, pm.GetPresetDescription("nope"))

	pm.RegisterPreset(ColorPreset{Name: "Sunset", Description: "Evening", Color: Color{250, 94, 83}})
	p, ok := pm.GetPreset("sunset")
	require.True(t, ok)
	assert.Equal(t, Color{250, 94, 83}, p.Color)
}
