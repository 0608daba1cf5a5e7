package device

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// Packed returns the color as 0xRRGGBB.
func (c Color) Packed() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func colorFromPacked(v int64) (Color, error) {
	if v < 0 || v > 0xFFFFFF {
		return Color{}, fmt.Errorf("packed color %d out of range", v)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func channelValue(v any) (uint8, error) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint8:
		return n, nil
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("component %v (%T) is not a number", v, v)
	}
	if f < 0 || f > 255 || f != math.Trunc(f) {
		return 0, fmt.Errorf("component %v out of range 0..255", v)
	}
	return uint8(f), nil
}

// ParseColor accepts a packed 0xRRGGBB integer, an [r, g, b] triple, an
// {"r","g","b"} object, a "#rrggbb" string or a preset name.
func ParseColor(v any, presets *PresetManager) (Color, error) {
	switch c := v.(type) {
	case Color:
		return c, nil
	case int:
		return colorFromPacked(int64(c))
	case int64:
		return colorFromPacked(c)
	case uint32:
		return colorFromPacked(int64(c))
	case float64:
		if c != math.Trunc(c) {
			return Color{}, fmt.Errorf("packed color %v is not an integer", c)
		}
		return colorFromPacked(int64(c))
	case json.Number:
		n, err := c.Int64()
		if err != nil {
			return Color{}, fmt.Errorf("packed color %q: %w", c, err)
		}
		return colorFromPacked(n)
	case []int:
		if len(c) != 3 {
			return Color{}, fmt.Errorf("color triple needs 3 components, got %d", len(c))
		}
		return parseTriple(c[0], c[1], c[2])
	case []any:
		if len(c) != 3 {
			return Color{}, fmt.Errorf("color triple needs 3 components, got %d", len(c))
		}
		return parseTriple(c[0], c[1], c[2])
	case map[string]any:
		r, okR := c["r"]
		g, okG := c["g"]
		b, okB := c["b"]
		if !okR || !okG || !okB {
			return Color{}, fmt.Errorf("color object needs r, g and b")
		}
		return parseTriple(r, g, b)
	case string:
		return parseColorString(c, presets)
	default:
		return Color{}, fmt.Errorf("unsupported color value %v (%T)", v, v)
	}
}

func parseTriple(r, g, b any) (Color, error) {
	var out [3]uint8
	for i, v := range []any{r, g, b} {
		n, err := channelValue(v)
		if err != nil {
			return Color{}, err
		}
		out[i] = n
	}
	return Color{R: out[0], G: out[1], B: out[2]}, nil
}

func parseColorString(s string, presets *PresetManager) (Color, error) {
	s = strings.TrimSpace(s)
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if len(hex) != 6 {
			return Color{}, fmt.Errorf("hex color %q must be #rrggbb", s)
		}
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return Color{}, fmt.Errorf("hex color %q: %w", s, err)
		}
		return colorFromPacked(int64(n))
	}
	if presets != nil {
		if p, ok := presets.GetPreset(s); ok {
			return p.Color, nil
		}
	}
	return Color{}, fmt.Errorf("unknown color %q", s)
}
