package rgba

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// QuantizeMode selects how out-of-range channels are mapped to bytes.
type QuantizeMode int

const (
	// QuantizeClamp clamps the channel to [0, 1] before scaling. NaN maps to 0.
	QuantizeClamp QuantizeMode = iota
	// QuantizeWrap scales and keeps the low 8 bits of the integer part, so
	// values outside [0, 1] wrap around modulo 256. NaN and Inf map to 0.
	QuantizeWrap
)

// String returns the flag spelling of the mode.
func (m QuantizeMode) String() string {
	switch m {
	case QuantizeClamp:
		return "clamp"
	case QuantizeWrap:
		return "wrap"
	default:
		return fmt.Sprintf("QuantizeMode(%d)", int(m))
	}
}

// ParseQuantizeMode parses "clamp" or "wrap".
func ParseQuantizeMode(s string) (QuantizeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp":
		return QuantizeClamp, nil
	case "wrap":
		return QuantizeWrap, nil
	default:
		return QuantizeClamp, fmt.Errorf("invalid quantize mode %q: must be 'clamp' or 'wrap'", s)
	}
}

// Quantize converts a channel value to a byte as value*255 truncated toward zero.
func Quantize(v float64, mode QuantizeMode) uint8 {
	if mode == QuantizeWrap {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return uint8(int64(v * 255))
	}

	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}

// Bytes quantizes the R, G and B channels.
func (c Color) Bytes(mode QuantizeMode) (r, g, b uint8) {
	return Quantize(c.R, mode), Quantize(c.G, mode), Quantize(c.B, mode)
}

// NRGBA quantizes all four channels into a standard library color.
func (c Color) NRGBA(mode QuantizeMode) color.NRGBA {
	r, g, b := c.Bytes(mode)
	return color.NRGBA{R: r, G: g, B: b, A: Quantize(c.A, mode)}
}

// FromColor converts any standard library color into a Color.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{
		R: float64(n.R) / 255,
		G: float64(n.G) / 255,
		B: float64(n.B) / 255,
		A: float64(n.A) / 255,
	}
}
