// Package rgba provides the floating-point color value used by the shaders
// and the quantization step that turns it into 8-bit channels.
package rgba

import "math"

// Gamma is the exponent used by GammaCorrect.
const Gamma = 2.2

// Color holds four channels with a nominal range of [0, 1].
// Channels are not clamped; see Quantize for the export behavior.
type Color struct {
	R, G, B, A float64
}

// Common opaque colors.
var (
	Red   = Color{R: 1, G: 0, B: 0, A: 1}
	Green = Color{R: 0, G: 1, B: 0, A: 1}
	Blue  = Color{R: 0, G: 0, B: 1, A: 1}
	Black = Color{R: 0, G: 0, B: 0, A: 1}
	White = Color{R: 1, G: 1, B: 1, A: 1}
)

// RGB creates an opaque color.
func RGB(r, g, b float64) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// Add returns the channel-wise sum a + b.
func Add(a, b Color) Color {
	return Color{R: a.R + b.R, G: a.G + b.G, B: a.B + b.B, A: a.A + b.A}
}

// Scale returns k * c for every channel.
func Scale(k float64, c Color) Color {
	return Color{R: k * c.R, G: k * c.G, B: k * c.B, A: k * c.A}
}

// Lerp returns t*c0 + (1-t)*c1. With t = 1 the result is exactly c0 and
// with t = 0 exactly c1.
func Lerp(c0, c1 Color, t float64) Color {
	return Add(Scale(t, c0), Scale(1-t, c1))
}

// GammaCorrect raises R, G and B to 1/Gamma. Alpha is left untouched.
func (c Color) GammaCorrect() Color {
	inv := 1 / Gamma
	return Color{
		R: math.Pow(c.R, inv),
		G: math.Pow(c.G, inv),
		B: math.Pow(c.B, inv),
		A: c.A,
	}
}
