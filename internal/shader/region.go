package shader

import (
	"math"

	"github.com/MeKo-Tech/wangtiles/internal/wang"
)

// Classifier maps a local coordinate to the edge region that owns it.
// ok is false when the point belongs to no region.
type Classifier func(u, v float64) (edge wang.Edge, ok bool)

// InBottom reports v <= 0 && |v| >= |u|.
func InBottom(u, v float64) bool { return v <= 0 && math.Abs(v) >= math.Abs(u) }

// InRight reports u >= 0 && |v| <= |u|.
func InRight(u, v float64) bool { return u >= 0 && math.Abs(v) <= math.Abs(u) }

// InTop reports v >= 0 && |v| >= |u|.
func InTop(u, v float64) bool { return v >= 0 && math.Abs(v) >= math.Abs(u) }

// InLeft reports u <= 0 && |v| <= |u|.
func InLeft(u, v float64) bool { return u <= 0 && math.Abs(v) <= math.Abs(u) }

// ClassifyInclusive tests the inclusive predicates in the order bottom,
// right, top, left and returns the first match. The four predicates cover the
// whole square, so ok is always true. Points on a diagonal or an axis go to
// the earlier region in that order; the tile center belongs to bottom.
func ClassifyInclusive(u, v float64) (wang.Edge, bool) {
	switch {
	case InBottom(u, v):
		return wang.Bottom, true
	case InRight(u, v):
		return wang.Right, true
	case InTop(u, v):
		return wang.Top, true
	default:
		return wang.Left, true
	}
}

// ClassifyStrict uses strict comparisons. Points on the diagonals, including
// the tile center, belong to no region.
func ClassifyStrict(u, v float64) (wang.Edge, bool) {
	au, av := math.Abs(u), math.Abs(v)
	switch {
	case v < 0 && av > au:
		return wang.Bottom, true
	case u > 0 && av < au:
		return wang.Right, true
	case v > 0 && av > au:
		return wang.Top, true
	case u < 0 && av < au:
		return wang.Left, true
	default:
		return wang.Bottom, false
	}
}
