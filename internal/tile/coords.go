// Package tile maps Wang grid cells onto slippy-map tile coordinates so a
// rendered grid can be stored and served as a z/x/y tile pyramid level.
package tile

import (
	"fmt"
	"math/bits"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest level a grid can be placed at.
const MaxZoom = 24

// Coords is a tile coordinate in the XYZ scheme (y grows southward).
type Coords struct {
	Z uint32
	X uint32
	Y uint32
}

// NewCoords creates a new Coords from zoom, x, y values.
func NewCoords(z, x, y uint32) Coords {
	return Coords{Z: z, X: x, Y: y}
}

// String returns the coordinate as "z{zoom}_x{x}_y{y}".
func (c Coords) String() string {
	return fmt.Sprintf("z%d_x%d_y%d", c.Z, c.X, c.Y)
}

// Path returns the file name for this tile with the given extension.
func (c Coords) Path(extension string) string {
	return fmt.Sprintf("%s.%s", c.String(), extension)
}

// ParseCoords parses a string like "z5_x3_y7".
func ParseCoords(s string) (Coords, error) {
	var c Coords
	if _, err := fmt.Sscanf(s, "z%d_x%d_y%d", &c.Z, &c.X, &c.Y); err != nil {
		return c, fmt.Errorf("invalid tile coordinate format: %s", s)
	}
	if !c.Valid() {
		return c, fmt.Errorf("tile coordinate out of range: %s", s)
	}
	return c, nil
}

// Valid reports whether x and y fit inside zoom level z.
func (c Coords) Valid() bool {
	if c.Z > MaxZoom {
		return false
	}
	n := uint32(1) << c.Z
	return c.X < n && c.Y < n
}

// Tile returns the maptile.Tile for this coordinate.
func (c Coords) Tile() maptile.Tile {
	return maptile.New(c.X, c.Y, maptile.Zoom(c.Z))
}

// Bounds returns [minLon, minLat, maxLon, maxLat] in WGS84.
func (c Coords) Bounds() [4]float64 {
	return boundArray(c.Tile().Bound())
}

// Center returns the tile center as lon, lat.
func (c Coords) Center() (float64, float64) {
	p := c.Tile().Center()
	return p.Lon(), p.Lat()
}

// TMSY returns the row index in the TMS scheme used by MBTiles.
func (c Coords) TMSY() uint32 {
	return (uint32(1) << c.Z) - 1 - c.Y
}

// ZoomForGrid returns the smallest zoom level whose 2^z x 2^z tile square
// holds a width x height grid with one cell per tile.
func ZoomForGrid(width, height int) (uint32, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}
	n := max(width, height)
	z := uint32(bits.Len(uint(n - 1)))
	if z > MaxZoom {
		return 0, fmt.Errorf("grid %dx%d needs zoom %d, above maximum %d", width, height, z, MaxZoom)
	}
	return z, nil
}

// GridRange is the block of tiles covered by a grid anchored at x=0, y=0.
type GridRange struct {
	Z      uint32
	Width  int
	Height int
}

// NewGridRange places a width x height grid at its minimal zoom level.
func NewGridRange(width, height int) (GridRange, error) {
	z, err := ZoomForGrid(width, height)
	if err != nil {
		return GridRange{}, err
	}
	return GridRange{Z: z, Width: width, Height: height}, nil
}

// At returns the tile holding grid cell (x, y).
func (r GridRange) At(x, y int) Coords {
	return NewCoords(r.Z, uint32(x), uint32(y))
}

// Contains reports whether c belongs to the range.
func (r GridRange) Contains(c Coords) bool {
	return c.Z == r.Z && int(c.X) < r.Width && int(c.Y) < r.Height
}

// Cell returns the grid cell for a tile in the range.
func (r GridRange) Cell(c Coords) (x, y int, ok bool) {
	if !r.Contains(c) {
		return 0, 0, false
	}
	return int(c.X), int(c.Y), true
}

// ForEach calls fn for every tile of the range in row-major order.
func (r GridRange) ForEach(fn func(Coords)) {
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			fn(r.At(x, y))
		}
	}
}

// Count returns the number of tiles in the range.
func (r GridRange) Count() int {
	return r.Width * r.Height
}

// Bounds returns the WGS84 extent of the whole range.
func (r GridRange) Bounds() [4]float64 {
	if r.Count() == 0 {
		return [4]float64{}
	}
	b := r.At(0, 0).Tile().Bound()
	b = b.Union(r.At(r.Width-1, r.Height-1).Tile().Bound())
	return boundArray(b)
}

// Center returns lon, lat of the range center.
func (r GridRange) Center() (float64, float64) {
	b := r.Bounds()
	return (b[0] + b[2]) / 2, (b[1] + b[3]) / 2
}

func boundArray(b orb.Bound) [4]float64 {
	return [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
}
