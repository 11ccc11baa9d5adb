// Package raster provides a dense row-major 2-D buffer. It backs both the
// tile identifier grid and the pixel buffer produced by the renderer.
package raster

import (
	"fmt"
	"math"
)

// Buffer is a dense width x height array of T, indexed by (column, row).
type Buffer[T any] struct {
	data   []T
	width  int
	height int
}

// Area returns width*height. ok is false when either side is negative or the
// product does not fit in an int.
func Area(width, height int) (n int, ok bool) {
	if width < 0 || height < 0 {
		return 0, false
	}
	if width != 0 && height > math.MaxInt/width {
		return 0, false
	}
	return width * height, true
}

// New allocates a buffer with every cell set to fill.
// Negative dimensions are treated as zero. New panics when the cell count
// overflows an int.
func New[T any](width, height int, fill T) *Buffer[T] {
	width, height = max(width, 0), max(height, 0)
	n, ok := Area(width, height)
	if !ok {
		panic(fmt.Sprintf("raster: %dx%d buffer overflows", width, height))
	}

	data := make([]T, n)
	for i := range data {
		data[i] = fill
	}

	return &Buffer[T]{
		data:   data,
		width:  width,
		height: height,
	}
}

// Width returns the number of columns.
func (b *Buffer[T]) Width() int { return b.width }

// Height returns the number of rows.
func (b *Buffer[T]) Height() int { return b.height }

// InBounds reports whether (x, y) addresses a cell of the buffer.
func (b *Buffer[T]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.width && y < b.height
}

func (b *Buffer[T]) index(x, y int) int {
	if !b.InBounds(x, y) {
		panic(fmt.Sprintf("raster: coordinate (%d,%d) outside %dx%d buffer", x, y, b.width, b.height))
	}
	return y*b.width + x
}

// At returns the value stored at (x, y).
func (b *Buffer[T]) At(x, y int) T {
	return b.data[b.index(x, y)]
}

// Set stores v at (x, y).
func (b *Buffer[T]) Set(x, y int, v T) {
	b.data[b.index(x, y)] = v
}

// Row returns the backing slice of row y. Writes through it modify the buffer.
func (b *Buffer[T]) Row(y int) []T {
	start := b.index(0, y)
	return b.data[start : start+b.width]
}

// ForEach visits every cell in row-major order.
func (b *Buffer[T]) ForEach(visit func(x, y int, v T)) {
	for y := 0; y < b.height; y++ {
		row := b.data[y*b.width : (y+1)*b.width]
		for x, v := range row {
			visit(x, y, v)
		}
	}
}

// ForEachMut visits every cell in row-major order and replaces it with the
// value returned by visit.
func (b *Buffer[T]) ForEachMut(visit func(x, y int, v T) T) {
	for y := 0; y < b.height; y++ {
		row := b.data[y*b.width : (y+1)*b.width]
		for x := range row {
			row[x] = visit(x, y, row[x])
		}
	}
}

// Clone returns an independent copy of the buffer.
func (b *Buffer[T]) Clone() *Buffer[T] {
	data := make([]T, len(b.data))
	copy(data, b.data)
	return &Buffer[T]{data: data, width: b.width, height: b.height}
}
