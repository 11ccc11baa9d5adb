package wang

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/wangtiles/internal/raster"
)

// ErrInvalidDimension is returned when a grid or tile size is not positive.
var ErrInvalidDimension = errors.New("invalid dimension")

// Generate builds a width x height grid in a single row-major sweep.
//
// Every cell draws one nibble from src. The Top bit is then copied from the
// Bottom bit of the cell above and the Left bit from the Right bit of the cell
// to the left, whenever those neighbors exist. Bottom and Right stay random;
// they are consumed when the sweep reaches the neighbors below and to the
// right. Cells are never revisited.
func Generate(width, height int, src NibbleSource) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid must be at least 1x1, got %dx%d", ErrInvalidDimension, width, height)
	}
	if _, ok := raster.Area(width, height); !ok {
		return nil, fmt.Errorf("%w: grid %dx%d is too large", ErrInvalidDimension, width, height)
	}
	if src == nil {
		return nil, errors.New("nibble source is nil")
	}

	g := NewGrid(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			id := TileID(src.NextNibble() & 0x0F)
			if y > 0 {
				id = id.With(Top, g.At(x, y-1).Has(Bottom))
			}
			if x > 0 {
				id = id.With(Left, g.At(x-1, y).Has(Right))
			}
			g.cells.Set(x, y, id)
		}
	}

	return g, nil
}

// GenerateSeeded is Generate with a RandSource for seed.
func GenerateSeeded(width, height int, seed int64) (*Grid, error) {
	return Generate(width, height, NewRandSource(seed))
}
