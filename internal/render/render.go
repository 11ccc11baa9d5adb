// Package render assembles a pixel buffer from a tile identifier grid and a
// shader.
package render

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/wangtiles/internal/raster"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/shader"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
)

// DefaultTileSize is the edge length of one tile in pixels.
const DefaultTileSize = 64

// Options controls image assembly.
type Options struct {
	// Shader defaults to shader.Band with the default palette.
	Shader shader.Func
	// OutlineColor is used for the 1-pixel tile border when Outline is set.
	OutlineColor rgba.Color
	TileSize     int
	// Gamma applies rgba.Color.GammaCorrect to every pixel after shading.
	Gamma bool
	// Outline paints the first row and column of every tile with OutlineColor.
	Outline bool
}

// DefaultOptions returns 64px tiles with gamma on and no outline. The atlas
// command turns the outline on.
func DefaultOptions() Options {
	return Options{
		Shader:       shader.Band(shader.DefaultPalette()),
		OutlineColor: rgba.Black,
		TileSize:     DefaultTileSize,
		Gamma:        true,
	}
}

// LocalCoords maps pixel (x, y) to the local coordinate inside its tile.
// v is flipped so that growing y moves toward the bottom edge.
func LocalCoords(x, y, tileSize int) (u, v float64) {
	fx := float64(x%tileSize) / float64(tileSize)
	fy := float64(y%tileSize) / float64(tileSize)
	return 2*fx - 1, 1 - 2*fy
}

// Render shades every pixel of a (grid width * tile size) by
// (grid height * tile size) image. The grid is only read.
func Render(grid *wang.Grid, opts Options) (*raster.Buffer[rgba.Color], error) {
	if grid == nil {
		return nil, errors.New("grid is nil")
	}
	ts := opts.TileSize
	if ts <= 0 {
		return nil, fmt.Errorf("%w: tile size must be positive, got %d", wang.ErrInvalidDimension, ts)
	}
	shade := opts.Shader
	if shade == nil {
		shade = shader.Band(shader.DefaultPalette())
	}

	width, wok := raster.Area(grid.Width(), ts)
	height, hok := raster.Area(grid.Height(), ts)
	if _, ok := raster.Area(width, height); !ok || !wok || !hok {
		return nil, fmt.Errorf("%w: %dx%d grid at tile size %d is too large",
			wang.ErrInvalidDimension, grid.Width(), grid.Height(), ts)
	}

	pix := raster.New(width, height, rgba.Black)
	pix.ForEachMut(func(x, y int, _ rgba.Color) rgba.Color {
		var c rgba.Color
		if opts.Outline && (x%ts == 0 || y%ts == 0) {
			c = opts.OutlineColor
		} else {
			u, v := LocalCoords(x, y, ts)
			c = shade(grid.At(x/ts, y/ts), u, v)
		}
		if opts.Gamma {
			c = c.GammaCorrect()
		}
		return c
	})

	return pix, nil
}

// RenderAtlas renders the 4x4 reference sheet holding every identifier once.
func RenderAtlas(opts Options) (*raster.Buffer[rgba.Color], error) {
	return Render(wang.AtlasGrid(), opts)
}
