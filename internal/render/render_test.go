package render

import (
	"errors"
	"math"
	"testing"

	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/shader"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCoords(t *testing.T) {
	u, v := LocalCoords(0, 0, 64)
	assert.Equal(t, -1.0, u)
	assert.Equal(t, 1.0, v)

	u, v = LocalCoords(32, 32, 64)
	assert.Equal(t, 0.0, u)
	assert.Equal(t, 0.0, v)

	u, v = LocalCoords(64+48, 128+16, 64)
	assert.Equal(t, 0.5, u)
	assert.Equal(t, 0.5, v)
}

func TestRenderDimensions(t *testing.T) {
	g, err := wang.GenerateSeeded(3, 2, 7)
	require.NoError(t, err)

	pix, err := Render(g, Options{TileSize: 8})
	require.NoError(t, err)
	assert.Equal(t, 24, pix.Width())
	assert.Equal(t, 16, pix.Height())
}

func TestRenderRejectsInvalidTileSize(t *testing.T) {
	g := wang.AtlasGrid()
	_, err := Render(g, Options{TileSize: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, wang.ErrInvalidDimension))

	_, err = Render(nil, DefaultOptions())
	assert.Error(t, err)
}

func TestRenderRejectsOverflowingImage(t *testing.T) {
	opts := DefaultOptions()
	opts.TileSize = math.MaxInt / 2
	_, err := Render(wang.AtlasGrid(), opts)
	assert.True(t, errors.Is(err, wang.ErrInvalidDimension), "%v", err)

	opts.TileSize = 1 << 20
	_, err = Render(wang.NewGrid(1<<12, 1<<12), opts)
	assert.True(t, errors.Is(err, wang.ErrInvalidDimension), "%v", err)
}

func TestRenderUsesTileIdentifiers(t *testing.T) {
	g, err := wang.ParseGrid([]byte("0F\n"))
	require.NoError(t, err)

	pix, err := Render(g, Options{TileSize: 16, Shader: shader.Band(shader.DefaultPalette())})
	require.NoError(t, err)

	pix.ForEach(func(x, y int, c rgba.Color) {
		if x < 16 {
			require.Equal(t, rgba.White, c, "(%d,%d)", x, y)
		} else {
			require.Equal(t, rgba.Red, c, "(%d,%d)", x, y)
		}
	})
}

func TestRenderBandOrientation(t *testing.T) {
	// Identifier with only the top edge active: the band sits in the upper
	// rows of the tile because v grows toward smaller y.
	g, err := wang.ParseGrid([]byte("4\n"))
	require.NoError(t, err)

	pix, err := Render(g, Options{TileSize: 16})
	require.NoError(t, err)

	assert.Equal(t, rgba.Red, pix.At(8, 1))
	assert.Equal(t, rgba.White, pix.At(8, 14))
	assert.Equal(t, rgba.White, pix.At(1, 8))
	assert.Equal(t, rgba.White, pix.At(14, 8))
}

func TestRenderGammaKeepsPureColors(t *testing.T) {
	pix, err := RenderAtlas(DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 256, pix.Width())

	pix.ForEach(func(x, y int, c rgba.Color) {
		require.True(t, c == rgba.Red || c == rgba.White, "(%d,%d) -> %+v", x, y, c)
	})
}

func TestRenderGammaAppliedUniformly(t *testing.T) {
	grey := rgba.RGB(0.5, 0.5, 0.5)
	flat := func(wang.TileID, float64, float64) rgba.Color { return grey }

	pix, err := Render(wang.AtlasGrid(), Options{TileSize: 4, Shader: flat, Gamma: true, Outline: true, OutlineColor: grey})
	require.NoError(t, err)

	want := grey.GammaCorrect()
	pix.ForEach(func(x, y int, c rgba.Color) {
		require.Equal(t, want, c)
	})
}

func TestRenderOutline(t *testing.T) {
	opts := DefaultOptions()
	opts.TileSize = 8
	opts.Outline = true

	pix, err := RenderAtlas(opts)
	require.NoError(t, err)

	for i := 0; i < pix.Width(); i++ {
		assert.Equal(t, rgba.Black, pix.At(i, 0))
		assert.Equal(t, rgba.Black, pix.At(0, i))
		assert.Equal(t, rgba.Black, pix.At(i, 8))
		assert.Equal(t, rgba.Black, pix.At(16, i))
	}
	// Tile 15 sits at (3,3) and is fully active inside its outline.
	assert.Equal(t, rgba.Red, pix.At(3*8+4, 3*8+4))
}

func TestRenderIsSeamless(t *testing.T) {
	g, err := wang.GenerateSeeded(6, 5, 2024)
	require.NoError(t, err)

	const ts = 16
	pix, err := Render(g, Options{TileSize: ts})
	require.NoError(t, err)

	// Across every vertical tile boundary the last column of the left tile
	// and the first column of the right tile sit on the shared edge's band
	// at mid-height, so they must agree.
	mid := ts / 2
	for ty := 0; ty < g.Height(); ty++ {
		for tx := 0; tx+1 < g.Width(); tx++ {
			y := ty*ts + mid + 1
			left := pix.At((tx+1)*ts-1, y)
			right := pix.At((tx+1)*ts, y)
			assert.Equal(t, left, right, "boundary after tile (%d,%d)", tx, ty)
		}
	}
}
