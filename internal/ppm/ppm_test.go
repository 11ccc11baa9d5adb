package ppm

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/wangtiles/internal/raster"
	"github.com/MeKo-Tech/wangtiles/internal/render"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	buf := raster.New(2, 2, rgba.White)
	buf.Set(1, 0, rgba.Red)
	buf.Set(0, 1, rgba.RGB(0.5, 0, 1))

	var out bytes.Buffer
	require.NoError(t, Encode(&out, buf, rgba.QuantizeClamp))

	want := append([]byte("P6\n2 2 255\n"),
		255, 255, 255, 255, 0, 0,
		127, 0, 255, 255, 255, 255,
	)
	assert.Equal(t, want, out.Bytes())
}

func TestEncodeQuantizeModes(t *testing.T) {
	buf := raster.New(1, 1, rgba.RGB(1.5, -0.2, 0.5))

	var clamp, wrap bytes.Buffer
	require.NoError(t, Encode(&clamp, buf, rgba.QuantizeClamp))
	require.NoError(t, Encode(&wrap, buf, rgba.QuantizeWrap))

	header := len(Header(1, 1))
	assert.Equal(t, []byte{255, 0, 127}, clamp.Bytes()[header:])
	assert.Equal(t, []byte{126, 205, 127}, wrap.Bytes()[header:])
}

func TestEncodeAtlasSheet(t *testing.T) {
	// Four 16px tiles per side make a 64x64 sheet.
	opts := render.DefaultOptions()
	opts.TileSize = 16
	opts.Outline = true
	pix, err := render.RenderAtlas(opts)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Encode(&out, pix, rgba.QuantizeClamp))

	header := "P6\n64 64 255\n"
	require.True(t, bytes.HasPrefix(out.Bytes(), []byte(header)))
	require.Equal(t, len(header)+64*64*3, out.Len())

	// Tile (1, 1) of the sheet holds identifier 5: bottom and top active.
	body := out.Bytes()[len(header):]
	at := func(x, y int) []byte {
		i := 3 * (y*64 + x)
		return body[i : i+3]
	}
	active := rgba.Red.GammaCorrect()
	r, g, b := active.Bytes(rgba.QuantizeClamp)
	assert.Equal(t, []byte{r, g, b}, at(24, 30), "bottom region of tile 5")
	assert.Equal(t, []byte{r, g, b}, at(24, 18), "top region of tile 5")
	assert.Equal(t, []byte{0, 0, 0}, at(16, 20), "outline column")
}

func TestDecodeRoundTrip(t *testing.T) {
	pix, err := render.RenderAtlas(render.Options{TileSize: 8, Outline: true, OutlineColor: rgba.Black})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Encode(&out, pix, rgba.QuantizeClamp))

	img, err := Decode(&out)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())

	pix.ForEach(func(x, y int, c rgba.Color) {
		require.Equal(t, c.NRGBA(rgba.QuantizeClamp), img.NRGBAAt(x, y), "(%d,%d)", x, y)
	})
}

func TestDecodeComments(t *testing.T) {
	data := append([]byte("P6\n# made by hand\n1 1\n255\n"), 1, 2, 3)
	img, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, img.NRGBAAt(0, 0))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"wrong magic", []byte("P3\n1 1 255\n")},
		{"bad width", []byte("P6\nx 1 255\n")},
		{"16 bit", []byte("P6\n1 1 65535\n")},
		{"short raster", append([]byte("P6\n2 1 255\n"), 1, 2, 3)},
		{"empty", nil},
		{"overflowing size", []byte("P6\n3037000500 3037000500 255\n\x00")},
		{"too many pixels", []byte("P6\n50000 50000 255\n\x00")},
		{"huge empty row", []byte("P6\n9223372036854775807 0 255\n\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat), "%v", err)
		})
	}
}

func TestEncodeImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 40, G: 50, B: 60, A: 255})

	var out bytes.Buffer
	require.NoError(t, EncodeImage(&out, img))
	assert.Equal(t, append([]byte("P6\n2 1 255\n"), 10, 20, 30, 40, 50, 60), out.Bytes())
}
