// Package export writes rendered pixel buffers to disk in the supported
// image formats.
package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/wangtiles/internal/ppm"
	"github.com/MeKo-Tech/wangtiles/internal/raster"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an output file format.
type Format string

const (
	FormatPPM     Format = "ppm"
	FormatPNG     Format = "png"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatMBTiles Format = "mbtiles"
)

// Formats lists every supported format.
var Formats = []Format{FormatPPM, FormatPNG, FormatBMP, FormatTIFF, FormatMBTiles}

// ParseFormat accepts a format name, case-insensitively. "tif" is an alias
// for tiff and the empty string selects ppm.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPPM, nil
	case "tif":
		return FormatTIFF, nil
	case FormatPPM, FormatPNG, FormatBMP, FormatTIFF, FormatMBTiles:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (available: ppm, png, bmp, tiff, mbtiles)", s)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer format of %q: no extension", path)
	}
	return ParseFormat(ext)
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// ToImage quantizes buf into an opaque NRGBA image.
func ToImage(buf *raster.Buffer[rgba.Color], mode rgba.QuantizeMode) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, buf.Width(), buf.Height()))
	buf.ForEach(func(x, y int, c rgba.Color) {
		n := c.NRGBA(mode)
		n.A = 255
		img.SetNRGBA(x, y, n)
	})
	return img
}

// Encode writes buf to w in an image format. FormatMBTiles is a container,
// not a stream, and is rejected here; use WriteMBTiles.
func Encode(w io.Writer, buf *raster.Buffer[rgba.Color], f Format, mode rgba.QuantizeMode) error {
	if f == FormatPPM {
		return ppm.Encode(w, buf, mode)
	}
	return EncodeImage(w, ToImage(buf, mode), f)
}

// EncodeImage writes an already quantized image.
func EncodeImage(w io.Writer, img image.Image, f Format) error {
	var err error
	switch f {
	case FormatPPM:
		err = ppm.EncodeImage(w, img)
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("format %q cannot be streamed", f)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f, err)
	}
	return nil
}

// ReplaceExt swaps the extension of path for the one of f.
func ReplaceExt(path string, f Format) string {
	return trimExt(path) + "." + f.Ext()
}

func trimExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}
