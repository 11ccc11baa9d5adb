package export

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/MeKo-Tech/wangtiles/internal/ppm"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ReadImage decodes an image file written by this package. The format is
// taken from the file extension.
func ReadImage(path string) (image.Image, Format, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, f, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()
	r := bufio.NewReader(file)

	var img image.Image
	switch f {
	case FormatPPM:
		img, err = ppm.Decode(r)
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatBMP:
		img, err = bmp.Decode(r)
	case FormatTIFF:
		img, err = tiff.Decode(r)
	default:
		return nil, f, fmt.Errorf("format %q is not a single image", f)
	}
	if err != nil {
		return nil, f, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, f, nil
}
