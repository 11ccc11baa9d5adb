// Package ppm reads and writes binary PPM (P6) images.
//
// The encoder writes the header "P6\n{width} {height} 255\n" followed by one
// R, G, B byte triple per pixel in row-major order, without padding. Alpha is
// never written.
package ppm

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"

	"github.com/MeKo-Tech/wangtiles/internal/raster"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
)

// Header returns the P6 header for a width x height image.
func Header(width, height int) string {
	return fmt.Sprintf("P6\n%d %d 255\n", width, height)
}

// Encode writes buf as a P6 image, quantizing every channel with mode.
func Encode(w io.Writer, buf *raster.Buffer[rgba.Color], mode rgba.QuantizeMode) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header(buf.Width(), buf.Height())); err != nil {
		return fmt.Errorf("failed to write ppm header: %w", err)
	}

	line := make([]byte, buf.Width()*3)
	for y := 0; y < buf.Height(); y++ {
		for x, c := range buf.Row(y) {
			line[3*x], line[3*x+1], line[3*x+2] = c.Bytes(mode)
		}
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("failed to write ppm row %d: %w", y, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush ppm: %w", err)
	}
	return nil
}

// EncodeImage writes any image as P6, dropping alpha.
func EncodeImage(w io.Writer, img image.Image) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header(b.Dx(), b.Dy())); err != nil {
		return fmt.Errorf("failed to write ppm header: %w", err)
	}

	line := make([]byte, b.Dx()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			i := 3 * (x - b.Min.X)
			line[i], line[i+1], line[i+2] = c.R, c.G, c.B
		}
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("failed to write ppm row %d: %w", y-b.Min.Y, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush ppm: %w", err)
	}
	return nil
}

// ErrFormat is returned by Decode for input that is not an 8-bit P6 image.
var ErrFormat = errors.New("ppm: invalid format")

// MaxDecodePixels bounds the image size Decode accepts before allocating.
const MaxDecodePixels = 1 << 28

// Decode reads a P6 image with a maximum value of 255. Comments in the header
// are skipped.
func Decode(r io.Reader) (*image.NRGBA, error) {
	br := bufio.NewReader(r)

	magic, err := readToken(br)
	if err != nil {
		return nil, err
	}
	if magic != "P6" {
		return nil, fmt.Errorf("%w: magic %q", ErrFormat, magic)
	}

	var dims [3]int
	for i := range dims {
		tok, err := readToken(br)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad header value %q", ErrFormat, tok)
		}
		dims[i] = n
	}
	width, height, maxVal := dims[0], dims[1], dims[2]
	if maxVal != 255 {
		return nil, fmt.Errorf("%w: unsupported max value %d", ErrFormat, maxVal)
	}
	if n, ok := raster.Area(width, height); !ok || n > MaxDecodePixels || max(width, height) > MaxDecodePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrFormat, width, height, MaxDecodePixels)
	}

	// Exactly one whitespace byte separates the header from the raster.
	if _, err := br.ReadByte(); err != nil {
		return nil, fmt.Errorf("%w: missing raster: %v", ErrFormat, err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	line := make([]byte, width*3)
	for y := 0; y < height; y++ {
		if _, err := io.ReadFull(br, line); err != nil {
			return nil, fmt.Errorf("%w: short raster at row %d: %v", ErrFormat, y, err)
		}
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: line[3*x], G: line[3*x+1], B: line[3*x+2], A: 255})
		}
	}
	return img, nil
}

func readToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			return "", fmt.Errorf("%w: truncated header: %v", ErrFormat, err)
		}
		switch {
		case b == '#' && len(tok) == 0:
			if _, err := br.ReadString('\n'); err != nil {
				return "", fmt.Errorf("%w: truncated comment: %v", ErrFormat, err)
			}
		case isSpace(b):
			if len(tok) > 0 {
				return string(tok), br.UnreadByte()
			}
		default:
			tok = append(tok, b)
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}
