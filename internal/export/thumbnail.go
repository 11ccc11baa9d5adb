package export

import (
	"image"

	"github.com/disintegration/gift"
)

// Thumbnail scales img so that its longer side is maxSide pixels. Nearest
// neighbour resampling keeps band edges hard. Images already small enough
// are returned unchanged.
func Thumbnail(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}

	g := gift.New(gift.ResizeToFit(maxSide, maxSide, gift.NearestNeighborResampling))
	dst := image.NewNRGBA(g.Bounds(b))
	g.Draw(dst, img)
	return dst
}

// ThumbnailPath derives "name.thumb.ext" from "name.ext".
func ThumbnailPath(path string, f Format) string {
	return trimExt(path) + ".thumb." + f.Ext()
}
