package capture

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Orient rotates img clockwise by degrees, which must be a multiple of 90.
func Orient(img image.Image, degrees int) (image.Image, error) {
	degrees = ((degrees % 360) + 360) % 360
	if degrees%90 != 0 {
		return nil, fmt.Errorf("unsupported rotation %d, expected 0, 90, 180 or 270", degrees)
	}
	if degrees == 0 {
		return img, nil
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	minX, minY := float64(b.Min.X), float64(b.Min.Y)

	// s2d maps source coordinates onto the upright destination
	var s2d f64.Aff3
	var dst *image.RGBA
	switch degrees {
	case 90:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		s2d = f64.Aff3{0, -1, h + minY, 1, 0, -minX}
	case 180:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		s2d = f64.Aff3{-1, 0, w + minX, 0, -1, h + minY}
	case 270:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		s2d = f64.Aff3{0, 1, -minY, -1, 0, w + minX}
	}

	draw.NearestNeighbor.Transform(dst, s2d, img, b, draw.Src, nil)
	return dst, nil
}
