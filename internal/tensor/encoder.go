// Package tensor turns upright images into the classifier's input tensor.
package tensor

import (
	"errors"
	"fmt"
	"image"

	"github.com/andresmejia3/signspell/internal/types"
	"golang.org/x/image/draw"
)

const (
	// InputHeight and InputWidth are the model's fixed input size.
	InputHeight = 128
	InputWidth  = 128
)

var ErrEmptyImage = errors.New("source image is empty")

// Encode scales img to h x w and lays it out as a [1, 3, h, w] tensor,
// red plane first, each straight-alpha channel byte divided by 255. Alpha is ignored.
func Encode(img image.Image, h, w int) (*types.InputTensor, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("invalid tensor size %dx%d", w, h)
	}

	px := resize(img, w, h)

	area := h * w
	data := make([]float32, 3*area)
	for y := 0; y < h; y++ {
		row := px.Pix[y*px.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			data[0*area+y*w+x] = float32(p[0]) / 255.0
			data[1*area+y*w+x] = float32(p[1]) / 255.0
			data[2*area+y*w+x] = float32(p[2]) / 255.0
		}
	}

	return types.NewInputTensor([]int64{1, 3, int64(h), int64(w)}, data)
}

// resize returns a non-premultiplied copy of img at exactly w x h. Same-size sources are copied without resampling.
func resize(img image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	src := img.Bounds()
	if src.Dx() == w && src.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}
