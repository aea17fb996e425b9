package tensor

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestEncodeUniformGray(t *testing.T) {
	for _, v := range []uint8{0, 128, 255} {
		img := uniform(InputWidth, InputHeight, color.RGBA{v, v, v, 255})

		tensor, err := Encode(img, InputHeight, InputWidth)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3, InputHeight, InputWidth}, tensor.Shape())
		require.Equal(t, 3*InputHeight*InputWidth, tensor.Len())

		want := float32(v) / 255.0
		for i, got := range tensor.Data() {
			if got != want {
				t.Fatalf("gray %d: element %d = %v, want %v", v, i, got, want)
			}
		}
	}
}

func TestEncodeScalesToTargetSize(t *testing.T) {
	img := uniform(640, 480, color.RGBA{200, 100, 50, 255})

	tensor, err := Encode(img, InputHeight, InputWidth)
	require.NoError(t, err)
	require.Equal(t, 3*InputHeight*InputWidth, tensor.Len())

	area := InputHeight * InputWidth
	data := tensor.Data()
	tol := 1.0 / 255.0
	assert.InDelta(t, 200.0/255.0, data[0], tol)
	assert.InDelta(t, 100.0/255.0, data[area], tol)
	assert.InDelta(t, 50.0/255.0, data[2*area], tol)
	assert.InDelta(t, 50.0/255.0, data[3*area-1], tol)
}

func TestEncodePlanarLayout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{0, 255, 0, 255})
	img.SetRGBA(0, 1, color.RGBA{0, 0, 255, 255})
	img.SetRGBA(1, 1, color.RGBA{51, 102, 153, 255})

	tensor, err := Encode(img, 2, 2)
	require.NoError(t, err)

	want := []float32{
		// red
		1, 0, 0, 0.2,
		// green
		0, 1, 0, 0.4,
		// blue
		0, 0, 1, 0.6,
	}
	assert.InDeltaSlice(t, want, tensor.Data(), 1e-6)
}

func TestEncodeRejectsEmptyImage(t *testing.T) {
	_, err := Encode(image.NewRGBA(image.Rectangle{}), InputHeight, InputWidth)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = Encode(nil, InputHeight, InputWidth)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestEncodeTranslucentKeepsStraightColor(t *testing.T) {
	half := color.NRGBA{255, 0, 0, 128}
	for _, size := range []int{2, 4} {
		img := image.NewNRGBA(image.Rect(0, 0, size, size))
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				img.SetNRGBA(x, y, half)
			}
		}

		// 2x2 is copied as is, 4x4 goes through the scaler
		tensor, err := Encode(img, 2, 2)
		require.NoError(t, err)
		data := tensor.Data()
		for i := 0; i < 4; i++ {
			assert.InDelta(t, 1.0, data[i], 0.01, "red at %d (source %dx%d)", i, size, size)
			assert.InDelta(t, 0.0, data[4+i], 0.01, "green at %d (source %dx%d)", i, size, size)
		}
	}
}
