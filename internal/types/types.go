package types

import (
	"fmt"
	"image"
	"time"
)

// NumClasses is the length of the classifier's score vector: 26 letters plus delete, empty and space.
const NumClasses = 29

// RawFrame is a captured image still owned by the device that produced it.
// Release must be called exactly once when the caller is done with it.
type RawFrame struct {
	Image    image.Image
	Rotation int // Clockwise degrees needed to make the image upright
	Width    int
	Height   int
	release  func()
}

// NewRawFrame wraps a device buffer. release returns the buffer to the device pool.
func NewRawFrame(img image.Image, rotation int, release func()) *RawFrame {
	b := img.Bounds()
	return &RawFrame{
		Image:    img,
		Rotation: rotation,
		Width:    b.Dx(),
		Height:   b.Dy(),
		release:  release,
	}
}

// Release hands the buffer back to the capture device.
func (f *RawFrame) Release() {
	if f.release != nil {
		f.release()
	}
}

// InputTensor is a normalized NCHW float32 tensor. It is read-only once built.
type InputTensor struct {
	shape []int64
	data  []float32
}

// NewInputTensor validates that data matches shape.
func NewInputTensor(shape []int64, data []float32) (*InputTensor, error) {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	if n != int64(len(data)) {
		return nil, fmt.Errorf("tensor shape %v needs %d values, got %d", shape, n, len(data))
	}
	return &InputTensor{shape: shape, data: data}, nil
}

// Shape returns the tensor dimensions. Callers must not modify it.
func (t *InputTensor) Shape() []int64 { return t.shape }

// Data returns the planar values. Callers must not modify it.
func (t *InputTensor) Data() []float32 { return t.data }

// Len is the number of elements.
func (t *InputTensor) Len() int { return len(t.data) }

// ScoreVector holds one score per class, in class index order.
type ScoreVector []float32

// ClassLabel is a decoded classifier output.
type ClassLabel int

const (
	LabelUndefined ClassLabel = -1
	LabelDelete    ClassLabel = 26
	LabelEmpty     ClassLabel = 27
	LabelSpace     ClassLabel = 28
)

// LabelFromIndex maps a score index to its class. Out-of-range indices are undefined.
func LabelFromIndex(index int) ClassLabel {
	if index < 0 || index >= NumClasses {
		return LabelUndefined
	}
	return ClassLabel(index)
}

// LabelForLetter returns the label of an ASCII letter, either case.
func LabelForLetter(r rune) ClassLabel {
	switch {
	case r >= 'A' && r <= 'Z':
		return ClassLabel(r - 'A')
	case r >= 'a' && r <= 'z':
		return ClassLabel(r - 'a')
	}
	return LabelUndefined
}

// IsLetter reports whether the label is one of A..Z.
func (l ClassLabel) IsLetter() bool { return l >= 0 && l < 26 }

// Letter returns the upper-case letter, or 0 for control symbols.
func (l ClassLabel) Letter() rune {
	if !l.IsLetter() {
		return 0
	}
	return 'A' + rune(l)
}

func (l ClassLabel) String() string {
	switch {
	case l.IsLetter():
		return string(l.Letter())
	case l == LabelDelete:
		return "delete"
	case l == LabelEmpty:
		return "empty"
	case l == LabelSpace:
		return "space"
	}
	return "undefined"
}

// SpellingQuestion is one prompt of the spelling quiz and the progress made on it.
type SpellingQuestion struct {
	ID      int
	Prompt  string
	Answer  string
	Cursor  int
	Correct int
	Total   int
}

// StatRecord is one row of a user's quiz statistics.
type StatRecord struct {
	QuizType string
	Correct  int
	Total    int
}

// UserSummary is a profile as listed by the store.
type UserSummary struct {
	Username  string
	CreatedAt time.Time
}
