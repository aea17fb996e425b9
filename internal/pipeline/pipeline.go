// Package pipeline runs one capture through orientation, encoding, inference and decoding.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/andresmejia3/signspell/internal/classifier"
	"github.com/andresmejia3/signspell/internal/labels"
	"github.com/andresmejia3/signspell/internal/tensor"
	"github.com/andresmejia3/signspell/internal/types"
	"github.com/up-zero/gotool/imageutil"
)

// ErrDecodeUndefined means the winning score index is outside the known classes.
var ErrDecodeUndefined = errors.New("classifier output does not map to a known class")

// Capturer yields one upright image per call; see capture.Bridge.
type Capturer interface {
	Capture(ctx context.Context, consume func(img image.Image) error) error
}

// Pipeline turns a single capture into a ClassLabel.
type Pipeline struct {
	capturer Capturer
	model    classifier.Classifier
	height   int
	width    int
	debugDir string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInputSize overrides the 128x128 model input.
func WithInputSize(h, w int) Option {
	return func(p *Pipeline) {
		p.height, p.width = h, w
	}
}

// WithDebugFrames saves every upright capture as a JPEG under dir.
func WithDebugFrames(dir string) Option {
	return func(p *Pipeline) { p.debugDir = dir }
}

// New builds a pipeline. model is wrapped so that Forward calls never overlap.
func New(capturer Capturer, model classifier.Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		capturer: capturer,
		model:    classifier.Serialize(model),
		height:   tensor.InputHeight,
		width:    tensor.InputWidth,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Classify captures a new image and returns its label.
// Any stage failure aborts the run; no partial label is returned.
func (p *Pipeline) Classify(ctx context.Context) (types.ClassLabel, error) {
	label := types.LabelUndefined

	err := p.capturer.Capture(ctx, func(img image.Image) error {
		if p.debugDir != "" {
			if err := p.saveDebugFrame(img); err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Failed to save debug frame: %v\n", err)
			}
		}

		input, err := tensor.Encode(img, p.height, p.width)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}

		scores, err := p.forward(ctx, input)
		if err != nil {
			return fmt.Errorf("inference: %w", err)
		}

		decoded := labels.Decode(scores)
		if decoded == types.LabelUndefined {
			return fmt.Errorf("%w (argmax %d of %d scores)", ErrDecodeUndefined, labels.Argmax(scores), len(scores))
		}
		label = decoded
		return nil
	})
	if err != nil {
		return types.LabelUndefined, err
	}
	return label, nil
}

// forward runs inference off the calling goroutine and rejoins, giving up early if ctx ends.
func (p *Pipeline) forward(ctx context.Context, input *types.InputTensor) (types.ScoreVector, error) {
	type outcome struct {
		scores types.ScoreVector
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		scores, err := p.model.Forward(input)
		done <- outcome{scores, err}
	}()

	select {
	case o := <-done:
		return o.scores, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// saveDebugFrame writes img as a timestamped JPEG, creating debugDir if needed.
func (p *Pipeline) saveDebugFrame(img image.Image) error {
	name := fmt.Sprintf("capture_%s.jpg", time.Now().Format("20060102_150405.000"))
	return imageutil.Save(filepath.Join(p.debugDir, name), img, 90)
}
