// Package classifier owns the loaded hand-sign model and runs forward passes.
package classifier

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/andresmejia3/signspell/internal/types"
)

// ErrModelLoad means the model artifact is missing or unreadable. It is fatal for the session.
var ErrModelLoad = errors.New("failed to load model")

// Classifier scores an input tensor, one value per class.
type Classifier interface {
	Forward(tensor *types.InputTensor) (types.ScoreVector, error)
	Close()
}

// ArtifactPath returns the writable copy of the bundled artifact name, copying it from bundle into dir on first use.
func ArtifactPath(bundle fs.FS, name, dir string) (string, error) {
	dest := filepath.Join(dir, filepath.Base(name))
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}

	src, err := bundle.Open(name)
	if err != nil {
		return "", fmt.Errorf("%w: bundled artifact %s: %v", ErrModelLoad, name, err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create model dir: %v", ErrModelLoad, err)
	}

	// Write to a temp file first so a crash never leaves a truncated model behind
	tmp, err := os.CreateTemp(dir, filepath.Base(name)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("%w: copy artifact: %v", ErrModelLoad, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: bundled artifact %s is empty", ErrModelLoad, name)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	return dest, nil
}

// Serialize wraps c so that concurrent Forward calls run one at a time.
func Serialize(c Classifier) Classifier {
	if _, ok := c.(*serialized); ok {
		return c
	}
	return &serialized{inner: c}
}

type serialized struct {
	mu    sync.Mutex
	inner Classifier
}

func (s *serialized) Forward(tensor *types.InputTensor) (types.ScoreVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Forward(tensor)
}

func (s *serialized) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Close()
}
