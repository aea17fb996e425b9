package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/andresmejia3/signspell/internal/types"
	"github.com/up-zero/gotool/imageutil"
)

// DefaultPoolSize is the number of frame buffers a device may have outstanding.
const DefaultPoolSize = 4

// FileDevice replays still images from disk as if they came from a camera.
// Each TakePicture delivers the next file, cycling, on its own goroutine.
type FileDevice struct {
	mu       sync.Mutex
	paths    []string
	next     int
	rotation int
	pool     chan struct{}
}

// NewFileDevice serves the images at paths in order. poolSize bounds unreleased frames.
func NewFileDevice(paths []string, rotation, poolSize int) (*FileDevice, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("file device needs at least one image")
	}
	if poolSize < 1 {
		poolSize = DefaultPoolSize
	}
	return &FileDevice{
		paths:    paths,
		rotation: rotation,
		pool:     make(chan struct{}, poolSize),
	}, nil
}

// ListImages resolves input to image paths: the file itself, or every jpg/png in a directory, sorted.
func ListImages(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{input}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(input, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no jpg or png images in %s", input)
	}
	sort.Strings(paths)
	return paths, nil
}

func (d *FileDevice) TakePicture(cb Callback) {
	select {
	case d.pool <- struct{}{}:
	default:
		cb.OnError(ErrBufferPoolExhausted)
		return
	}

	d.mu.Lock()
	path := d.paths[d.next]
	d.next = (d.next + 1) % len(d.paths)
	d.mu.Unlock()

	go func() {
		img, err := imageutil.Open(path)
		if err != nil {
			<-d.pool
			cb.OnError(fmt.Errorf("read %s: %w", path, err))
			return
		}
		cb.OnCaptureSuccess(types.NewRawFrame(img, d.rotation, func() { <-d.pool }))
	}()
}

// InFlight reports how many delivered frames have not been released yet.
func (d *FileDevice) InFlight() int {
	return len(d.pool)
}
