package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/andresmejia3/signspell/internal/types"
	"github.com/andresmejia3/signspell/internal/utils"
)

const megabyte = 1024 * 1024

// FFmpegDevice grabs single frames from a camera through ffmpeg.
type FFmpegDevice struct {
	Format   string // ffmpeg demuxer, e.g. v4l2
	Input    string // e.g. /dev/video0
	Rotation int
	Timeout  time.Duration // Hard limit for one ffmpeg run

	pool chan struct{}
}

// NewFFmpegDevice prepares a camera device. No process is started until TakePicture.
func NewFFmpegDevice(format, input string, rotation, poolSize int) *FFmpegDevice {
	if poolSize < 1 {
		poolSize = DefaultPoolSize
	}
	return &FFmpegDevice{
		Format:   format,
		Input:    input,
		Rotation: rotation,
		Timeout:  30 * time.Second,
		pool:     make(chan struct{}, poolSize),
	}
}

func (d *FFmpegDevice) TakePicture(cb Callback) {
	select {
	case d.pool <- struct{}{}:
	default:
		cb.OnError(ErrBufferPoolExhausted)
		return
	}

	go func() {
		frame, err := d.grab()
		if err != nil {
			<-d.pool
			cb.OnError(err)
			return
		}
		cb.OnCaptureSuccess(types.NewRawFrame(frame, d.Rotation, func() { <-d.pool }))
	}()
}

func (d *FFmpegDevice) grab() (image.Image, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
	defer cancel()

	cmd := utils.NewFFmpegCaptureCmd(ctx, d.Format, d.Input)
	out, err := cmd.Output()
	if err != nil {
		if cmd.Stderr.Len() > 0 {
			return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, bytes.TrimSpace(cmd.Stderr.Bytes()))
		}
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("frame scanner failed: %w", err)
		}
		return nil, fmt.Errorf("ffmpeg produced no frame from %s", d.Input)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(scanner.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return decoded, nil
}
