package capture

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/andresmejia3/signspell/internal/types"
)

// Bridge turns one device callback into one blocking Capture call.
// At most one capture may be in flight per Bridge.
type Bridge struct {
	device  Device
	timeout time.Duration
	slot    chan struct{}
}

// NewBridge wraps device. A zero timeout waits for the device indefinitely (or until ctx is done).
func NewBridge(device Device, timeout time.Duration) *Bridge {
	return &Bridge{
		device:  device,
		timeout: timeout,
		slot:    make(chan struct{}, 1),
	}
}

// Capture takes one picture, rotates it upright and hands it to consume.
// The device buffer is released once consume returns, even if it panics.
// Device failures and timeouts come back as *CaptureError.
func (b *Bridge) Capture(ctx context.Context, consume func(img image.Image) error) error {
	select {
	case b.slot <- struct{}{}:
	default:
		return &CaptureError{Reason: "request rejected", Err: ErrCaptureBusy}
	}
	defer func() { <-b.slot }()

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	req := newRequest()
	b.device.TakePicture(req)

	select {
	case res := <-req.done:
		if res.err != nil {
			return &CaptureError{Reason: "device reported failure", Err: res.err}
		}
		frame := res.frame
		defer frame.Release()

		upright, err := Orient(frame.Image, frame.Rotation)
		if err != nil {
			return &CaptureError{Reason: "orientation", Err: err}
		}
		return consume(upright)

	case <-ctx.Done():
		// Whatever the device delivers from now on is released unread
		req.abandon()
		err := ctx.Err()
		if err == context.DeadlineExceeded {
			err = ErrCaptureTimeout
		}
		return &CaptureError{Reason: "no response from device", Err: err}
	}
}

type result struct {
	frame *types.RawFrame
	err   error
}

// request is a one-shot result cell handed to the device as its Callback.
type request struct {
	mu        sync.Mutex
	resolved  bool
	abandoned bool
	done      chan result
}

func newRequest() *request {
	return &request{done: make(chan result, 1)}
}

func (r *request) OnCaptureSuccess(frame *types.RawFrame) {
	r.resolve(result{frame: frame})
}

func (r *request) OnError(err error) {
	if err == nil {
		err = &CaptureError{Reason: "device reported an unspecified error"}
	}
	r.resolve(result{err: err})
}

func (r *request) resolve(res result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved {
		panic("capture: device called back more than once for a single request")
	}
	r.resolved = true

	if r.abandoned {
		if res.frame != nil {
			res.frame.Release()
		}
		return
	}
	r.done <- res
}

// abandon marks the request as no longer awaited and releases a frame that was delivered but never read.
func (r *request) abandon() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.abandoned = true
	select {
	case res := <-r.done:
		if res.frame != nil {
			res.frame.Release()
		}
	default:
	}
}
