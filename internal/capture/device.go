// Package capture adapts callback-driven camera devices into single-result calls.
package capture

import (
	"errors"
	"fmt"

	"github.com/andresmejia3/signspell/internal/types"
)

var (
	// ErrCaptureBusy is returned when a capture is requested while another is still in flight.
	ErrCaptureBusy = errors.New("a capture is already in flight")
	// ErrBufferPoolExhausted is reported by a device that has no free frame buffer.
	ErrBufferPoolExhausted = errors.New("capture buffer pool exhausted")
	// ErrCaptureTimeout is returned when the device does not call back in time.
	ErrCaptureTimeout = errors.New("capture timed out")
)

// CaptureError is a device-level capture failure.
type CaptureError struct {
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return "capture failed: " + e.Reason
	}
	return fmt.Sprintf("capture failed: %s: %v", e.Reason, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Callback receives the outcome of one TakePicture call. Exactly one method fires per request.
type Callback interface {
	OnCaptureSuccess(frame *types.RawFrame)
	OnError(err error)
}

// Device is a camera that reports results through a Callback.
// On success the callback owns the frame and must Release it.
type Device interface {
	TakePicture(cb Callback)
}
