package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/andresmejia3/signspell/internal/classifier"
	"github.com/andresmejia3/signspell/internal/types"
	"github.com/andresmejia3/signspell/internal/utils" // Using the SafeCommand wrapper
)

const (
	statusOK    byte = 0
	statusError byte = 1

	// maxResponse guards against reading a garbage length header
	maxResponse = 16 * 1024 * 1024
)

// Config controls the python inference process.
type Config struct {
	Script      string        // default python/classifier_worker.py
	ModelPath   string        // TorchScript (.ptl) artifact
	ReadTimeout time.Duration // per response; 0 disables
}

// PythonWorker runs the TorchScript classifier in a child process and implements classifier.Classifier.
type PythonWorker struct {
	ID          int
	Cmd         *utils.SafeCommand
	Stdin       io.WriteCloser
	DataPipe    io.ReadCloser
	ReadTimeout time.Duration
}

// NewPythonWorker starts the child and waits for it to report that the model loaded.
// A model that cannot be loaded yields classifier.ErrModelLoad.
func NewPythonWorker(ctx context.Context, id int, cfg Config) (*PythonWorker, error) {
	script := cfg.Script
	if script == "" {
		script = "python/classifier_worker.py"
	}

	// 1. Initialize the SafeCommand
	py := utils.NewSafeCommand(ctx, "python3", "-u", script, "--model", cfg.ModelPath)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close() // Prevent FD leak
		r.Close() // Close read-end too!
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close() // Close write end if start fails
		r.Close() // Close read-end too!
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	worker := &PythonWorker{
		ID:          id,
		Cmd:         py,
		Stdin:       stdin,
		DataPipe:    r,
		ReadTimeout: cfg.ReadTimeout,
	}

	if err := worker.handshake(); err != nil {
		worker.Close()
		return nil, err
	}
	return worker, nil
}

// handshake reads the child's first frame: status OK once the model is loaded, or an error message.
func (w *PythonWorker) handshake() error {
	body, err := w.readFrame()
	if err != nil {
		return fmt.Errorf("%w: worker %d exited before reporting ready: %v", classifier.ErrModelLoad, w.ID, err)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: empty handshake from worker %d", classifier.ErrModelLoad, w.ID)
	}
	if body[0] != statusOK {
		return fmt.Errorf("%w: %v", classifier.ErrModelLoad, decodeError(body))
	}
	return nil
}

// Forward sends the tensor and reads back the score vector.
// Protocol: [Length][Count][Float32 * Count], all big endian.
func (w *PythonWorker) Forward(tensor *types.InputTensor) (types.ScoreVector, error) {
	data := tensor.Data()
	payload := make([]byte, 4+4*len(data))
	binary.BigEndian.PutUint32(payload, uint32(len(data)))
	for i, v := range data {
		binary.BigEndian.PutUint32(payload[4+4*i:], math.Float32bits(v))
	}

	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(payload))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(payload); err != nil {
		return nil, err
	}

	body, err := w.readFrame()
	if err != nil {
		return nil, err
	}
	return decodeScores(body)
}

// readFrame reads one length-prefixed frame from the data pipe, honouring ReadTimeout.
func (w *PythonWorker) readFrame() ([]byte, error) {
	if w.ReadTimeout <= 0 {
		return readFrame(w.DataPipe)
	}

	type frame struct {
		body []byte
		err  error
	}
	done := make(chan frame, 1)
	go func() {
		body, err := readFrame(w.DataPipe)
		done <- frame{body, err}
	}()

	select {
	case f := <-done:
		return f.body, f.err
	case <-time.After(w.ReadTimeout):
		// Kill the child so the blocked reader unblocks
		if w.Cmd != nil && w.Cmd.Process != nil {
			w.Cmd.Process.Kill()
		}
		return nil, fmt.Errorf("worker %d timed out after %s", w.ID, w.ReadTimeout)
	}
}

func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err // This is where we catch a python crash (e.g. ModuleNotFoundError)
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponse {
		return nil, fmt.Errorf("response length %d exceeds limit", respLen)
	}
	body := make([]byte, respLen)
	_, err := io.ReadFull(r, body)
	return body, err
}

// decodeScores parses [Status:0][Count][Float32...] or [Status:1][MsgLen][Msg].
func decodeScores(body []byte) (types.ScoreVector, error) {
	if len(body) == 0 {
		return nil, errors.New("empty response from python worker")
	}
	if body[0] != statusOK {
		return nil, decodeError(body)
	}

	rd := bytes.NewReader(body[1:])
	var count uint32
	if err := binary.Read(rd, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("malformed score header: %w", err)
	}
	if int(count)*4 != rd.Len() {
		return nil, fmt.Errorf("malformed scores: header says %d, payload holds %d bytes", count, rd.Len())
	}
	raw := make([]float32, count)
	if err := binary.Read(rd, binary.BigEndian, raw); err != nil {
		return nil, err
	}
	return types.ScoreVector(raw), nil
}

func decodeError(body []byte) error {
	rd := bytes.NewReader(body[1:])
	var msgLen uint32
	if err := binary.Read(rd, binary.BigEndian, &msgLen); err != nil || int(msgLen) > rd.Len() {
		return errors.New("python worker error: <malformed message>")
	}
	msg := make([]byte, msgLen)
	_, _ = io.ReadFull(rd, msg)
	return fmt.Errorf("python worker error: %s", msg)
}

func (w *PythonWorker) Close() {
	if w.Stdin != nil {
		w.Stdin.Close()
	}
	if w.DataPipe != nil {
		w.DataPipe.Close()
	}
	if w.Cmd != nil {
		w.Cmd.Wait()
	}
}
