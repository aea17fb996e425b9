package worker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/andresmejia3/signspell/internal/classifier"
	"github.com/andresmejia3/signspell/internal/types"
)

// MockCloser wraps a bytes.Buffer to satisfy io.ReadCloser and io.WriteCloser interfaces.
// This allows us to use in-memory buffers as if they were OS Pipes.
type MockCloser struct {
	*bytes.Buffer
}

func (m *MockCloser) Close() error { return nil }

// writeFrame appends a length-prefixed frame the way the python side does.
func writeFrame(w io.Writer, body []byte) {
	binary.Write(w, binary.BigEndian, uint32(len(body)))
	w.Write(body)
}

func okScores(scores []float32) []byte {
	payload := new(bytes.Buffer)
	payload.WriteByte(0) // Status OK
	binary.Write(payload, binary.BigEndian, uint32(len(scores)))
	binary.Write(payload, binary.BigEndian, scores)
	return payload.Bytes()
}

func errorBody(msg string) []byte {
	payload := new(bytes.Buffer)
	payload.WriteByte(1) // Status ERROR
	binary.Write(payload, binary.BigEndian, uint32(len(msg)))
	payload.WriteString(msg)
	return payload.Bytes()
}

func TestForward(t *testing.T) {
	// stdinMock simulates the pipe TO Python (we write to it)
	stdinMock := &MockCloser{Buffer: new(bytes.Buffer)}
	// dataPipeMock simulates the pipe FROM Python (we read from it)
	dataPipeMock := &MockCloser{Buffer: new(bytes.Buffer)}

	scores := make([]float32, types.NumClasses)
	scores[7] = 0.93 // 'H'
	writeFrame(dataPipeMock, okScores(scores))

	w := &PythonWorker{
		ID:       1,
		Stdin:    stdinMock,
		DataPipe: dataPipeMock,
		// Cmd is nil because we aren't testing process management, just the protocol
	}

	tensor, err := types.NewInputTensor([]int64{1, 3, 1, 2}, []float32{0, 0.5, 1, 0.25, 0.75, 1})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := w.Forward(tensor)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	// Verify Go sent the correct data TO Python: [len][count][6 floats]
	sent := stdinMock.Bytes()
	if len(sent) != 4+4+6*4 {
		t.Fatalf("Expected %d bytes sent, got %d", 4+4+6*4, len(sent))
	}
	if count := binary.BigEndian.Uint32(sent[4:8]); count != 6 {
		t.Errorf("Expected count 6, got %d", count)
	}
	if v := math.Float32frombits(binary.BigEndian.Uint32(sent[8+4:])); v != 0.5 {
		t.Errorf("Expected second value 0.5, got %v", v)
	}

	// Verify Go read the correct data FROM Python
	if len(resp) != types.NumClasses {
		t.Fatalf("Expected %d scores, got %d", types.NumClasses, len(resp))
	}
	if math.Abs(float64(resp[7])-0.93) > 1e-6 {
		t.Errorf("Expected score[7] approx 0.93, got %f", resp[7])
	}
}

func TestForward_Error(t *testing.T) {
	stdinMock := &MockCloser{Buffer: new(bytes.Buffer)}
	dataPipeMock := &MockCloser{Buffer: new(bytes.Buffer)}

	errMsg := "RuntimeError: shape mismatch"
	writeFrame(dataPipeMock, errorBody(errMsg))

	w := &PythonWorker{ID: 1, Stdin: stdinMock, DataPipe: dataPipeMock}
	tensor, _ := types.NewInputTensor([]int64{1}, []float32{0})

	_, err := w.Forward(tensor)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if err.Error() != "python worker error: "+errMsg {
		t.Errorf("Expected error message '%s', got '%v'", "python worker error: "+errMsg, err)
	}
}

func TestForward_Malformed(t *testing.T) {
	dataPipeMock := &MockCloser{Buffer: new(bytes.Buffer)}
	body := okScores([]float32{1, 2, 3})
	writeFrame(dataPipeMock, body[:len(body)-2]) // truncated payload

	w := &PythonWorker{ID: 1, Stdin: &MockCloser{Buffer: new(bytes.Buffer)}, DataPipe: dataPipeMock}
	tensor, _ := types.NewInputTensor([]int64{1}, []float32{0})

	if _, err := w.Forward(tensor); err == nil {
		t.Fatal("Expected malformed payload error, got nil")
	}
}

func TestForward_CrashedWorker(t *testing.T) {
	// Nothing on the data pipe: the child died before answering
	w := &PythonWorker{
		ID:       2,
		Stdin:    &MockCloser{Buffer: new(bytes.Buffer)},
		DataPipe: &MockCloser{Buffer: new(bytes.Buffer)},
	}
	tensor, _ := types.NewInputTensor([]int64{1}, []float32{0})

	if _, err := w.Forward(tensor); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestHandshake(t *testing.T) {
	tests := []struct {
		name      string
		frame     []byte
		noFrame   bool
		wantErr   bool
		wantModel bool
	}{
		{name: "Ready", frame: []byte{0}},
		{name: "Model missing", frame: errorBody("No such file: letter_classifier.ptl"), wantErr: true, wantModel: true},
		{name: "Crash before ready", noFrame: true, wantErr: true, wantModel: true},
		{name: "Empty frame", frame: []byte{}, wantErr: true, wantModel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipe := &MockCloser{Buffer: new(bytes.Buffer)}
			if !tt.noFrame {
				writeFrame(pipe, tt.frame)
			}
			w := &PythonWorker{ID: 3, DataPipe: pipe}

			err := w.handshake()
			if (err != nil) != tt.wantErr {
				t.Fatalf("handshake() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantModel && !errors.Is(err, classifier.ErrModelLoad) {
				t.Errorf("Expected ErrModelLoad, got %v", err)
			}
		})
	}
}

// blockingReader never returns, like a hung child process.
type blockingReader struct{ block chan struct{} }

func (b *blockingReader) Read([]byte) (int, error) { <-b.block; return 0, io.EOF }
func (b *blockingReader) Close() error             { return nil }

func TestReadTimeout(t *testing.T) {
	br := &blockingReader{block: make(chan struct{})}
	defer close(br.block)

	w := &PythonWorker{
		ID:          4,
		Stdin:       &MockCloser{Buffer: new(bytes.Buffer)},
		DataPipe:    br,
		ReadTimeout: 10 * time.Millisecond,
	}
	tensor, _ := types.NewInputTensor([]int64{1}, []float32{0})

	if _, err := w.Forward(tensor); err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}
