// Package speech reads quiz text aloud.
package speech

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/andresmejia3/signspell/internal/utils"
)

// Speaker accepts plain text for audible readback.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// ESpeak shells out to the espeak binary.
type ESpeak struct {
	Binary string // default "espeak"
	Voice  string // optional -v value
	Speed  int    // words per minute, 0 keeps espeak's default
}

// Args builds the espeak command line for text.
func (e *ESpeak) Args(text string) []string {
	var args []string
	if e.Voice != "" {
		args = append(args, "-v", e.Voice)
	}
	if e.Speed > 0 {
		args = append(args, "-s", fmt.Sprint(e.Speed))
	}
	// "--" stops a leading dash in text from being read as a flag
	return append(args, "--", text)
}

func (e *ESpeak) binary() string {
	if e.Binary == "" {
		return "espeak"
	}
	return e.Binary
}

func (e *ESpeak) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	cmd := utils.NewSafeCommand(ctx, e.binary(), e.Args(text)...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("espeak: %w: %s", err, strings.TrimSpace(cmd.Stderr.String()))
	}
	return nil
}

// Writer prints the text instead of speaking it.
type Writer struct {
	W io.Writer
}

func (w *Writer) Speak(_ context.Context, text string) error {
	_, err := fmt.Fprintf(w.W, "🔊 %s\n", text)
	return err
}

// Default returns espeak when it is on PATH, otherwise a Writer on fallback.
func Default(fallback io.Writer) Speaker {
	if _, err := exec.LookPath("espeak"); err == nil {
		return &ESpeak{}
	}
	return &Writer{W: fallback}
}
