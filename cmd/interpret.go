package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/andresmejia3/signspell/internal/capture"
	"github.com/andresmejia3/signspell/internal/notify"
	"github.com/andresmejia3/signspell/internal/pipeline"
	"github.com/andresmejia3/signspell/internal/speech"
	"github.com/andresmejia3/signspell/internal/types"
	"github.com/andresmejia3/signspell/internal/utils"
	"github.com/spf13/cobra"
)

var interpretCmd = &cobra.Command{
	Use:         "interpret",
	Short:       "Classify one hand sign per Enter and build up a transcript",
	Annotations: map[string]string{skipDB: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInterpret(cmd.Context(), opts); err != nil {
			utils.Die("Interpret failed", err, nil)
		}
	},
}

func init() {
	rootCmd.AddCommand(interpretCmd)
}

func runInterpret(ctx context.Context, o Options) error {
	p, model, err := buildPipeline(ctx, o)
	if err != nil {
		return err
	}
	defer model.Close()

	var speaker speech.Speaker
	if o.Speak {
		speaker = speech.Default(os.Stdout)
	}
	notifier := notify.New(o.Notify)

	fmt.Fprintln(os.Stderr, "✋ Press Enter to capture a sign, 's' to speak the transcript, 'q' to quit.")
	reader := bufio.NewReader(os.Stdin)
	var transcript []rune

	for {
		line, err := reader.ReadString('\n')
		cmdText := strings.TrimSpace(strings.ToLower(line))
		if err != nil && cmdText == "" {
			return nil // stdin closed
		}
		switch cmdText {
		case "q", "quit":
			return nil
		case "s", "speak":
			if speaker != nil {
				if err := speaker.Speak(ctx, string(transcript)); err != nil {
					utils.ShowError("Speech failed", err, nil)
				}
			}
			continue
		}

		label, err := p.Classify(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			reportClassifyError(err, notifier)
			continue
		}

		transcript = applyToTranscript(transcript, label)
		fmt.Printf("🔤 %-9s │ %s\n", label, string(transcript))
		if speaker != nil && label.IsLetter() {
			if err := speaker.Speak(ctx, label.String()); err != nil {
				utils.ShowError("Speech failed", err, nil)
			}
		}
	}
}

// applyToTranscript appends letters and spaces, drops the last rune on delete, and ignores empty.
func applyToTranscript(transcript []rune, label types.ClassLabel) []rune {
	switch {
	case label.IsLetter():
		return append(transcript, label.Letter())
	case label == types.LabelSpace:
		return append(transcript, ' ')
	case label == types.LabelDelete && len(transcript) > 0:
		return transcript[:len(transcript)-1]
	}
	return transcript
}

// reportClassifyError prints a transient warning. Nothing else changes state on failure.
func reportClassifyError(err error, n *notify.Notifier) {
	msg := "Classification failed"
	switch {
	case errors.Is(err, capture.ErrCaptureBusy):
		msg = "A capture is already in flight"
	case errors.Is(err, capture.ErrBufferPoolExhausted):
		msg = "Capture device has no free buffers"
	case errors.Is(err, capture.ErrCaptureTimeout):
		msg = "Capture timed out"
	case errors.Is(err, pipeline.ErrDecodeUndefined):
		msg = "Model output did not map to a sign"
	}
	fmt.Fprintf(os.Stderr, "⚠️  %s: %v\n", msg, err)
	n.Error(msg)
}
