package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/andresmejia3/signspell/internal/notify"
	"github.com/andresmejia3/signspell/internal/speech"
	"github.com/andresmejia3/signspell/internal/spelling"
	"github.com/andresmejia3/signspell/internal/types"
	"github.com/andresmejia3/signspell/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var spellCmd = &cobra.Command{
	Use:   "spell",
	Short: "Run the spelling quiz, one signed letter per Enter",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSpell(cmd.Context(), opts); err != nil {
			utils.Die("Spelling quiz failed", err, nil)
		}
	},
}

func init() {
	rootCmd.AddCommand(spellCmd)
}

// runSpell feeds classifier output into a spelling session until the questions run out or the user quits.
func runSpell(ctx context.Context, o Options) error {
	// 1. Database is initialized in Root PersistentPreRun
	questions, err := DB.Questions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}

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

	bar := progressbar.NewOptions(len(questions),
		progressbar.OptionSetDescription("📝 Spelling"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)

	session, err := spelling.NewSession(questions,
		spelling.WithStats(DB, o.User),
		spelling.WithDisplay(func(s string) {
			if s != "" {
				fmt.Printf("   %s\n", s)
			}
		}),
		spelling.WithCompletion(func(res spelling.Result) {
			announce(ctx, res, notifier, speaker)
			bar.Add(1)
		}),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "👤 Playing as %s. Press Enter to capture a sign, 'q' to quit.\n", o.User)
	reader := bufio.NewReader(os.Stdin)

	for session.State() != spelling.Finished {
		q := session.Current()
		fmt.Printf("\n❓ %s  %s\n", q.Prompt, progressMask(q))

		line, err := reader.ReadString('\n')
		input := strings.TrimSpace(strings.ToLower(line))
		if input == "q" || input == "quit" || (err != nil && input == "") {
			break
		}

		res, submitted, err := spellTurn(ctx, p, session)
		if !submitted {
			if ctx.Err() != nil {
				break
			}
			reportClassifyError(err, notifier)
			continue
		}
		if errors.Is(err, spelling.ErrQuizFinished) {
			break
		}
		if errors.Is(err, spelling.ErrUndefinedLabel) {
			reportClassifyError(err, notifier)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			utils.ShowError("Failed to record stats", err, nil)
		}

		// Completed questions were announced by the completion hook
		if res.Outcome != spelling.QuestionComplete {
			announce(ctx, res, notifier, speaker)
		}
	}

	bar.Finish()
	summary := fmt.Sprintf("%s scored %d / %d", o.User, session.Correct(), session.Total())
	fmt.Printf("\n🏁 %s\n", summary)
	notifier.Info(summary)
	return nil
}

// labeler yields one classified sign per call; see pipeline.Pipeline.
type labeler interface {
	Classify(ctx context.Context) (types.ClassLabel, error)
}

// spellTurn classifies one capture and submits it to the session.
// submitted is false when classification failed, in which case the session was not touched.
func spellTurn(ctx context.Context, p labeler, s *spelling.Session) (res spelling.Result, submitted bool, err error) {
	label, err := p.Classify(ctx)
	if err != nil {
		return spelling.Result{}, false, err
	}
	res, err = s.Submit(ctx, label)
	return res, true, err
}

func announce(ctx context.Context, res spelling.Result, n *notify.Notifier, speaker speech.Speaker) {
	switch res.Outcome {
	case spelling.Mismatch:
		fmt.Printf("❌ Saw %s, expected %c\n", res.Got, res.Expected)
		n.Incorrect(res.Got.String(), string(res.Expected))
	case spelling.Match:
		fmt.Printf("✅ %c\n", res.Expected)
		n.Correct(string(res.Expected))
	case spelling.QuestionComplete:
		fmt.Printf("🎉 %s\n", res.Display)
		n.Complete(res.Display)
	}
	if speaker != nil && res.Outcome != spelling.Mismatch {
		if err := speaker.Speak(ctx, res.Display); err != nil {
			utils.ShowError("Speech failed", err, nil)
		}
	}
}

// progressMask renders the answer with unmatched letters hidden, e.g. "C _ _".
func progressMask(q types.SpellingQuestion) string {
	parts := make([]string, len(q.Answer))
	for i, r := range q.Answer {
		if i < q.Cursor {
			parts[i] = string(r)
		} else {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, " ")
}
