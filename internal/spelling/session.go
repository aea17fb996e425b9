// Package spelling tracks progress through a spelling quiz one decoded sign at a time.
package spelling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresmejia3/signspell/internal/types"
)

const (
	QuizType  = "Spelling"
	TotalType = "Total"
)

var (
	ErrQuizFinished      = errors.New("spelling quiz has no questions left")
	ErrUndefinedLabel    = errors.New("undefined label cannot be matched")
	ErrNoQuestions       = errors.New("spelling quiz needs at least one question")
	ErrUnspellableAnswer = errors.New("answer must contain only letters A-Z")
)

// State of the per-question machine.
type State int

const (
	AwaitingInput State = iota
	Completed
	Finished
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting input"
	case Completed:
		return "completed"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome of a single Submit.
type Outcome int

const (
	Mismatch Outcome = iota
	Match
	QuestionComplete
)

// Result describes what one symbol did to the session.
type Result struct {
	Outcome  Outcome
	Expected rune
	Got      types.ClassLabel
	Cursor   int    // cursor after the symbol was applied
	Display  string // matched prefix after the symbol was applied
}

// StatsRecorder persists per-user attempt counters.
type StatsRecorder interface {
	UpdateStats(ctx context.Context, user, quizType string, correctDelta, totalDelta int) error
}

// Countdown controls the pause shown between questions.
type Countdown struct {
	Pause time.Duration // before the first message
	Step  time.Duration // between messages
	Steps int
}

// DefaultCountdown is a 2s pause followed by "next question in 3", "2", "1" at 1s intervals.
var DefaultCountdown = Countdown{Pause: 2 * time.Second, Step: time.Second, Steps: 3}

// Session is a quiz over an ordered list of questions. It is not safe for concurrent use.
type Session struct {
	questions []types.SpellingQuestion
	index     int
	state     State
	display   []rune

	correct int
	total   int

	stats     StatsRecorder
	user      string
	show      func(string)
	complete  func(Result)
	sleep     func(ctx context.Context, d time.Duration) error
	countdown Countdown
}

// Option configures a Session.
type Option func(*Session)

// WithStats reports every evaluated symbol for user.
func WithStats(rec StatsRecorder, user string) Option {
	return func(s *Session) {
		s.stats = rec
		s.user = user
	}
}

// WithDisplay receives the display buffer and countdown messages.
func WithDisplay(show func(string)) Option {
	return func(s *Session) { s.show = show }
}

// WithCompletion is called when a question is spelled, before the countdown starts.
func WithCompletion(fn func(Result)) Option {
	return func(s *Session) { s.complete = fn }
}

// WithSleep replaces the wall-clock wait used by the countdown.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Session) { s.sleep = sleep }
}

func WithCountdown(c Countdown) Option {
	return func(s *Session) { s.countdown = c }
}

// NewSession copies questions, upper-cases their answers and resets their cursors.
func NewSession(questions []types.SpellingQuestion, opts ...Option) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	s := &Session{
		questions: make([]types.SpellingQuestion, len(questions)),
		show:      func(string) {},
		complete:  func(Result) {},
		sleep:     sleepContext,
		countdown: DefaultCountdown,
	}
	for i, q := range questions {
		q.Answer = strings.ToUpper(strings.TrimSpace(q.Answer))
		if q.Answer == "" {
			return nil, fmt.Errorf("question %d (%q) has an empty answer", i, q.Prompt)
		}
		if !spellable(q.Answer) {
			return nil, fmt.Errorf("question %d (%q): %w, got %q", i, q.Prompt, ErrUnspellableAnswer, q.Answer)
		}
		q.Cursor, q.Correct, q.Total = 0, 0, 0
		s.questions[i] = q
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// spellable reports whether every byte is an upper-case ASCII letter.
func spellable(answer string) bool {
	for i := 0; i < len(answer); i++ {
		if answer[i] < 'A' || answer[i] > 'Z' {
			return false
		}
	}
	return true
}

// Submit applies one decoded symbol to the current question.
// On completion it calls the completion hook, runs the countdown and advances before returning.
// A stats failure is returned alongside a valid Result; the in-memory update has already happened.
func (s *Session) Submit(ctx context.Context, label types.ClassLabel) (Result, error) {
	if s.state == Finished {
		return Result{}, ErrQuizFinished
	}
	if label == types.LabelUndefined {
		return Result{}, ErrUndefinedLabel
	}

	q := &s.questions[s.index]
	expected := rune(q.Answer[q.Cursor])
	res := Result{Expected: expected, Got: label}

	q.Total++
	s.total++
	correctDelta := 0
	if label.IsLetter() && label.Letter() == expected {
		correctDelta = 1
		q.Correct++
		s.correct++
		q.Cursor++
		s.display = append(s.display, expected)
		res.Outcome = Match
		if q.Cursor == len(q.Answer) {
			res.Outcome = QuestionComplete
			s.state = Completed
		}
		s.show(string(s.display))
	} else {
		res.Outcome = Mismatch
	}
	res.Cursor = q.Cursor
	res.Display = string(s.display)

	statsErr := s.record(ctx, correctDelta)

	if s.state == Completed {
		s.complete(res)
		if err := s.runCountdown(ctx); err != nil {
			s.advance()
			return res, err
		}
		s.advance()
	}
	return res, statsErr
}

func (s *Session) record(ctx context.Context, correctDelta int) error {
	if s.stats == nil {
		return nil
	}
	var errs []error
	for _, quizType := range []string{QuizType, TotalType} {
		if err := s.stats.UpdateStats(ctx, s.user, quizType, correctDelta, 1); err != nil {
			errs = append(errs, fmt.Errorf("record %s stats: %w", quizType, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) runCountdown(ctx context.Context) error {
	c := s.countdown
	if err := s.sleep(ctx, c.Pause); err != nil {
		return err
	}
	for i := c.Steps; i > 0; i-- {
		s.show(fmt.Sprintf("next question in %d", i))
		if err := s.sleep(ctx, c.Step); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) advance() {
	s.display = s.display[:0]
	s.show("")
	s.index++
	if s.index >= len(s.questions) {
		s.index = len(s.questions) - 1
		s.state = Finished
		return
	}
	s.state = AwaitingInput
}

func (s *Session) State() State { return s.state }

// Current returns a copy of the active question. After the quiz finishes it is the last question.
func (s *Session) Current() types.SpellingQuestion { return s.questions[s.index] }

// Index is the position of the active question.
func (s *Session) Index() int { return s.index }

func (s *Session) Len() int { return len(s.questions) }

func (s *Session) Display() string { return string(s.display) }

func (s *Session) Correct() int { return s.correct }

func (s *Session) Total() int { return s.total }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
