package spelling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresmejia3/signspell/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statCall struct {
	user     string
	quizType string
	correct  int
	total    int
}

type fakeStats struct {
	calls []statCall
	err   error
}

func (f *fakeStats) UpdateStats(_ context.Context, user, quizType string, correct, total int) error {
	f.calls = append(f.calls, statCall{user, quizType, correct, total})
	return f.err
}

// recorder captures everything the session would display and every sleep it asks for.
type recorder struct {
	shown  []string
	sleeps []time.Duration
}

func (r *recorder) options() []Option {
	return []Option{
		WithDisplay(func(s string) { r.shown = append(r.shown, s) }),
		WithSleep(func(_ context.Context, d time.Duration) error {
			r.sleeps = append(r.sleeps, d)
			return nil
		}),
	}
}

func questions(answers ...string) []types.SpellingQuestion {
	qs := make([]types.SpellingQuestion, len(answers))
	for i, a := range answers {
		qs[i] = types.SpellingQuestion{ID: i + 1, Prompt: "Spell " + a, Answer: a}
	}
	return qs
}

func letter(r rune) types.ClassLabel { return types.LabelForLetter(r) }

func TestSpellCat(t *testing.T) {
	rec := &recorder{}
	s, err := NewSession(questions("CAT", "DOG"), rec.options()...)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := s.Submit(ctx, letter('C'))
	require.NoError(t, err)
	assert.Equal(t, Match, res.Outcome)
	assert.Equal(t, 1, res.Cursor)
	assert.Equal(t, "C", res.Display)
	assert.Equal(t, 1, s.Correct())
	assert.Equal(t, 1, s.Total())

	res, err = s.Submit(ctx, letter('A'))
	require.NoError(t, err)
	assert.Equal(t, Match, res.Outcome)
	assert.Equal(t, 2, res.Cursor)
	assert.Equal(t, 2, s.Correct())
	assert.Equal(t, 2, s.Total())

	res, err = s.Submit(ctx, letter('t'))
	require.NoError(t, err)
	assert.Equal(t, QuestionComplete, res.Outcome)
	assert.Equal(t, 3, res.Cursor)
	assert.Equal(t, "CAT", res.Display)
	assert.Equal(t, 3, s.Correct())
	assert.Equal(t, 3, s.Total())

	// Countdown ran and the session moved to DOG with a fresh cursor
	assert.Equal(t, []string{"C", "CA", "CAT", "next question in 3", "next question in 2", "next question in 1", ""}, rec.shown)
	assert.Equal(t, []time.Duration{2 * time.Second, time.Second, time.Second, time.Second}, rec.sleeps)
	assert.Equal(t, AwaitingInput, s.State())
	assert.Equal(t, "DOG", s.Current().Answer)
	assert.Equal(t, 0, s.Current().Cursor)
	assert.Equal(t, "", s.Display())
}

func TestMismatchKeepsCursor(t *testing.T) {
	s, err := NewSession(questions("DOG"), (&recorder{}).options()...)
	require.NoError(t, err)

	res, err := s.Submit(context.Background(), letter('X'))
	require.NoError(t, err)
	assert.Equal(t, Mismatch, res.Outcome)
	assert.Equal(t, 'D', res.Expected)
	assert.Equal(t, 0, res.Cursor)
	assert.Equal(t, 0, s.Correct())
	assert.Equal(t, 1, s.Total())
	assert.Equal(t, 1, s.Current().Total)
	assert.Equal(t, AwaitingInput, s.State())
}

func TestControlLabelsNeverMatch(t *testing.T) {
	s, err := NewSession(questions("EAT"), (&recorder{}).options()...)
	require.NoError(t, err)

	for _, l := range []types.ClassLabel{types.LabelDelete, types.LabelEmpty, types.LabelSpace} {
		res, err := s.Submit(context.Background(), l)
		require.NoError(t, err)
		assert.Equal(t, Mismatch, res.Outcome, l.String())
	}
	assert.Equal(t, 0, s.Current().Cursor)
	assert.Equal(t, 0, s.Correct())
	assert.Equal(t, 3, s.Total())
}

func TestUndefinedLabelLeavesCounters(t *testing.T) {
	stats := &fakeStats{}
	s, err := NewSession(questions("COW"), append((&recorder{}).options(), WithStats(stats, "Guest"))...)
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), types.LabelUndefined)
	assert.ErrorIs(t, err, ErrUndefinedLabel)
	assert.Equal(t, 0, s.Total())
	assert.Empty(t, stats.calls)
}

func TestFinishedAfterLastQuestion(t *testing.T) {
	rec := &recorder{}
	s, err := NewSession(questions("ox"), rec.options()...)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Submit(ctx, letter('O'))
	require.NoError(t, err)
	res, err := s.Submit(ctx, letter('X'))
	require.NoError(t, err)
	assert.Equal(t, QuestionComplete, res.Outcome)
	assert.Equal(t, Finished, s.State())

	_, err = s.Submit(ctx, letter('O'))
	assert.ErrorIs(t, err, ErrQuizFinished)
	assert.Equal(t, 2, s.Total())
}

func TestStatsReported(t *testing.T) {
	stats := &fakeStats{}
	s, err := NewSession(questions("MOM"), append((&recorder{}).options(), WithStats(stats, "alice"))...)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Submit(ctx, letter('M'))
	require.NoError(t, err)
	_, err = s.Submit(ctx, letter('A'))
	require.NoError(t, err)

	assert.Equal(t, []statCall{
		{"alice", "Spelling", 1, 1},
		{"alice", "Total", 1, 1},
		{"alice", "Spelling", 0, 1},
		{"alice", "Total", 0, 1},
	}, stats.calls)
}

func TestStatsFailureKeepsProgress(t *testing.T) {
	stats := &fakeStats{err: errors.New("connection refused")}
	s, err := NewSession(questions("DAD"), append((&recorder{}).options(), WithStats(stats, "Guest"))...)
	require.NoError(t, err)

	res, err := s.Submit(context.Background(), letter('D'))
	require.Error(t, err)
	assert.ErrorIs(t, err, stats.err)
	assert.Equal(t, Match, res.Outcome)
	assert.Equal(t, 1, s.Current().Cursor)
}

func TestCountdownCancelledStillAdvances(t *testing.T) {
	s, err := NewSession(questions("A", "B"),
		WithSleep(func(context.Context, time.Duration) error { return context.Canceled }),
	)
	require.NoError(t, err)

	res, err := s.Submit(context.Background(), letter('A'))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, QuestionComplete, res.Outcome)
	assert.Equal(t, 1, s.Index())
	assert.Equal(t, AwaitingInput, s.State())
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(nil)
	assert.ErrorIs(t, err, ErrNoQuestions)

	_, err = NewSession(questions("CAT", "  "))
	assert.Error(t, err)

	s, err := NewSession([]types.SpellingQuestion{{Prompt: "Spell Bird", Answer: "bird", Cursor: 3, Total: 9}})
	require.NoError(t, err)
	assert.Equal(t, "BIRD", s.Current().Answer)
	assert.Equal(t, 0, s.Current().Cursor)
	assert.Equal(t, 0, s.Current().Total)
}

func TestNewSessionRejectsUnspellableAnswers(t *testing.T) {
	tests := []struct {
		answer  string
		wantErr bool
	}{
		{"cat", false},
		{" Dog ", false},
		{"ICE CREAM", true},
		{"R2D2", true},
		{"CAFÉ", true},
		{"DON'T", true},
		{"A-Z", true},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			_, err := NewSession(questions(tt.answer))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnspellableAnswer)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCompletionBeforeCountdown(t *testing.T) {
	var events []string
	var completed Result
	s, err := NewSession(questions("HI", "OK"),
		WithDisplay(func(msg string) { events = append(events, msg) }),
		WithSleep(func(context.Context, time.Duration) error { return nil }),
		WithCompletion(func(res Result) {
			completed = res
			events = append(events, "complete "+res.Display)
		}),
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Submit(ctx, letter('H'))
	require.NoError(t, err)
	assert.Equal(t, []string{"H"}, events, "hook fired before the question was done")

	res, err := s.Submit(ctx, letter('I'))
	require.NoError(t, err)
	assert.Equal(t, res, completed)
	assert.Equal(t, []string{"H", "HI", "complete HI", "next question in 3", "next question in 2", "next question in 1", ""}, events)
}
