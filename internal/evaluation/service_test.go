package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/voxa/internal/difficulty"
	"github.com/abhisek/voxa/internal/feedback"
	"github.com/abhisek/voxa/internal/progression"
	"github.com/abhisek/voxa/internal/scoring"
	"github.com/abhisek/voxa/internal/session"
	"github.com/abhisek/voxa/internal/signals"
	"github.com/abhisek/voxa/internal/store"
)

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewService(progression.New(s.LedgerRepo(), progression.Options{}), opts)
}

func TestEvaluateCommits(t *testing.T) {
	svc := newTestService(t, Options{})

	res, err := svc.Evaluate(context.Background(), Request{
		UserID:     "alice",
		Transcript: "Hi",
		Tone:       "confident",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, "alice", res.UserID)
	assert.Equal(t, difficulty.Easy, res.Difficulty)
	assert.Equal(t, scoring.ScoreSet{Grammar: 100, Tone: 100, Fluency: 2, Experience: 67}, res.Scores)
	assert.False(t, res.Duplicate)
	assert.EqualValues(t, 1, res.Sequence)
	require.NotNil(t, res.Progression)
	assert.EqualValues(t, 67, res.Progression.TotalExperience)
	assert.Equal(t, 1, res.Progression.Level)
	assert.Equal(t, signals.Default(), res.Signals)
	assert.False(t, res.SignalsEstimated)
}

func TestEvaluateDuplicateIsReported(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()
	req := Request{
		UserID:        "bob",
		Transcript:    "I have been practicing my presentation every day",
		GrammarIssues: []string{"missing article"},
		Tone:          "neutral",
	}

	first, err := svc.Evaluate(ctx, req)
	require.NoError(t, err)

	second, err := svc.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Zero(t, second.Sequence)
	require.NotNil(t, second.Progression)
	assert.Equal(t, first.Progression.TotalExperience, second.Progression.TotalExperience)
	assert.Equal(t, 1, second.Progression.SessionCount)
	assert.Equal(t, first.Report, second.Report)
}

func TestEvaluateInvalidInput(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
	}{
		{"missing user", Request{Transcript: "hello"}},
		{"blank transcript", Request{UserID: "u", Transcript: "   "}},
		{"signals out of range", Request{UserID: "u", Transcript: "hello", Signals: &signals.EmotionalSignals{Empathy: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Evaluate(ctx, tt.req)
			assert.ErrorIs(t, err, progression.ErrInvalidInput)
		})
	}
}

func TestEvaluateEstimatesSignals(t *testing.T) {
	svc := newTestService(t, Options{EstimateSignals: true})
	ctx := context.Background()
	transcript := "I understand how you feel and I appreciate your patience."

	res, err := svc.Evaluate(ctx, Request{UserID: "carol", Transcript: transcript, Tone: "neutral"})
	require.NoError(t, err)
	assert.True(t, res.SignalsEstimated)
	assert.Equal(t, signals.Estimate(transcript), res.Signals)

	supplied := signals.EmotionalSignals{Empathy: 0.9, Pacing: signals.PacingFast, Clarity: signals.ClarityHigh}
	res, err = svc.Evaluate(ctx, Request{UserID: "carol", Transcript: "Another take on it", Tone: "neutral", Signals: &supplied})
	require.NoError(t, err)
	assert.False(t, res.SignalsEstimated)
	assert.Equal(t, supplied, res.Signals)
	assert.Contains(t, res.Report.Improvements, feedback.NoteSlowDown)
}

func TestPreviewQuotesGrammarIssues(t *testing.T) {
	svc := NewService(nil, Options{})

	res := svc.Preview(Request{
		Transcript:    "Me and him goes to the store yesterday",
		GrammarIssues: []string{"missing comma", "subject-verb"},
		Tone:          "sarcastic",
	})

	assert.Equal(t, 60, res.Scores.Grammar)
	assert.Equal(t, 50, res.Scores.Tone)
	assert.Equal(t, difficulty.Medium, res.Difficulty)
	assert.Equal(t, "minor issues", res.Metrics.GrammarRating)
	assert.Equal(t, 8, res.Metrics.WordCount)
	assert.Contains(t, res.Report.Improvements, feedback.NoteGrammarSlipsPrefix+"missing comma, subject-verb")
	assert.Nil(t, res.Progression)
}

func TestEvaluateStorageFailure(t *testing.T) {
	boom := &progression.StorageError{Op: "commit", Err: errors.New("disk full")}
	svc := NewService(failingLedger{err: boom}, Options{})

	_, err := svc.Evaluate(context.Background(), Request{UserID: "u", Transcript: "hello there"})
	var se *progression.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "commit", se.Op)
}

func TestEvaluateCanceledContext(t *testing.T) {
	svc := NewService(failingLedger{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Evaluate(ctx, Request{UserID: "u", Transcript: "hello there"})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingLedger struct{ err error }

func (f failingLedger) Commit(context.Context, string, session.Facts, difficulty.Tier, scoring.ScoreSet) (progression.SessionRecord, progression.ProgressionState, error) {
	return progression.SessionRecord{}, progression.ProgressionState{}, f.err
}

func (f failingLedger) GetProgression(context.Context, string) (progression.ProgressionState, error) {
	return progression.ProgressionState{}, f.err
}
