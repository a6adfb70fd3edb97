// Package evaluation runs one practice session through the pipeline:
// classify and score, synthesize coaching feedback, then commit the session
// to the progression ledger.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/voxa/internal/difficulty"
	"github.com/abhisek/voxa/internal/feedback"
	"github.com/abhisek/voxa/internal/logging"
	"github.com/abhisek/voxa/internal/observe"
	"github.com/abhisek/voxa/internal/progression"
	"github.com/abhisek/voxa/internal/scoring"
	"github.com/abhisek/voxa/internal/session"
	"github.com/abhisek/voxa/internal/signals"
)

// Ledger is the part of the progression ledger the pipeline commits to.
type Ledger interface {
	Commit(ctx context.Context, userID string, facts session.Facts, tier difficulty.Tier, scores scoring.ScoreSet) (progression.SessionRecord, progression.ProgressionState, error)
	GetProgression(ctx context.Context, userID string) (progression.ProgressionState, error)
}

// Request is one session submitted for evaluation.
type Request struct {
	RequestID     string                    `json:"request_id,omitempty"`
	UserID        string                    `json:"user_id"`
	Transcript    string                    `json:"transcript"`
	GrammarIssues []string                  `json:"grammar_issues"`
	Tone          string                    `json:"tone"`
	Signals       *signals.EmotionalSignals `json:"signals,omitempty"`
}

// Metrics is the supplementary metrics block reported with a result. It
// never feeds experience.
type Metrics struct {
	WordCount       int    `json:"word_count"`
	SentenceFluency int    `json:"sentence_fluency"`
	GrammarRating   string `json:"grammar_rating"`
}

// Result is the outcome of evaluating one session.
type Result struct {
	RequestID        string                   `json:"request_id"`
	UserID           string                   `json:"user_id,omitempty"`
	Difficulty       difficulty.Tier          `json:"difficulty"`
	Scores           scoring.ScoreSet         `json:"scores"`
	Metrics          Metrics                  `json:"metrics"`
	Signals          signals.EmotionalSignals `json:"signals"`
	SignalsEstimated bool                     `json:"signals_estimated"`
	Report           feedback.Report          `json:"feedback"`

	// Set by Evaluate only.
	Sequence    int64                         `json:"sequence,omitempty"`
	Duplicate   bool                          `json:"duplicate"`
	Progression *progression.ProgressionState `json:"progression,omitempty"`
}

// Options configures a Service.
type Options struct {
	// EstimateSignals derives emotional signals from the transcript when a
	// request carries none.
	EstimateSignals bool

	Metrics *observe.Metrics
	Logger  *logging.Logger
}

// Service evaluates sessions. It is safe for concurrent use.
type Service struct {
	ledger   Ledger
	estimate bool
	metrics  *observe.Metrics
	log      *logging.Logger
}

// NewService creates a Service committing to ledger.
func NewService(ledger Ledger, opts Options) *Service {
	s := &Service{
		ledger:   ledger,
		estimate: opts.EstimateSignals,
		metrics:  opts.Metrics,
		log:      opts.Logger,
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	return s
}

// Evaluate runs the full pipeline and commits the session. A duplicate
// submission is not an error: the result carries Duplicate=true and the
// user's unchanged progression.
func (s *Service) Evaluate(ctx context.Context, req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	log := s.log.With("request_id", req.RequestID, "user_id", req.UserID)

	res, facts, err := s.analyze(ctx, req)
	if err != nil {
		return Result{}, err
	}
	res.UserID = req.UserID

	rec, state, err := s.ledger.Commit(ctx, req.UserID, facts, res.Difficulty, res.Scores)
	switch {
	case errors.Is(err, progression.ErrDuplicateSession):
		s.metrics.RecordEvaluation(ctx, string(res.Difficulty), "duplicate")
		log.Info("duplicate session", "difficulty", string(res.Difficulty))
		state, err = s.ledger.GetProgression(ctx, req.UserID)
		if err != nil {
			return Result{}, fmt.Errorf("load progression after duplicate: %w", err)
		}
		res.Duplicate = true
	case err != nil:
		s.metrics.RecordEvaluation(ctx, string(res.Difficulty), "error")
		log.Error("commit session failed", "error", err)
		return Result{}, fmt.Errorf("commit session: %w", err)
	default:
		s.metrics.RecordEvaluation(ctx, string(res.Difficulty), "recorded")
		res.Sequence = rec.Sequence
		log.Info("session evaluated",
			"difficulty", string(res.Difficulty),
			"xp", res.Scores.Experience,
			"level", state.Level,
			"transcript", req.Transcript,
		)
	}

	res.Progression = &state
	return res, nil
}

// Preview runs the pure stages only. Nothing is stored.
func (s *Service) Preview(req Request) Result {
	res, _, _ := s.analyze(context.Background(), req)
	return res
}

// analyze classifies, scores and synthesizes feedback for req.
func (s *Service) analyze(ctx context.Context, req Request) (Result, session.Facts, error) {
	var (
		tier      difficulty.Tier
		scores    scoring.ScoreSet
		metrics   Metrics
		sig       = req.Signals
		estimated bool
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		tier = difficulty.Classify(req.Transcript, req.Tone)
		return egCtx.Err()
	})
	eg.Go(func() error {
		scores = scoring.Score(req.Transcript, req.GrammarIssues, req.Tone)
		metrics = Metrics{
			WordCount:       session.WordCount(req.Transcript),
			SentenceFluency: scoring.SentenceFluency(req.Transcript),
			GrammarRating:   scoring.GrammarRating(len(req.GrammarIssues)),
		}
		return egCtx.Err()
	})
	if sig == nil && s.estimate {
		eg.Go(func() error {
			est := signals.Estimate(req.Transcript)
			sig = &est
			estimated = true
			return egCtx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, session.Facts{}, fmt.Errorf("analyze session: %w", err)
	}

	facts := session.NewFacts(req.Transcript, req.GrammarIssues, req.Tone, sig)
	report := feedback.Synthesize(feedback.Input{
		Transcript:    facts.Transcript,
		GrammarIssues: facts.GrammarIssues,
		Tone:          facts.Tone,
		Scores:        scores,
		Signals:       facts.Signals,
	})

	return Result{
		RequestID:        req.RequestID,
		Difficulty:       tier,
		Scores:           scores,
		Metrics:          metrics,
		Signals:          facts.Signals.OrDefault(),
		SignalsEstimated: estimated,
		Report:           report,
	}, facts, nil
}

func validate(req Request) error {
	var errs []error
	if strings.TrimSpace(req.UserID) == "" {
		errs = append(errs, errors.New("user_id is required"))
	}
	if strings.TrimSpace(req.Transcript) == "" {
		errs = append(errs, errors.New("transcript is required"))
	}
	if req.Signals != nil {
		if sig := req.Signals.OrDefault(); !sig.Valid() {
			errs = append(errs, fmt.Errorf("signals out of range: %+v", sig))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", progression.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// ValidatePreview checks the fields Preview reads.
func ValidatePreview(req Request) error {
	req.UserID = "preview"
	return validate(req)
}
