// Package progression is the durable per-user progression ledger: the
// append-only session history plus the experience, level and streak row that
// sessions accrue into.
package progression

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/abhisek/voxa/internal/difficulty"
	"github.com/abhisek/voxa/internal/logging"
	"github.com/abhisek/voxa/internal/observe"
	"github.com/abhisek/voxa/internal/scoring"
	"github.com/abhisek/voxa/internal/session"
	"github.com/abhisek/voxa/internal/store"
)

// Options configures a Ledger. The zero value is usable.
type Options struct {
	// Now supplies record timestamps. Defaults to time.Now.
	Now func() time.Time

	// StorageTimeout bounds every storage call. Zero means no bound beyond
	// the caller's context.
	StorageTimeout time.Duration

	Metrics *observe.Metrics
	Logger  *logging.Logger
}

// Ledger records sessions and accrues experience. It is safe for concurrent
// use; operations for one user are serialized, different users run in
// parallel.
type Ledger struct {
	repo    store.LedgerRepo
	now     func() time.Time
	timeout time.Duration
	metrics *observe.Metrics
	log     *logging.Logger
	locks   *keyedMutex
}

// New creates a Ledger over repo.
func New(repo store.LedgerRepo, opts Options) *Ledger {
	l := &Ledger{
		repo:    repo,
		now:     opts.Now,
		timeout: opts.StorageTimeout,
		metrics: opts.Metrics,
		log:     opts.Logger,
		locks:   newKeyedMutex(),
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.log == nil {
		l.log = logging.Nop()
	}
	return l
}

// RecordSession appends one session to the user's history. It moves the
// session count and streak but accrues no experience.
func (l *Ledger) RecordSession(ctx context.Context, userID string, facts session.Facts, tier difficulty.Tier, scores scoring.ScoreSet) (SessionRecord, error) {
	rec, _, err := l.appendSession(ctx, "record_session", userID, facts, tier, scores, false)
	return rec, err
}

// Commit records the session and accrues its experience in one storage
// transaction. On ErrDuplicateSession nothing is recorded or accrued.
func (l *Ledger) Commit(ctx context.Context, userID string, facts session.Facts, tier difficulty.Tier, scores scoring.ScoreSet) (SessionRecord, ProgressionState, error) {
	return l.appendSession(ctx, "commit", userID, facts, tier, scores, true)
}

func (l *Ledger) appendSession(ctx context.Context, op, userID string, facts session.Facts, tier difficulty.Tier, scores scoring.ScoreSet, accrue bool) (SessionRecord, ProgressionState, error) {
	if err := validateSession(userID, facts, tier, scores); err != nil {
		return SessionRecord{}, ProgressionState{}, err
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	at := l.now().UTC()
	rec := newStoreRecord(userID, at, facts, tier, scores.Experience)
	delta := int64(scores.Experience)

	ctx, cancel := l.storageContext(ctx)
	defer cancel()

	start := time.Now()
	stored, prog, err := l.repo.AppendSession(ctx, rec, func(p *store.Progression) error {
		if accrue {
			if err := addExperience(p, delta); err != nil {
				return err
			}
		}
		p.Level = LevelFor(p.TotalExperience)
		touchActivity(p, at)
		return nil
	})
	if errors.Is(err, ErrInvalidInput) {
		l.metrics.RecordStorage(ctx, op, time.Since(start), nil)
		return SessionRecord{}, ProgressionState{}, err
	}
	if errors.Is(err, store.ErrDuplicate) {
		l.metrics.RecordStorage(ctx, op, time.Since(start), nil)
		l.metrics.RecordDuplicate(ctx)
		l.log.Info("duplicate session rejected", "user_id", userID, "difficulty", string(tier))
		return SessionRecord{}, ProgressionState{}, ErrDuplicateSession
	}
	l.metrics.RecordStorage(ctx, op, time.Since(start), err)
	if err != nil {
		l.log.Error("append session failed", "user_id", userID, "op", op, "error", err)
		return SessionRecord{}, ProgressionState{}, &StorageError{Op: op, Err: err}
	}

	if accrue {
		l.metrics.RecordExperience(ctx, delta)
	}
	l.log.Debug("session recorded",
		"user_id", userID,
		"op", op,
		"sequence", stored.Sequence,
		"experience", stored.Experience,
		"total_experience", prog.TotalExperience,
		"streak", prog.Streak,
	)
	return recordFromStore(stored), stateFromStore(prog), nil
}

// AccrueExperience adds delta to the user's total and recomputes the level
// as one atomic read-modify-write. A negative delta is rejected.
func (l *Ledger) AccrueExperience(ctx context.Context, userID string, delta int) (ProgressionState, error) {
	if err := validateUserID(userID); err != nil {
		return ProgressionState{}, err
	}
	if delta < 0 {
		return ProgressionState{}, invalid("experience delta %d is negative", delta)
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	ctx, cancel := l.storageContext(ctx)
	defer cancel()

	start := time.Now()
	prog, err := l.repo.UpdateProgression(ctx, userID, func(p *store.Progression) error {
		if err := addExperience(p, int64(delta)); err != nil {
			return err
		}
		p.Level = LevelFor(p.TotalExperience)
		return nil
	})
	if errors.Is(err, ErrInvalidInput) {
		l.metrics.RecordStorage(ctx, "accrue_experience", time.Since(start), nil)
		return ProgressionState{}, err
	}
	l.metrics.RecordStorage(ctx, "accrue_experience", time.Since(start), err)
	if err != nil {
		l.log.Error("accrue experience failed", "user_id", userID, "error", err)
		return ProgressionState{}, &StorageError{Op: "accrue_experience", Err: err}
	}
	l.metrics.RecordExperience(ctx, int64(delta))
	return stateFromStore(prog), nil
}

// GetProgression returns the user's current state. A user with no row gets
// level 1 and zero totals.
func (l *Ledger) GetProgression(ctx context.Context, userID string) (ProgressionState, error) {
	if err := validateUserID(userID); err != nil {
		return ProgressionState{}, err
	}

	ctx, cancel := l.storageContext(ctx)
	defer cancel()

	start := time.Now()
	p, err := l.repo.GetProgression(ctx, userID)
	l.metrics.RecordStorage(ctx, "get_progression", time.Since(start), err)
	if err != nil {
		return ProgressionState{}, &StorageError{Op: "get_progression", Err: err}
	}
	if p == nil {
		return zeroState(userID), nil
	}
	return stateFromStore(*p), nil
}

// GetStatus returns the user's session count and the scores of the newest
// session, re-derived from its stored facts. A user with no sessions gets a
// zero status.
func (l *Ledger) GetStatus(ctx context.Context, userID string) (Status, error) {
	if err := validateUserID(userID); err != nil {
		return Status{}, err
	}

	ctx, cancel := l.storageContext(ctx)
	defer cancel()

	start := time.Now()
	sum, err := l.repo.SessionSummary(ctx, userID)
	l.metrics.RecordStorage(ctx, "get_status", time.Since(start), err)
	if err != nil {
		return Status{}, &StorageError{Op: "get_status", Err: err}
	}

	st := Status{TotalSessions: sum.Count}
	if latest := sum.Latest; latest != nil {
		st.LatestScores = scoring.Score(latest.Transcript, latest.GrammarIssues, latest.Tone)
	}
	return st, nil
}

// GetHistory replays the user's sessions newest first, re-scoring each from
// its stored facts.
func (l *Ledger) GetHistory(ctx context.Context, userID string) ([]HistoryEntry, error) {
	return l.GetHistoryPage(ctx, userID, HistoryOpts{})
}

// GetHistoryPage is GetHistory restricted to a time window and capped at
// opts.Limit entries, both applied in storage.
func (l *Ledger) GetHistoryPage(ctx context.Context, userID string, opts HistoryOpts) ([]HistoryEntry, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if opts.Limit < 0 {
		return nil, invalid("history limit %d is negative", opts.Limit)
	}
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.To.Before(opts.From) {
		return nil, invalid("history window ends before it starts")
	}

	ctx, cancel := l.storageContext(ctx)
	defer cancel()

	start := time.Now()
	recs, err := l.repo.QuerySessions(ctx, userID, store.QueryOpts{
		Limit: opts.Limit,
		From:  opts.From,
		To:    opts.To,
	})
	l.metrics.RecordStorage(ctx, "get_history", time.Since(start), err)
	if err != nil {
		return nil, &StorageError{Op: "get_history", Err: err}
	}

	entries := make([]HistoryEntry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, HistoryEntry{
			Transcript: r.Transcript,
			Tone:       r.Tone,
			Difficulty: difficulty.Tier(r.Difficulty),
			Timestamp:  r.Timestamp,
			Scores:     scoring.Score(r.Transcript, r.GrammarIssues, r.Tone),
			Experience: r.Experience,
		})
	}
	return entries, nil
}

// addExperience adds delta to p's total, refusing any delta that would
// overflow it.
func addExperience(p *store.Progression, delta int64) error {
	if delta > math.MaxInt64-p.TotalExperience {
		return invalid("experience delta %d overflows total %d", delta, p.TotalExperience)
	}
	p.TotalExperience += delta
	return nil
}

func (l *Ledger) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid("user id is empty")
	}
	return nil
}

func validateSession(userID string, facts session.Facts, tier difficulty.Tier, scores scoring.ScoreSet) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if !tier.Valid() {
		return invalid("unknown difficulty tier %q", tier)
	}
	if !scores.Valid() {
		return invalid("scores out of range: %+v", scores)
	}
	if facts.Signals != nil {
		if sig := facts.Signals.OrDefault(); !sig.Valid() {
			return invalid("emotional signals out of range: %+v", sig)
		}
	}
	return nil
}
