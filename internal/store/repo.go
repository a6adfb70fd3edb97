package store

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// SessionSummary is a consistent snapshot of a user's session log.
type SessionSummary struct {
	Count  int
	Latest *SessionRecord // nil when Count is 0
}

// QueryOpts configures session queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	From  time.Time // timestamp >= From
	To    time.Time // timestamp <= To
}

// SignalsData is the persisted form of a session's emotional signals.
type SignalsData struct {
	Empathy float64 `json:"empathy"`
	Pacing  string  `json:"pacing"`
	Clarity string  `json:"clarity"`
}

// NewSessionRecord is the data needed to append one session to the log.
type NewSessionRecord struct {
	UserID        string
	Timestamp     time.Time
	Transcript    string
	GrammarIssues []string
	Tone          string
	Signals       *SignalsData
	Difficulty    string
	Experience    int
}

// SessionRecord is a stored session.
type SessionRecord struct {
	ID            int64
	Sequence      int64
	UserID        string
	Timestamp     time.Time
	Transcript    string
	GrammarIssues []string
	Tone          string
	Signals       *SignalsData
	Difficulty    string
	Experience    int

	// Level is the user's level once this session was applied.
	Level int
}

// Progression is a user's stored progression row.
type Progression struct {
	UserID          string
	TotalExperience int64
	Level           int
	Streak          int
	LongestStreak   int
	SessionCount    int
	LastActiveAt    time.Time // zero when the user has never been active
	UpdatedAt       time.Time
}

// ProgressionMutator edits a progression row inside a write transaction.
// Returning an error aborts the transaction.
type ProgressionMutator func(p *Progression) error

// LedgerRepo is the persistence surface of the progression ledger.
type LedgerRepo interface {
	// AppendSession inserts rec and, in the same transaction, applies fn to
	// the user's progression row. Nothing is written if either step fails.
	// A uniqueness violation on the session insert yields ErrDuplicate.
	AppendSession(ctx context.Context, rec NewSessionRecord, fn ProgressionMutator) (SessionRecord, Progression, error)

	// UpdateProgression applies fn to the user's progression row in a
	// single write transaction, creating the row on first use.
	UpdateProgression(ctx context.Context, userID string, fn ProgressionMutator) (Progression, error)

	// GetProgression returns the user's row, or nil if none exists.
	GetProgression(ctx context.Context, userID string) (*Progression, error)

	// SessionSummary returns the user's session count and newest session,
	// read in one transaction so the two agree.
	SessionSummary(ctx context.Context, userID string) (SessionSummary, error)

	// QuerySessions returns the user's sessions, newest first.
	QuerySessions(ctx context.Context, userID string, opts QueryOpts) ([]SessionRecord, error)
}

// Profile is a user's stored coaching preferences.
type Profile struct {
	UserID         string
	PreferredVoice string
	BaselineTone   string
	UpdatedAt      time.Time
}

// ProfileMutator edits a profile inside a write transaction. The profile is
// zero apart from UserID when the user has no row yet.
type ProfileMutator func(p *Profile) error

// ProfileRepo persists per-user profiles.
type ProfileRepo interface {
	// GetProfile returns the user's profile, or nil if none exists.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// UpdateProfile applies fn to the user's profile and writes it back in
	// one transaction, creating the row on first use.
	UpdateProfile(ctx context.Context, userID string, fn ProfileMutator) (Profile, error)
}
