package progression

import (
	"time"

	"github.com/abhisek/voxa/internal/difficulty"
	"github.com/abhisek/voxa/internal/scoring"
	"github.com/abhisek/voxa/internal/session"
	"github.com/abhisek/voxa/internal/signals"
	"github.com/abhisek/voxa/internal/store"
)

// ExperiencePerLevel is the experience needed to advance one level.
const ExperiencePerLevel = 100

// LevelFor returns the level for a cumulative experience total.
func LevelFor(totalExperience int64) int {
	if totalExperience < 0 {
		totalExperience = 0
	}
	return 1 + int(totalExperience/ExperiencePerLevel)
}

// ProgressionState is a user's durable progression.
type ProgressionState struct {
	UserID              string    `json:"user_id"`
	TotalExperience     int64     `json:"total_experience"`
	Level               int       `json:"level"`
	Streak              int       `json:"streak"`
	LongestStreak       int       `json:"longest_streak"`
	SessionCount        int       `json:"session_count"`
	LastActiveAt        time.Time `json:"last_active_at,omitzero"`
	NextStreakMilestone int       `json:"next_streak_milestone"`
}

// SessionRecord is one recorded session.
type SessionRecord struct {
	ID         int64
	Sequence   int64
	UserID     string
	Timestamp  time.Time
	Facts      session.Facts
	Difficulty difficulty.Tier
	Experience int
	Level      int
}

// Status summarizes a user's recorded sessions.
type Status struct {
	TotalSessions int              `json:"total_sessions"`
	LatestScores  scoring.ScoreSet `json:"latest_scores"`
}

// HistoryEntry is one session replayed for display. Scores are derived from
// the stored facts with the current scoring rules; Experience is what the
// session was credited when it was recorded.
type HistoryEntry struct {
	Transcript string           `json:"transcript"`
	Tone       string           `json:"tone"`
	Difficulty difficulty.Tier  `json:"difficulty"`
	Timestamp  time.Time        `json:"timestamp"`
	Scores     scoring.ScoreSet `json:"scores"`
	Experience int              `json:"experience"`
}

// HistoryOpts narrows a history replay. Zero values mean unbounded.
type HistoryOpts struct {
	Limit int
	From  time.Time
	To    time.Time
}

func zeroState(userID string) ProgressionState {
	return ProgressionState{
		UserID:              userID,
		Level:               LevelFor(0),
		NextStreakMilestone: NextStreakMilestone(0),
	}
}

func stateFromStore(p store.Progression) ProgressionState {
	return ProgressionState{
		UserID:              p.UserID,
		TotalExperience:     p.TotalExperience,
		Level:               LevelFor(p.TotalExperience),
		Streak:              p.Streak,
		LongestStreak:       p.LongestStreak,
		SessionCount:        p.SessionCount,
		LastActiveAt:        p.LastActiveAt,
		NextStreakMilestone: NextStreakMilestone(p.Streak),
	}
}

func recordFromStore(r store.SessionRecord) SessionRecord {
	var sig *signals.EmotionalSignals
	if r.Signals != nil {
		sig = &signals.EmotionalSignals{
			Empathy: r.Signals.Empathy,
			Pacing:  signals.Pacing(r.Signals.Pacing),
			Clarity: signals.Clarity(r.Signals.Clarity),
		}
	}
	return SessionRecord{
		ID:         r.ID,
		Sequence:   r.Sequence,
		UserID:     r.UserID,
		Timestamp:  r.Timestamp,
		Facts:      session.NewFacts(r.Transcript, r.GrammarIssues, r.Tone, sig),
		Difficulty: difficulty.Tier(r.Difficulty),
		Experience: r.Experience,
		Level:      r.Level,
	}
}

func newStoreRecord(userID string, at time.Time, f session.Facts, tier difficulty.Tier, exp int) store.NewSessionRecord {
	rec := store.NewSessionRecord{
		UserID:        userID,
		Timestamp:     at.UTC(),
		Transcript:    f.Transcript,
		GrammarIssues: f.GrammarIssues,
		Tone:          f.Tone,
		Difficulty:    string(tier),
		Experience:    exp,
	}
	if f.Signals != nil {
		sig := f.Signals.OrDefault()
		rec.Signals = &store.SignalsData{
			Empathy: sig.Empathy,
			Pacing:  string(sig.Pacing),
			Clarity: string(sig.Clarity),
		}
	}
	return rec
}
