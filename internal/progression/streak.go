package progression

import (
	"time"

	"github.com/abhisek/voxa/internal/store"
)

// streakMilestones are the fixed early milestones; past the last one a
// milestone falls on every multiple of 5.
var streakMilestones = []int{5, 10, 15, 20}

// NextStreakMilestone returns the next streak milestone above current.
func NextStreakMilestone(current int) int {
	for _, m := range streakMilestones {
		if m > current {
			return m
		}
	}
	return ((current / 5) + 1) * 5
}

// touchActivity applies one recorded session at time at to p: the session
// count, the UTC-day streak and the last-activity timestamp.
func touchActivity(p *store.Progression, at time.Time) {
	at = at.UTC()
	p.SessionCount++

	switch {
	case p.LastActiveAt.IsZero() || p.Streak == 0:
		p.Streak = 1
	default:
		switch gap := dayOf(at).Sub(dayOf(p.LastActiveAt)); {
		case gap <= 0:
			// Same day, or an out-of-order timestamp.
		case gap == 24*time.Hour:
			p.Streak++
		default:
			p.Streak = 1
		}
	}

	if p.Streak > p.LongestStreak {
		p.LongestStreak = p.Streak
	}
	if at.After(p.LastActiveAt) {
		p.LastActiveAt = at
	}
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
