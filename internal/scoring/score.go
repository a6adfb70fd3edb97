// Package scoring turns session facts into a grammar/tone/fluency score set
// and the per-session experience they earn.
package scoring

import (
	"strings"

	"github.com/abhisek/voxa/internal/session"
)

const (
	// MaxScore is the upper bound of every score component.
	MaxScore = 100

	grammarPenaltyPerIssue = 20
	fluencyPointsPerWord   = 2

	// DefaultToneScore applies to tone labels missing from the tone table.
	DefaultToneScore = 50
)

// toneScores maps lower-case tone labels to their score.
var toneScores = map[string]int{
	"confident":  100,
	"neutral":    70,
	"nervous":    40,
	"low_energy": 30,
}

// ScoreSet is the derived, immutable scoring of one session.
type ScoreSet struct {
	Grammar    int `json:"grammar_score"`
	Tone       int `json:"tone_score"`
	Fluency    int `json:"fluency_score"`
	Experience int `json:"xp"`
}

// Valid reports whether every component lies in [0, MaxScore].
func (s ScoreSet) Valid() bool {
	for _, v := range []int{s.Grammar, s.Tone, s.Fluency, s.Experience} {
		if v < 0 || v > MaxScore {
			return false
		}
	}
	return true
}

// Score computes the score set for a session. It is total over all inputs.
func Score(transcript string, grammarIssues []string, tone string) ScoreSet {
	grammar := clamp(MaxScore-grammarPenaltyPerIssue*len(grammarIssues), 0, MaxScore)
	toneScore := ToneScore(tone)
	fluency := clamp(fluencyPointsPerWord*session.WordCount(transcript), 0, MaxScore)

	return ScoreSet{
		Grammar:    grammar,
		Tone:       toneScore,
		Fluency:    fluency,
		Experience: (grammar + toneScore + fluency) / 3,
	}
}

// ScoreFacts is Score applied to a Facts value.
func ScoreFacts(f session.Facts) ScoreSet {
	return Score(f.Transcript, f.GrammarIssues, f.Tone)
}

// ToneScore looks tone up case-insensitively, falling back to DefaultToneScore.
func ToneScore(tone string) int {
	if s, ok := toneScores[strings.ToLower(strings.TrimSpace(tone))]; ok {
		return s
	}
	return DefaultToneScore
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
