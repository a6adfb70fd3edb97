// Package difficulty assigns a practice session to a difficulty tier.
package difficulty

import "github.com/abhisek/voxa/internal/session"

// Tier is the difficulty bucket of a session.
type Tier string

const (
	Easy   Tier = "easy"
	Medium Tier = "medium"
	Hard   Tier = "hard"
)

const (
	// nervousTone short-circuits classification to Easy.
	nervousTone = "nervous"

	mediumMinWords = 5
	hardMinWords   = 15
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// Classify returns the tier for a transcript spoken with the given tone.
// A nervous speaker or an utterance under five words is Easy, under fifteen
// words is Medium, anything longer is Hard.
func Classify(transcript, tone string) Tier {
	words := session.WordCount(transcript)
	switch {
	case tone == nervousTone || words < mediumMinWords:
		return Easy
	case words < hardMinWords:
		return Medium
	default:
		return Hard
	}
}
