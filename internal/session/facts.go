package session

import (
	"slices"
	"strings"

	"github.com/abhisek/voxa/internal/signals"
)

// Facts are the already-computed inputs of one practice session: what the
// learner said plus what the grammar and emotion collaborators reported.
// A Facts value must not be mutated after construction.
type Facts struct {
	Transcript    string
	GrammarIssues []string
	Tone          string

	// Signals is optional; nil means the emotion collaborator reported
	// nothing beyond the tone label.
	Signals *signals.EmotionalSignals
}

// NewFacts builds a Facts value that owns copies of its slice and pointer
// arguments.
func NewFacts(transcript string, grammarIssues []string, tone string, sig *signals.EmotionalSignals) Facts {
	f := Facts{
		Transcript:    transcript,
		GrammarIssues: slices.Clone(grammarIssues),
		Tone:          tone,
	}
	if f.GrammarIssues == nil {
		f.GrammarIssues = []string{}
	}
	if sig != nil {
		s := *sig
		f.Signals = &s
	}
	return f
}

// WordCount returns the number of whitespace-delimited tokens in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
