// Package feedback writes the coaching message a learner hears after a
// practice session.
package feedback

import (
	"strings"

	"github.com/abhisek/voxa/internal/scoring"
	"github.com/abhisek/voxa/internal/signals"
)

const (
	strengthThreshold    = 85
	improvementThreshold = 70

	empathyStrength    = 0.7
	empathyImprovement = 0.5

	maxQuotedIssues = 3
)

// Fixed message text.
const (
	Preamble     = "Here's how you're doing:\n\n"
	StrengthHead = "✅ What you're doing well:\n"
	ImproveHead  = "\n🛠️ What to improve:\n"
	Closing      = "\nKeep practicing — you're making real progress!"
)

// Strength notes.
const (
	NoteGrammarStrong = "Your grammar was strong and accurate."
	NoteConfident     = "You sounded confident and clear."
	NoteFluent        = "Your fluency was smooth and well-paced."
	NoteEmpathetic    = "You showed empathy and emotional awareness."
	NotePacing        = "Your pacing felt natural and easy to follow."
	NoteClear         = "Your speech was clear and easy to understand."
)

// Improvement notes.
const (
	NoteGrammarSlipsPrefix = "Watch out for grammar slips like: "
	NoteGrammarGeneric     = "Grammar could be improved with clearer sentence structure."
	NoteConfidence         = "Try to project more confidence — slow down and emphasize key words."
	NoteFluency            = "Work on connecting your phrases more fluidly."
	NoteEmpathy            = "Try to express more empathy — acknowledge the other person's feelings or goals."
	NoteSlowDown           = "Slow down a bit to give your listener time to absorb your message."
	NoteSpeedUp            = "Try to speak a bit more fluidly to maintain engagement."
	NoteFillers            = "Avoid filler words like 'um' or 'like' to improve clarity."
)

// Input is everything the synthesizer reads. Signals may be nil.
type Input struct {
	Transcript    string
	GrammarIssues []string
	Tone          string
	Scores        scoring.ScoreSet
	Signals       *signals.EmotionalSignals
}

// Report is the coaching output. Strengths and Improvements are never nil.
type Report struct {
	Message      string   `json:"message"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Synthesize builds the coaching report. Every rule is evaluated
// independently and notes keep the fixed rule order.
func Synthesize(in Input) Report {
	sig := in.Signals.OrDefault()

	strengths := []string{}
	if in.Scores.Grammar >= strengthThreshold {
		strengths = append(strengths, NoteGrammarStrong)
	}
	if in.Scores.Tone >= strengthThreshold {
		strengths = append(strengths, NoteConfident)
	}
	if in.Scores.Fluency >= strengthThreshold {
		strengths = append(strengths, NoteFluent)
	}
	if sig.Empathy >= empathyStrength {
		strengths = append(strengths, NoteEmpathetic)
	}
	if sig.Pacing == signals.PacingModerate {
		strengths = append(strengths, NotePacing)
	}
	if sig.Clarity == signals.ClarityHigh {
		strengths = append(strengths, NoteClear)
	}

	improvements := []string{}
	if in.Scores.Grammar < improvementThreshold {
		if len(in.GrammarIssues) > 0 {
			quoted := in.GrammarIssues[:min(maxQuotedIssues, len(in.GrammarIssues))]
			improvements = append(improvements, NoteGrammarSlipsPrefix+strings.Join(quoted, ", "))
		} else {
			improvements = append(improvements, NoteGrammarGeneric)
		}
	}
	if in.Scores.Tone < improvementThreshold {
		improvements = append(improvements, NoteConfidence)
	}
	if in.Scores.Fluency < improvementThreshold {
		improvements = append(improvements, NoteFluency)
	}
	if sig.Empathy < empathyImprovement {
		improvements = append(improvements, NoteEmpathy)
	}
	switch sig.Pacing {
	case signals.PacingFast:
		improvements = append(improvements, NoteSlowDown)
	case signals.PacingSlow:
		improvements = append(improvements, NoteSpeedUp)
	}
	if sig.Clarity == signals.ClarityLow {
		improvements = append(improvements, NoteFillers)
	}

	return Report{
		Message:      compose(strengths, improvements),
		Strengths:    strengths,
		Improvements: improvements,
	}
}

func compose(strengths, improvements []string) string {
	var b strings.Builder
	b.WriteString(Preamble)

	if len(strengths) > 0 {
		b.WriteString(StrengthHead)
		for _, s := range strengths {
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	if len(improvements) > 0 {
		b.WriteString(ImproveHead)
		for _, i := range improvements {
			b.WriteString("- ")
			b.WriteString(i)
			b.WriteString("\n")
		}
	}

	b.WriteString(Closing)
	return b.String()
}
