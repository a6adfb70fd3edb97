// Package signals holds the optional emotional signals that accompany a
// practice session, plus a keyword heuristic that derives them from a
// transcript when the emotion collaborator supplies none.
package signals

import "encoding/json"

// Pacing describes how quickly the speaker delivered the utterance.
type Pacing string

const (
	PacingSlow     Pacing = "slow"
	PacingModerate Pacing = "moderate"
	PacingFast     Pacing = "fast"
)

// Clarity describes how free of filler words the utterance was.
type Clarity string

const (
	ClarityLow    Clarity = "low"
	ClarityMedium Clarity = "medium"
	ClarityHigh   Clarity = "high"
)

// Neutral values used whenever a signal is missing.
const (
	DefaultEmpathy = 0.5
	DefaultPacing  = PacingModerate
	DefaultClarity = ClarityMedium
)

// EmotionalSignals are the optional per-session emotion metrics.
type EmotionalSignals struct {
	Empathy float64 `json:"empathy"`
	Pacing  Pacing  `json:"pacing"`
	Clarity Clarity `json:"clarity"`
}

// Default returns the neutral signal set.
func Default() EmotionalSignals {
	return EmotionalSignals{
		Empathy: DefaultEmpathy,
		Pacing:  DefaultPacing,
		Clarity: DefaultClarity,
	}
}

// OrDefault returns a copy of s with empty enum fields replaced by their
// neutral values. A nil receiver yields Default().
func (s *EmotionalSignals) OrDefault() EmotionalSignals {
	if s == nil {
		return Default()
	}
	out := *s
	if out.Pacing == "" {
		out.Pacing = DefaultPacing
	}
	if out.Clarity == "" {
		out.Clarity = DefaultClarity
	}
	return out
}

// UnmarshalJSON decodes s, leaving any field absent from the payload at its
// neutral value. A missing empathy is DefaultEmpathy, not 0.
func (s *EmotionalSignals) UnmarshalJSON(data []byte) error {
	type plain EmotionalSignals
	out := plain(Default())
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*s = EmotionalSignals(out)
	return nil
}

// Valid reports whether every field is inside its declared domain.
func (s EmotionalSignals) Valid() bool {
	if s.Empathy < 0 || s.Empathy > 1 {
		return false
	}
	switch s.Pacing {
	case PacingSlow, PacingModerate, PacingFast:
	default:
		return false
	}
	switch s.Clarity {
	case ClarityLow, ClarityMedium, ClarityHigh:
	default:
		return false
	}
	return true
}
