package signals

import (
	"math"
	"regexp"
	"strings"
)

var (
	empathyKeywords = []string{"sorry", "understand", "feel", "appreciate", "thank", "hope"}
	fillerWords     = []string{"um", "uh", "like", "you know", "so", "actually"}

	punctuation = regexp.MustCompile(`[^\w\s]`)
)

const (
	fastSentenceWords = 20
	slowSentenceWords = 8
	maxMediumFillers  = 2
)

// Estimate derives emotional signals from the transcript text alone.
//
// Empathy counts distinct relational keywords, pacing uses the average number
// of words per sentence and clarity counts filler-word occurrences. Matching
// is substring based, so "so" also fires inside "also".
func Estimate(transcript string) EmotionalSignals {
	lower := strings.ToLower(transcript)

	hits := 0
	for _, kw := range empathyKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	empathy := math.Min(1.0, 0.4+0.1*float64(hits))
	empathy = math.Round(empathy*100) / 100

	sentences := strings.Count(transcript, ".") + strings.Count(transcript, "?") + strings.Count(transcript, "!")
	words := len(strings.Fields(transcript))
	avg := float64(words) / float64(max(1, sentences))

	pacing := PacingModerate
	switch {
	case avg > fastSentenceWords:
		pacing = PacingFast
	case avg < slowSentenceWords:
		pacing = PacingSlow
	}

	clean := punctuation.ReplaceAllString(lower, "")
	fillers := 0
	for _, f := range fillerWords {
		fillers += strings.Count(clean, f)
	}

	clarity := ClarityLow
	switch {
	case fillers == 0:
		clarity = ClarityHigh
	case fillers <= maxMediumFillers:
		clarity = ClarityMedium
	}

	return EmotionalSignals{
		Empathy: empathy,
		Pacing:  pacing,
		Clarity: clarity,
	}
}
