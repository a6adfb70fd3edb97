package scoring

import "strings"

const sentenceFluencyPerWord = 5

// SentenceFluency estimates fluency from the average sentence length, in
// [0, MaxScore]. It is reported alongside a ScoreSet and never feeds
// experience.
func SentenceFluency(transcript string) int {
	words := len(strings.Fields(transcript))
	sentences := strings.Count(transcript, ".") + strings.Count(transcript, "?") + strings.Count(transcript, "!")
	avg := float64(words) / float64(max(1, sentences))
	return clamp(int(avg*sentenceFluencyPerWord), 0, MaxScore)
}

// GrammarRating buckets the number of grammar issues into a coarse label.
func GrammarRating(issueCount int) string {
	switch {
	case issueCount == 0:
		return "perfect"
	case issueCount <= 2:
		return "minor issues"
	default:
		return "needs improvement"
	}
}
