package quiz

import (
	"strings"

	"github.com/hyperjump/quizcast/internal/models"
)

// fingerprintLength is the number of leading runes that identify a question.
const fingerprintLength = 50

// Fingerprint returns the dedup identity of a question: its first 50 runes
// after trimming. Distinct questions sharing that prefix collapse into one.
func Fingerprint(question string) string {
	r := []rune(strings.TrimSpace(question))
	if len(r) > fingerprintLength {
		r = r[:fingerprintLength]
	}
	return string(r)
}

// Dedup keeps the first candidate per fingerprint, in input order, and
// reports every later one as a duplicate skip.
func Dedup(candidates []Candidate) ([]Candidate, []models.Skip) {
	seen := make(map[string]string, len(candidates))
	kept := make([]Candidate, 0, len(candidates))
	var skips []models.Skip
	for _, c := range candidates {
		fp := Fingerprint(c.Question)
		if first, ok := seen[fp]; ok {
			skips = append(skips, models.Skip{
				Source: c.Source,
				Reason: models.SkipDuplicate,
				Detail: "same as " + first,
			})
			continue
		}
		seen[fp] = c.Source
		kept = append(kept, c)
	}
	return kept, skips
}
