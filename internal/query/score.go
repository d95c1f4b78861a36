package query

import "strings"

// Score weights. Title hits dominate; there is no length normalization.
const (
	titleContainsScore = 10.0
	titleExactBonus    = 5.0
	bodyExactScore     = 1.0
	bodyPartialScore   = 0.5
)

// ScoreDocument scores a document against query terms.
//
// For each query term: +10 when any title term contains it, +5 more when a title term
// equals it, +1 per body term equal to it, and +0.5 per body term that merely contains it.
// Contributions of all query terms are summed.
func ScoreDocument(queryTerms []string, title string, bodyTerms []string) float64 {
	titleTerms := Tokenize(title)
	score := 0.0
	for _, qt := range queryTerms {
		if qt == "" {
			continue
		}
		contains, exact := false, false
		for _, tt := range titleTerms {
			if tt == qt {
				exact = true
				contains = true
				break
			}
			if strings.Contains(tt, qt) {
				contains = true
			}
		}
		if contains {
			score += titleContainsScore
		}
		if exact {
			score += titleExactBonus
		}
		for _, bt := range bodyTerms {
			if bt == qt {
				score += bodyExactScore
			} else if strings.Contains(bt, qt) {
				score += bodyPartialScore
			}
		}
	}
	return score
}
