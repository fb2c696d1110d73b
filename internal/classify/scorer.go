package classify

import (
	"strings"
	"unicode"
)

// Candidate is one ranked classification outcome.
type Candidate struct {
	Category   string  `json:"category"`
	Subtype    string  `json:"subtype"`
	Confidence float64 `json:"confidence"`
}

// Scorer derives ranked candidates from a free-text description. The
// strategy is pluggable; the engine only requires descending order and at
// most one candidate per category.
type Scorer interface {
	Score(description string) []Candidate
}

// KeywordScorer scores against the fixed description keyword table. It is
// fully deterministic: ties break on category and subtype registration
// order.
type KeywordScorer struct{}

const (
	keywordBase = 0.5
	keywordStep = 0.15
	keywordCap  = 0.9
)

// Score tokenizes the description and ranks categories by their best
// subtype's keyword hit count.
func (KeywordScorer) Score(description string) []Candidate {
	tokens := tokenize(description)

	type scored struct {
		cand Candidate
		hits int
	}
	var ranked []scored
	for _, category := range Categories {
		subtype, hits := bestSubtype(category, tokens)
		if hits == 0 {
			continue
		}
		conf := keywordBase + keywordStep*float64(hits)
		if conf > keywordCap {
			conf = keywordCap
		}
		ranked = append(ranked, scored{
			cand: Candidate{Category: category, Subtype: subtype, Confidence: conf},
			hits: hits,
		})
	}

	// Stable by construction: categories were visited in fixed order, so a
	// simple insertion sort on hit count keeps the tiebreak deterministic.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].hits > ranked[j-1].hits; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	out := make([]Candidate, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.cand)
	}
	return out
}

func bestSubtype(category string, tokens map[string]bool) (string, int) {
	best := DefaultSubtype(category)
	bestHits := 0
	for _, subtype := range Subtypes[category] {
		hits := 0
		for _, kw := range descriptionKeywords[category][subtype] {
			if tokens[kw] {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = subtype, hits
		}
	}
	return best, bestHits
}

func tokenize(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}
