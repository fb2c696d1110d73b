package classify

import (
	"fmt"
	"strings"

	"github.com/homequote/intake/internal/domain"
)

// Bid card status labels derived from the primary confidence.
const (
	StatusFinal = "final"
	StatusDraft = "draft"
)

// Policy holds the tunable confidence parameters.
type Policy struct {
	// VisionWeight scales how far vision evidence can push the primary
	// confidence toward Cap.
	VisionWeight float64
	// Cap is the upper bound on adjusted confidence.
	Cap float64
	// FinalThreshold is the minimum primary confidence for a final status.
	FinalThreshold float64
}

// DefaultPolicy returns the stock blend parameters.
func DefaultPolicy() Policy {
	return Policy{
		VisionWeight:   0.3,
		Cap:            0.95,
		FinalThreshold: 0.7,
	}
}

// Details carries audit information about one classification call.
type Details struct {
	MatchedVisionLabels int     `json:"matched_vision_labels"`
	KeywordSetSize      int     `json:"keyword_set_size"`
	VisionAdjusted      bool    `json:"vision_adjusted"`
	BaseConfidence      float64 `json:"base_confidence"`
}

// Result is the three-tier classification outcome. Only the primary is
// vision-adjusted.
type Result struct {
	Primary   Candidate `json:"primary"`
	Secondary Candidate `json:"secondary"`
	Tertiary  Candidate `json:"tertiary"`
	Details   Details   `json:"details"`
}

// Engine classifies descriptions with a pluggable scorer. It is stateless
// after construction and safe for concurrent use.
type Engine struct {
	scorer Scorer
	policy Policy
}

// NewEngine creates an engine. A nil scorer falls back to the keyword
// scorer.
func NewEngine(scorer Scorer, policy Policy) *Engine {
	if scorer == nil {
		scorer = KeywordScorer{}
	}
	return &Engine{scorer: scorer, policy: policy}
}

// Classify derives primary, secondary, and tertiary candidates from the
// description and blends vision evidence into the primary's confidence.
func (e *Engine) Classify(description string, vision *domain.VisionAnalysis) (*Result, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("empty description")
	}

	candidates := e.scorer.Score(description)
	candidates = dedupeCategories(candidates)
	candidates = padCandidates(candidates)

	for i := range candidates {
		candidates[i].Subtype = NormalizeSubtype(candidates[i].Category, candidates[i].Subtype)
	}

	res := &Result{
		Primary:   candidates[0],
		Secondary: candidates[1],
		Tertiary:  candidates[2],
		Details:   Details{BaseConfidence: candidates[0].Confidence},
	}

	if vision != nil && len(vision.Labels) > 0 {
		e.adjustPrimary(res, vision.Labels)
	}
	return res, nil
}

// StatusFor derives the bid card status label from a primary confidence.
func (e *Engine) StatusFor(confidence float64) string {
	if confidence >= e.policy.FinalThreshold {
		return StatusFinal
	}
	return StatusDraft
}

// adjustPrimary blends keyword overlap between vision labels and the
// primary category's keyword set into the primary confidence. The blend is
// a boost toward Cap so that matching evidence never lowers the score:
//
//	adjusted = base + ratio*VisionWeight*(Cap-base)
func (e *Engine) adjustPrimary(res *Result, labels []domain.VisionLabel) {
	keywords := visionKeywords[res.Primary.Category]
	res.Details.KeywordSetSize = len(keywords)
	if len(keywords) == 0 {
		return
	}

	matches := 0
	for _, label := range labels {
		text := strings.ToLower(label.Description)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matches++
				break
			}
		}
	}
	res.Details.MatchedVisionLabels = matches
	if matches == 0 {
		return
	}

	ratio := float64(matches) / float64(len(keywords))
	if ratio > 1 {
		ratio = 1
	}
	base := res.Primary.Confidence
	// A scorer may score at or above the cap; evidence never lowers it.
	if base >= e.policy.Cap {
		return
	}
	adjusted := base + ratio*e.policy.VisionWeight*(e.policy.Cap-base)
	if adjusted > e.policy.Cap {
		adjusted = e.policy.Cap
	}
	res.Primary.Confidence = adjusted
	res.Details.VisionAdjusted = adjusted != base
}

func dedupeCategories(in []Candidate) []Candidate {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, c := range in {
		if seen[c.Category] {
			continue
		}
		seen[c.Category] = true
		out = append(out, c)
	}
	return out
}

// padCandidates fills out the three tiers when the scorer produced fewer,
// walking the fixed category order from the end so generic categories come
// first as low-confidence alternates.
func padCandidates(in []Candidate) []Candidate {
	used := make(map[string]bool, len(in))
	for _, c := range in {
		used[c.Category] = true
	}
	padConf := 0.3
	for i := len(Categories) - 1; i >= 0 && len(in) < 3; i-- {
		category := Categories[i]
		if used[category] {
			continue
		}
		used[category] = true
		in = append(in, Candidate{
			Category:   category,
			Subtype:    DefaultSubtype(category),
			Confidence: padConf,
		})
		padConf -= 0.1
	}
	return in[:3]
}
