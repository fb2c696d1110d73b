package classify

import (
	"testing"

	"github.com/homequote/intake/internal/domain"
)

func newEngine() *Engine {
	return NewEngine(nil, DefaultPolicy())
}

func TestClassifyKitchenRemodelDeterministic(t *testing.T) {
	e := newEngine()

	res, err := e.Classify("kitchen remodel", nil)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if res.Primary.Category != "renovation" || res.Primary.Subtype != "kitchen" {
		t.Fatalf("unexpected primary: %+v", res.Primary)
	}
	if res.Primary.Confidence != res.Details.BaseConfidence {
		t.Fatalf("confidence changed without vision evidence: %+v", res)
	}
	if res.Details.VisionAdjusted {
		t.Fatal("no vision results, adjustment must not fire")
	}

	// Same input, same output.
	again, err := e.Classify("kitchen remodel", nil)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if *again != *res {
		t.Fatalf("classification is not deterministic: %+v vs %+v", again, res)
	}
}

func TestClassifyVisionAdjustmentRaisesPrimary(t *testing.T) {
	e := newEngine()

	base, err := e.Classify("kitchen remodel", nil)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	vision := &domain.VisionAnalysis{
		Labels: []domain.VisionLabel{{Description: "remodel kitchen cabinets", Score: 0.92}},
	}
	adjusted, err := e.Classify("kitchen remodel", vision)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if adjusted.Primary.Confidence <= base.Primary.Confidence {
		t.Fatalf("expected adjusted %.3f > base %.3f",
			adjusted.Primary.Confidence, base.Primary.Confidence)
	}
	if adjusted.Primary.Confidence > DefaultPolicy().Cap {
		t.Fatalf("adjusted %.3f exceeds cap", adjusted.Primary.Confidence)
	}
	if !adjusted.Details.VisionAdjusted || adjusted.Details.MatchedVisionLabels != 1 {
		t.Fatalf("unexpected details: %+v", adjusted.Details)
	}
}

func TestClassifyVisionAdjustmentMonotonic(t *testing.T) {
	e := newEngine()

	label := domain.VisionLabel{Description: "remodel in progress", Score: 0.8}
	prev := 0.0
	for n := 1; n <= 10; n++ {
		labels := make([]domain.VisionLabel, n)
		for i := range labels {
			labels[i] = label
		}
		res, err := e.Classify("kitchen remodel", &domain.VisionAnalysis{Labels: labels})
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		conf := res.Primary.Confidence
		if conf < prev {
			t.Fatalf("adding a matching label lowered confidence: %.3f < %.3f", conf, prev)
		}
		if conf > DefaultPolicy().Cap {
			t.Fatalf("confidence %.3f exceeds cap", conf)
		}
		prev = conf
	}
}

type fixedScorer struct {
	confidence float64
}

func (s fixedScorer) Score(description string) []Candidate {
	return []Candidate{{Category: "renovation", Subtype: "kitchen", Confidence: s.confidence}}
}

func TestClassifyVisionNeverLowersScoreAboveCap(t *testing.T) {
	e := NewEngine(fixedScorer{confidence: 0.97}, DefaultPolicy())

	vision := &domain.VisionAnalysis{
		Labels: []domain.VisionLabel{{Description: "remodel kitchen cabinets", Score: 0.92}},
	}
	res, err := e.Classify("kitchen remodel", vision)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if res.Primary.Confidence != 0.97 {
		t.Fatalf("matching label changed an above-cap score: %.3f", res.Primary.Confidence)
	}
	if res.Details.VisionAdjusted {
		t.Fatal("no adjustment should be recorded above the cap")
	}
	if res.Details.MatchedVisionLabels != 1 {
		t.Fatalf("match bookkeeping lost: %+v", res.Details)
	}
}

func TestClassifyNoKeywordMatchLeavesConfidence(t *testing.T) {
	e := newEngine()

	vision := &domain.VisionAnalysis{
		Labels: []domain.VisionLabel{{Description: "blue sky", Score: 0.99}},
	}
	res, err := e.Classify("kitchen remodel", vision)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if res.Primary.Confidence != res.Details.BaseConfidence {
		t.Fatalf("non-matching labels changed confidence: %+v", res)
	}
}

func TestClassifyThreeDistinctCategories(t *testing.T) {
	e := newEngine()

	res, err := e.Classify("fix the leak in the roof", nil)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	cats := map[string]bool{
		res.Primary.Category:   true,
		res.Secondary.Category: true,
		res.Tertiary.Category:  true,
	}
	if len(cats) != 3 {
		t.Fatalf("tiers share a category: %+v", res)
	}
}

func TestClassifyEmptyDescriptionFails(t *testing.T) {
	if _, err := newEngine().Classify("  ", nil); err == nil {
		t.Fatal("expected error for empty description")
	}
}

func TestNormalizeSubtype(t *testing.T) {
	for category, subs := range Subtypes {
		if got := NormalizeSubtype(category, "no_such_subtype"); got != subs[0] {
			t.Fatalf("%s: expected default %q, got %q", category, subs[0], got)
		}
		if got := NormalizeSubtype(category, subs[len(subs)-1]); got != subs[len(subs)-1] {
			t.Fatalf("%s: valid subtype was rewritten to %q", category, got)
		}
	}
}

func TestStatusThreshold(t *testing.T) {
	e := newEngine()
	cases := []struct {
		confidence float64
		want       string
	}{
		{0.69, StatusDraft},
		{0.70, StatusFinal},
		{0.95, StatusFinal},
		{0.10, StatusDraft},
	}
	for _, tc := range cases {
		if got := e.StatusFor(tc.confidence); got != tc.want {
			t.Fatalf("StatusFor(%.2f) = %q, want %q", tc.confidence, got, tc.want)
		}
	}
}

func TestScorerUnknownDescriptionFallsBack(t *testing.T) {
	res, err := newEngine().Classify("something entirely unrelated", nil)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if res.Primary.Category != "other" {
		t.Fatalf("expected fallback primary, got %+v", res.Primary)
	}
	if res.Primary.Subtype != "other" {
		t.Fatalf("fallback subtype not normalized: %+v", res.Primary)
	}
}
