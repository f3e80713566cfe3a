package rank

import (
	"math"
	"testing"

	"insight/internal/finder"
)

func TestRankScoreAndOrder(t *testing.T) {
	findings := []finder.Finding{
		{ID: "A:low.go", Name: "A", Severity: 0.5, Confidence: 0.5, TargetFiles: []string{"low.go"}},
		{ID: "B:hub.go", Name: "B", Severity: 0.8, Confidence: 0.9, TargetFiles: []string{"hub.go"}},
	}
	impacts := ImpactSource{FilePageRankPctl: map[string]float64{
		"low.go": 0.2,
		"hub.go": 0.95,
	}}
	ranked := Rank(findings, impacts)

	if ranked[0].Name != "B" {
		t.Errorf("first = %s, want B", ranked[0].Name)
	}
	want := 0.8 * 0.9 * 0.95
	if math.Abs(ranked[0].Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", ranked[0].Score, want)
	}
}

func TestRankDedupKeepsHighestSeverity(t *testing.T) {
	findings := []finder.Finding{
		{ID: "X:a.go", Severity: 0.5, Confidence: 1, TargetFiles: []string{"a.go"}},
		{ID: "X:a.go", Severity: 0.9, Confidence: 1, TargetFiles: []string{"a.go"}},
	}
	ranked := Rank(findings, ImpactSource{})
	if len(ranked) != 1 {
		t.Fatalf("deduped count = %d, want 1", len(ranked))
	}
	if ranked[0].Severity != 0.9 {
		t.Errorf("kept severity = %v, want 0.9", ranked[0].Severity)
	}
}

func TestPairImpactUsesMax(t *testing.T) {
	findings := []finder.Finding{
		{ID: "P:a|b", Severity: 1, Confidence: 1, TargetFiles: []string{"a.go", "b.go"}},
	}
	impacts := ImpactSource{FilePageRankPctl: map[string]float64{
		"a.go": 0.3, "b.go": 0.7,
	}}
	ranked := Rank(findings, impacts)
	if math.Abs(ranked[0].Score-0.7) > 1e-9 {
		t.Errorf("pair score = %v, want 0.7", ranked[0].Score)
	}
}

func TestCodebaseImpactIsOne(t *testing.T) {
	findings := []finder.Finding{
		{ID: "C:", Severity: 0.6, Confidence: 0.5},
	}
	ranked := Rank(findings, ImpactSource{FilePageRankPctl: map[string]float64{}})
	if math.Abs(ranked[0].Score-0.3) > 1e-9 {
		t.Errorf("codebase score = %v, want 0.3", ranked[0].Score)
	}
}

func TestAbsoluteTierImpactFallback(t *testing.T) {
	findings := []finder.Finding{
		{ID: "F:x.go", Severity: 0.5, Confidence: 1, TargetFiles: []string{"x.go"}},
	}
	ranked := Rank(findings, ImpactSource{}) // nil map: no percentiles
	if ranked[0].Score != 0.5 {
		t.Errorf("absolute-tier score = %v, want severity*confidence", ranked[0].Score)
	}
}

func TestApplyChronicAmplifies(t *testing.T) {
	findings := []finder.Finding{
		{ID: "F:old.go", Severity: 0.6, Confidence: 1, TargetFiles: []string{"old.go"}},
		{ID: "F:new.go", Severity: 0.6, Confidence: 1, TargetFiles: []string{"new.go"}},
	}
	persistence := map[string]int{"F:old.go": 4, "F:new.go": 1}
	out := ApplyChronic(findings, persistence, ImpactSource{})

	var oldF, newF *finder.Finding
	for i := range out {
		switch out[i].ID {
		case "F:old.go":
			oldF = &out[i]
		case "F:new.go":
			newF = &out[i]
		}
	}
	if math.Abs(oldF.Severity-0.75) > 1e-9 {
		t.Errorf("chronic severity = %v, want 0.75", oldF.Severity)
	}
	if newF.Severity != 0.6 {
		t.Errorf("fresh severity changed: %v", newF.Severity)
	}
}

func TestApplyChronicCapsAtOne(t *testing.T) {
	findings := []finder.Finding{
		{ID: "F:x.go", Severity: 0.9, Confidence: 1, TargetFiles: []string{"x.go"}},
	}
	out := ApplyChronic(findings, map[string]int{"F:x.go": 10}, ImpactSource{})
	if out[0].Severity != 1.0 {
		t.Errorf("amplified severity = %v, want cap 1.0", out[0].Severity)
	}

	// Amplifying an already-maximal severity is a no-op.
	findings = []finder.Finding{
		{ID: "F:y.go", Severity: 1.0, Confidence: 1, TargetFiles: []string{"y.go"}},
	}
	out = ApplyChronic(findings, map[string]int{"F:y.go": 5}, ImpactSource{})
	if out[0].Severity != 1.0 {
		t.Errorf("maximal severity changed: %v", out[0].Severity)
	}
}
