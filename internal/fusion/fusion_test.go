package fusion

import (
	"math"
	"testing"

	"insight/internal/fact"
)

func TestSelectTier(t *testing.T) {
	tests := []struct {
		files int
		want  Tier
	}{
		{0, TierAbsolute},
		{4, TierAbsolute},
		{14, TierAbsolute},
		{15, TierBayesian},
		{49, TierBayesian},
		{50, TierFull},
		{5000, TierFull},
	}
	for _, tt := range tests {
		if got := SelectTier(tt.files); got != tt.want {
			t.Errorf("SelectTier(%d) = %v, want %v", tt.files, got, tt.want)
		}
	}
}

func TestFullPercentileLaw(t *testing.T) {
	values := []float64{5, 1, 3, 3, 9}
	pctl := Percentiles(values, TierFull)
	n := float64(len(values))
	for i, v := range values {
		rank := 0
		for _, u := range values {
			if u <= v {
				rank++
			}
		}
		want := float64(rank) / n
		if math.Abs(pctl[i]-want) > 1e-12 {
			t.Errorf("pctl[%d] = %v, want %v", i, pctl[i], want)
		}
	}
}

func TestBayesianPercentileShrinkage(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	pctl := Percentiles(values, TierBayesian)
	// Max value: (1 + 4) / (2 + 4) < 1; min value: (1 + 1) / 6 > 0.
	if pctl[3] >= 1 {
		t.Errorf("bayesian max pctl = %v, want < 1", pctl[3])
	}
	if pctl[0] <= 0 {
		t.Errorf("bayesian min pctl = %v, want > 0", pctl[0])
	}
	if math.Abs(pctl[3]-5.0/6.0) > 1e-12 {
		t.Errorf("bayesian max = %v, want 5/6", pctl[3])
	}
}

func TestAbsoluteTierHasNoPercentiles(t *testing.T) {
	if got := Percentiles([]float64{1, 2, 3}, TierAbsolute); got != nil {
		t.Errorf("absolute tier percentiles = %v, want nil", got)
	}
}

func TestValidateWeights(t *testing.T) {
	if err := ValidateWeights(); err != nil {
		t.Fatalf("weight closure violated: %v", err)
	}
}

func TestRiskScoreRange(t *testing.T) {
	in := RiskInputs{
		PageRankPctl:      1,
		BlastPctl:         1,
		CognitiveLoadPctl: 1,
		Trajectory:        fact.TrajSpiking,
		BusFactor:         1,
		MaxBusFactor:      5,
	}
	score := RiskScore(in)
	if score < 0 || score > 1 {
		t.Errorf("risk = %v out of range", score)
	}
	if score < 0.9 {
		t.Errorf("worst-case risk = %v, want near 1", score)
	}

	calm := RiskScore(RiskInputs{Trajectory: fact.TrajStable, BusFactor: 5, MaxBusFactor: 5})
	if calm > 0.1 {
		t.Errorf("best-case risk = %v, want near 0.06 (stable instability floor)", calm)
	}
}

func TestInstabilityFactor(t *testing.T) {
	if instabilityFactor(fact.TrajChurning) != 1.0 || instabilityFactor(fact.TrajSpiking) != 1.0 {
		t.Error("churning/spiking must contribute the full instability factor")
	}
	if instabilityFactor(fact.TrajStable) != 0.3 {
		t.Error("stable trajectory must contribute the 0.3 floor")
	}
}

func TestWiringQualityGuards(t *testing.T) {
	// Zero denominators must not blow up.
	q := WiringQuality(false, 0, 0, 0, 0, 0)
	if q != 1 {
		t.Errorf("clean file wiring quality = %v, want 1", q)
	}
	q = WiringQuality(true, 1, 5, 5, 0, 0)
	if q < 0 || q > 1 {
		t.Errorf("wiring quality out of range: %v", q)
	}
}

func TestModuleHealthRedistribution(t *testing.T) {
	base := HealthInputs{
		Cohesion:          0.8,
		Coupling:          0.2,
		BoundaryAlignment: 0.9,
		RoleConsistency:   1.0,
		MeanStubRatio:     0.0,
	}
	dist := 0.0
	withDist := base
	withDist.Distance = &dist

	full := ModuleHealth(withDist)
	missing := ModuleHealth(base)

	if full < 0 || full > 1 || missing < 0 || missing > 1 {
		t.Fatalf("health out of range: %v / %v", full, missing)
	}
	// With D = 0 the main-seq term is perfect, so dropping it must not
	// raise the score.
	if missing > full+1e-9 {
		t.Errorf("redistribution raised score: %v > %v", missing, full)
	}

	// Redistribution must renormalize: identical term values give the
	// same score with and without the distance term.
	uniform := HealthInputs{Cohesion: 0.7, Coupling: 0.3, BoundaryAlignment: 0.7, RoleConsistency: 0.7, MeanStubRatio: 0.3}
	d := 0.3
	uniformWith := uniform
	uniformWith.Distance = &d
	if math.Abs(ModuleHealth(uniform)-ModuleHealth(uniformWith)) > 1e-9 {
		t.Errorf("uniform redistribution mismatch: %v vs %v",
			ModuleHealth(uniform), ModuleHealth(uniformWith))
	}
}

func TestDisplayScale(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{0, 1.0},
		{0.04, 1.0},
		{0.55, 5.5},
		{1, 10.0},
		{0.9999, 10.0},
	}
	for _, tt := range tests {
		if got := Display(tt.x); got != tt.want {
			t.Errorf("Display(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestHealthLaplacianScenario(t *testing.T) {
	// A->C, B->C, C->D, C->E with risk {A:.20 B:.25 C:.75 D:.15 E:.18}.
	risk := []float64{0.20, 0.25, 0.75, 0.15, 0.18}
	neighbors := [][]int{
		{2},          // A
		{2},          // B
		{0, 1, 3, 4}, // C
		{2},          // D
		{2},          // E
	}
	delta := HealthLaplacian(risk, neighbors)
	if math.Abs(delta[2]-0.555) > 1e-9 {
		t.Errorf("delta(C) = %v, want 0.555", delta[2])
	}
}

func TestHealthLaplacianConstantField(t *testing.T) {
	risk := []float64{0.4, 0.4, 0.4, 0.4}
	neighbors := [][]int{{1, 2}, {0, 3}, {0}, {1}}
	for i, d := range HealthLaplacian(risk, neighbors) {
		if math.Abs(d) > 1e-12 {
			t.Errorf("constant field delta[%d] = %v, want 0", i, d)
		}
	}
}

func TestHealthLaplacianIsolatedNode(t *testing.T) {
	delta := HealthLaplacian([]float64{0.9}, [][]int{nil})
	if delta[0] != 0 {
		t.Errorf("isolated delta = %v, want 0", delta[0])
	}
}

func TestCodebaseHealthBusTermCap(t *testing.T) {
	// Bus factor above team size saturates the term at 1.
	h1 := CodebaseHealth(0.5, 0.5, 10, 4, 0.5)
	h2 := CodebaseHealth(0.5, 0.5, 4, 4, 0.5)
	if h1 != h2 {
		t.Errorf("bus term not capped: %v vs %v", h1, h2)
	}
}
