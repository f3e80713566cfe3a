package fusion

import (
	"fmt"
	"math"

	"insight/internal/fact"
	"insight/internal/stats"
)

// Composite weight tables. Every table must sum to 1.0; ValidateWeights
// enforces this at startup and a mismatch is a fatal configuration
// error.
var (
	riskWeights = map[string]float64{
		"pagerank":       0.25,
		"blast":          0.20,
		"cognitive_load": 0.20,
		"instability":    0.20,
		"bus_factor":     0.15,
	}
	wiringQualityWeights = map[string]float64{
		"orphan":       0.30,
		"stub":         0.25,
		"phantom":      0.25,
		"broken_calls": 0.20,
	}
	healthWeights = map[string]float64{
		"cohesion": 0.20,
		"coupling": 0.15,
		"main_seq": 0.20,
		"boundary": 0.15,
		"roles":    0.15,
		"stubs":    0.15,
	}
	wiringScoreWeights = map[string]float64{
		"orphan_ratio":  0.25,
		"phantom_ratio": 0.25,
		"glue_deficit":  0.20,
		"mean_stub":     0.15,
		"clone_ratio":   0.15,
	}
	archHealthWeights = map[string]float64{
		"violations": 0.25,
		"cohesion":   0.20,
		"coupling":   0.20,
		"distance":   0.20,
		"boundary":   0.15,
	}
	codebaseHealthWeights = map[string]float64{
		"architecture": 0.30,
		"wiring":       0.30,
		"bus_factor":   0.20,
		"modularity":   0.20,
	}
)

// ValidateWeights checks every composite weight table for closure.
func ValidateWeights() error {
	tables := map[string]map[string]float64{
		"risk_score":          riskWeights,
		"wiring_quality":      wiringQualityWeights,
		"health_score":        healthWeights,
		"wiring_score":        wiringScoreWeights,
		"architecture_health": archHealthWeights,
		"codebase_health":     codebaseHealthWeights,
	}
	for name, table := range tables {
		sum := 0.0
		for _, w := range table {
			sum += w
		}
		if math.Abs(sum-1.0) > 1e-6 {
			return fmt.Errorf("composite %s: weights sum to %v, want 1.0", name, sum)
		}
	}
	return nil
}

// instabilityFactor maps the churn trajectory into the risk formula.
func instabilityFactor(traj fact.Trajectory) float64 {
	if traj == fact.TrajChurning || traj == fact.TrajSpiking {
		return 1.0
	}
	return 0.3
}

// RiskInputs carries the file-level risk ingredients. The percentile
// fields are already normalized to [0,1]; BusFactor is raw with the
// corpus max alongside.
type RiskInputs struct {
	PageRankPctl      float64
	BlastPctl         float64
	CognitiveLoadPctl float64
	Trajectory        fact.Trajectory
	BusFactor         float64
	MaxBusFactor      float64
}

// RiskScore fuses centrality, reach, load, instability, and knowledge
// concentration into the per-file risk composite.
func RiskScore(in RiskInputs) float64 {
	busTerm := 0.0
	if in.MaxBusFactor > 0 {
		busTerm = 1 - in.BusFactor/in.MaxBusFactor
	}
	score := riskWeights["pagerank"]*in.PageRankPctl +
		riskWeights["blast"]*in.BlastPctl +
		riskWeights["cognitive_load"]*in.CognitiveLoadPctl +
		riskWeights["instability"]*instabilityFactor(in.Trajectory) +
		riskWeights["bus_factor"]*busTerm
	return stats.Clamp01(score)
}

// WiringQuality scores how cleanly a file is wired into the graph.
// Ratios guard against zero denominators with max(denom, 1).
func WiringQuality(isOrphan bool, stubRatio float64, phantomImports, importCount, brokenCalls, totalCalls int) float64 {
	orphan := 0.0
	if isOrphan {
		orphan = 1.0
	}
	penalty := wiringQualityWeights["orphan"]*orphan +
		wiringQualityWeights["stub"]*stubRatio +
		wiringQualityWeights["phantom"]*float64(phantomImports)/math.Max(float64(importCount), 1) +
		wiringQualityWeights["broken_calls"]*float64(brokenCalls)/math.Max(float64(totalCalls), 1)
	return stats.Clamp01(1 - penalty)
}

// HealthInputs carries the module health ingredients. Distance is nil
// when instability is null; its weight is then redistributed
// proportionally over the remaining terms.
type HealthInputs struct {
	Cohesion          float64
	Coupling          float64
	Distance          *float64
	BoundaryAlignment float64
	RoleConsistency   float64
	MeanStubRatio     float64
}

// ModuleHealth computes the weighted module health composite.
func ModuleHealth(in HealthInputs) float64 {
	terms := map[string]float64{
		"cohesion": in.Cohesion,
		"coupling": 1 - in.Coupling,
		"boundary": in.BoundaryAlignment,
		"roles":    in.RoleConsistency,
		"stubs":    1 - in.MeanStubRatio,
	}
	weights := map[string]float64{
		"cohesion": healthWeights["cohesion"],
		"coupling": healthWeights["coupling"],
		"boundary": healthWeights["boundary"],
		"roles":    healthWeights["roles"],
		"stubs":    healthWeights["stubs"],
	}
	if in.Distance != nil {
		terms["main_seq"] = 1 - *in.Distance
		weights["main_seq"] = healthWeights["main_seq"]
	}

	totalWeight := 0.0
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	score := 0.0
	for name, w := range weights {
		score += (w / totalWeight) * terms[name]
	}
	return stats.Clamp01(score)
}

// WiringScore computes the global wiring composite from corpus ratios.
func WiringScore(orphanRatio, phantomRatio, glueDeficit, meanStub, cloneRatio float64) float64 {
	penalty := wiringScoreWeights["orphan_ratio"]*orphanRatio +
		wiringScoreWeights["phantom_ratio"]*phantomRatio +
		wiringScoreWeights["glue_deficit"]*glueDeficit +
		wiringScoreWeights["mean_stub"]*meanStub +
		wiringScoreWeights["clone_ratio"]*cloneRatio
	return stats.Clamp01(1 - penalty)
}

// ArchitectureHealth computes the global architecture composite.
func ArchitectureHealth(violationRate, meanCohesion, meanCoupling, meanDistance, meanAlignment float64) float64 {
	score := archHealthWeights["violations"]*(1-violationRate) +
		archHealthWeights["cohesion"]*meanCohesion +
		archHealthWeights["coupling"]*(1-meanCoupling) +
		archHealthWeights["distance"]*(1-meanDistance) +
		archHealthWeights["boundary"]*meanAlignment
	return stats.Clamp01(score)
}

// CodebaseHealth fuses the top-level composites. Finding density is
// deliberately absent: composites feed finders, so folding finding
// counts back in would create a cycle.
func CodebaseHealth(archHealth, wiringScore, globalBusFactor, teamSize, modularity float64) float64 {
	busTerm := 0.0
	if teamSize > 0 {
		busTerm = math.Min(globalBusFactor, teamSize) / teamSize
	}
	score := codebaseHealthWeights["architecture"]*archHealth +
		codebaseHealthWeights["wiring"]*wiringScore +
		codebaseHealthWeights["bus_factor"]*busTerm +
		codebaseHealthWeights["modularity"]*modularity
	return stats.Clamp01(score)
}

// Display converts a unit-interval composite to the 1.0-10.0 display
// scale: round(10x, 1) with a floor of 1.0.
func Display(x float64) float64 {
	v := math.Round(10*stats.Clamp01(x)*10) / 10
	if v < 1.0 {
		return 1.0
	}
	return v
}
