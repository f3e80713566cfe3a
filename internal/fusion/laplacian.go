package fusion

import (
	"insight/internal/fact"
	"insight/internal/stats"
)

// RawRiskInputs carries pre-percentile raw values plus their per-signal
// corpus maxima. Percentile normalization flattens the field into a
// near-uniform distribution whose discrete Laplacian is ~0 everywhere;
// raw values keep the variation the operator needs.
type RawRiskInputs struct {
	PageRank         float64
	MaxPageRank      float64
	BlastRadius      float64
	MaxBlastRadius   float64
	CognitiveLoad    float64
	MaxCognitiveLoad float64
	Trajectory       fact.Trajectory
	BusFactor        float64
	MaxBusFactor     float64
}

// RawRisk computes the risk field value from raw signals, each divided
// by its corpus max. A zero max contributes 0 for that term.
func RawRisk(in RawRiskInputs) float64 {
	norm := func(v, max float64) float64 {
		if max <= 0 {
			return 0
		}
		return v / max
	}
	busTerm := 0.0
	if in.MaxBusFactor > 0 {
		busTerm = 1 - in.BusFactor/in.MaxBusFactor
	}
	score := riskWeights["pagerank"]*norm(in.PageRank, in.MaxPageRank) +
		riskWeights["blast"]*norm(in.BlastRadius, in.MaxBlastRadius) +
		riskWeights["cognitive_load"]*norm(in.CognitiveLoad, in.MaxCognitiveLoad) +
		riskWeights["instability"]*instabilityFactor(in.Trajectory) +
		riskWeights["bus_factor"]*busTerm
	return stats.Clamp01(score)
}

// HealthLaplacian computes the discrete Laplacian of the raw risk field:
// delta(f) = risk(f) - mean(risk over N(f)), where N(f) is the
// undirected import neighborhood. Files with no neighbors get 0, and a
// constant field maps to the zero field.
func HealthLaplacian(risk []float64, neighbors [][]int) []float64 {
	out := make([]float64, len(risk))
	for i, ns := range neighbors {
		if len(ns) == 0 {
			continue
		}
		sum := 0.0
		for _, n := range ns {
			sum += risk[n]
		}
		out[i] = risk[i] - sum/float64(len(ns))
	}
	return out
}
