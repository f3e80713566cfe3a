// Package fusion turns raw signals into comparable scores: tier
// selection, polarity-aware percentile normalization, the composite
// score formulas, and the discrete health Laplacian over the dependency
// neighborhood.
package fusion

import "sort"

// Tier governs whether percentiles and composites are computed, selected
// purely by file count after filtering.
type Tier int

const (
	// TierAbsolute: raw signals with absolute thresholds only.
	TierAbsolute Tier = iota
	// TierBayesian: regularized percentiles with a flat prior.
	TierBayesian
	// TierFull: empirical percentiles.
	TierFull
)

// Tier boundaries by file count.
const (
	bayesianMinFiles = 15
	fullMinFiles     = 50
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierAbsolute:
		return "ABSOLUTE"
	case TierBayesian:
		return "BAYESIAN"
	case TierFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// SelectTier maps the filtered file count to a tier.
func SelectTier(fileCount int) Tier {
	switch {
	case fileCount < bayesianMinFiles:
		return TierAbsolute
	case fileCount < fullMinFiles:
		return TierBayesian
	default:
		return TierFull
	}
}

// Percentiles computes the percentile of each sample value under the
// given tier. FULL uses pctl(v) = |{u : u <= v}| / n; BAYESIAN
// regularizes with a flat Beta(1,1) prior: (1 + rank) / (2 + n).
// ABSOLUTE returns nil: no percentiles exist in that tier.
func Percentiles(values []float64, tier Tier) []float64 {
	n := len(values)
	if n == 0 || tier == TierAbsolute {
		return nil
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	out := make([]float64, n)
	for i, v := range values {
		// rank = |{u : u <= v}| via upper bound on the sorted sample.
		rank := sort.Search(n, func(k int) bool { return sorted[k] > v })
		switch tier {
		case TierFull:
			out[i] = float64(rank) / float64(n)
		case TierBayesian:
			out[i] = (1 + float64(rank)) / (2 + float64(n))
		}
	}
	return out
}
