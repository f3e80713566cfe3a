package graph

import "math"

// PageRankOptions configures the power iteration.
type PageRankOptions struct {
	Damping       float64
	MaxIterations int
	Tolerance     float64
}

// DefaultPageRankOptions returns the standard damping and convergence
// parameters.
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{
		Damping:       0.85,
		MaxIterations: 50,
		Tolerance:     1e-6,
	}
}

// PageRank computes the damped stationary distribution per weakly
// connected component, normalized within each component. Dangling mass is
// redistributed uniformly over the component so scores stay a
// distribution. An empty graph yields an empty slice.
func PageRank(g *Graph, opts PageRankOptions) []float64 {
	n := g.N()
	ranks := make([]float64, n)
	if n == 0 {
		return ranks
	}
	if opts.Damping == 0 {
		opts = DefaultPageRankOptions()
	}

	for _, comp := range g.WeaklyConnectedComponents() {
		pageRankComponent(g, comp, opts, ranks)
	}
	return ranks
}

func pageRankComponent(g *Graph, comp []int, opts PageRankOptions, ranks []float64) {
	n := len(comp)
	if n == 1 {
		ranks[comp[0]] = 1
		return
	}
	local := make(map[int]int, n) // global index -> component slot
	for i, v := range comp {
		local[v] = i
	}

	cur := make([]float64, n)
	next := make([]float64, n)
	for i := range cur {
		cur[i] = 1 / float64(n)
	}

	d := opts.Damping
	base := (1 - d) / float64(n)

	for iter := 0; iter < opts.MaxIterations; iter++ {
		dangling := 0.0
		for i, v := range comp {
			if g.OutDegree(v) == 0 {
				dangling += cur[i]
			}
		}
		for i := range next {
			next[i] = base + d*dangling/float64(n)
		}
		for i, v := range comp {
			deg := g.OutDegree(v)
			if deg == 0 {
				continue
			}
			share := d * cur[i] / float64(deg)
			for _, e := range g.outEdges(v) {
				next[local[e.target]] += share
			}
		}

		maxDelta := 0.0
		for i := range cur {
			if delta := math.Abs(next[i] - cur[i]); delta > maxDelta {
				maxDelta = delta
			}
		}
		cur, next = next, cur
		if maxDelta < opts.Tolerance {
			break
		}
	}

	// Normalize within the component.
	sum := 0.0
	for _, r := range cur {
		sum += r
	}
	for i, v := range comp {
		if sum > 0 {
			ranks[v] = cur[i] / sum
		}
	}
}
