package graph

// betweennessSampleThreshold is the node count above which Brandes runs
// on a sampled set of sources instead of all of them.
const betweennessSampleThreshold = 5000

// betweennessMaxSources caps the sampled source count.
const betweennessMaxSources = 500

// Betweenness computes node betweenness centrality with Brandes'
// algorithm, normalized by (n-1)(n-2) for directed graphs. Above the
// sample threshold it accumulates from k evenly spaced sources and scales
// by n/k.
func Betweenness(g *Graph) []float64 {
	n := g.N()
	bc := make([]float64, n)
	if n < 3 {
		return bc
	}

	sources := make([]int, 0, n)
	scale := 1.0
	if n > betweennessSampleThreshold {
		k := betweennessMaxSources
		if k > n {
			k = n
		}
		// Evenly spaced sources keep the sample deterministic.
		step := n / k
		for s := 0; s < n && len(sources) < k; s += step {
			sources = append(sources, s)
		}
		scale = float64(n) / float64(len(sources))
	} else {
		for s := 0; s < n; s++ {
			sources = append(sources, s)
		}
	}

	// Scratch arrays reused across sources.
	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for _, s := range sources {
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			preds[i] = preds[i][:0]
		}
		stack = stack[:0]
		queue = queue[:0]

		sigma[s] = 1
		dist[s] = 0
		queue = append(queue, s)
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, e := range g.outEdges(v) {
				w := e.target
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		// Dependency accumulation in reverse BFS order.
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
			if w != s {
				bc[w] += delta[w]
			}
		}
	}

	norm := float64(n-1) * float64(n-2)
	for i := range bc {
		bc[i] = bc[i] * scale / norm
	}
	return bc
}
