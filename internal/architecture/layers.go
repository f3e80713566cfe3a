package architecture

import (
	"sort"

	"insight/internal/graph"
)

// ViolationKind distinguishes the two illegal edge shapes.
type ViolationKind string

const (
	// ViolationBackward is an edge pointing to a lower layer.
	ViolationBackward ViolationKind = "backward"
	// ViolationSkip is a forward edge jumping two or more layers.
	ViolationSkip ViolationKind = "skip"
)

// Violation is one illegal cross-module edge.
type Violation struct {
	FromModule string
	ToModule   string
	FromLayer  int
	ToLayer    int
	Kind       ViolationKind
}

// Layering is the inferred layer structure of the module graph.
type Layering struct {
	LayerOf    map[string]int // module -> layer index
	Violations []Violation
}

// InferLayers builds the module dependency condensation (mutually
// dependent modules collapse into one layer), assigns each module the
// longest-path layer index from the sources, and flags backward edges
// and forward edges that skip two or more layers.
func InferLayers(deps map[[2]string]int) Layering {
	b := graph.NewBuilder()
	pairs := make([][2]string, 0, len(deps))
	for pair := range deps {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	for _, pair := range pairs {
		b.AddEdge(pair[0], pair[1], float64(deps[pair]))
	}
	g := b.Build()

	result := Layering{LayerOf: make(map[string]int)}
	if g.N() == 0 {
		return result
	}

	comps := graph.StronglyConnectedComponents(g)
	compOf, condEdges := graph.Condensation(g, comps)

	// Longest path over the condensation DAG, processed in topological
	// order (Tarjan emits components in reverse topological order).
	nc := len(comps)
	succ := make([][]int, nc)
	indeg := make([]int, nc)
	for _, e := range condEdges {
		succ[e[0]] = append(succ[e[0]], e[1])
		indeg[e[1]]++
	}
	layer := make([]int, nc)
	order := make([]int, 0, nc)
	queue := make([]int, 0, nc)
	for c := nc - 1; c >= 0; c-- {
		if indeg[c] == 0 {
			queue = append(queue, c)
		}
	}
	sort.Ints(queue)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		order = append(order, c)
		for _, nxt := range succ[c] {
			if layer[c]+1 > layer[nxt] {
				layer[nxt] = layer[c] + 1
			}
			indeg[nxt]--
			if indeg[nxt] == 0 {
				queue = append(queue, nxt)
			}
		}
	}

	for i := 0; i < g.N(); i++ {
		result.LayerOf[g.Key(i)] = layer[compOf[i]]
	}

	for _, pair := range pairs {
		from, to := result.LayerOf[pair[0]], result.LayerOf[pair[1]]
		switch {
		case to < from:
			result.Violations = append(result.Violations, Violation{
				FromModule: pair[0], ToModule: pair[1],
				FromLayer: from, ToLayer: to, Kind: ViolationBackward,
			})
		case to-from >= 2:
			result.Violations = append(result.Violations, Violation{
				FromModule: pair[0], ToModule: pair[1],
				FromLayer: from, ToLayer: to, Kind: ViolationSkip,
			})
		}
	}
	return result
}

// ViolationCounts tallies violations per offending (source) module.
func (l Layering) ViolationCounts() map[string]int {
	counts := make(map[string]int)
	for _, v := range l.Violations {
		counts[v.FromModule]++
	}
	return counts
}
