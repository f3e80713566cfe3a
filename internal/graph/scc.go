package graph

import "sort"

// StronglyConnectedComponents runs an iterative Tarjan over the graph and
// returns components as arrays of node indices. Components come out in
// reverse topological order of the condensation; each is sorted
// internally. The implementation is explicitly non-recursive so deep
// graphs cannot overflow the stack.
func StronglyConnectedComponents(g *Graph) [][]int {
	n := g.N()
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var comps [][]int
	tarjanStack := make([]int, 0, n)
	counter := 0

	// Explicit DFS frame: node plus position in its successor slice.
	type frame struct {
		v    int
		edge int
	}
	frames := make([]frame, 0, n)

	for start := 0; start < n; start++ {
		if index[start] >= 0 {
			continue
		}
		frames = append(frames, frame{v: start})
		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			v := f.v
			if f.edge == 0 {
				index[v] = counter
				lowlink[v] = counter
				counter++
				tarjanStack = append(tarjanStack, v)
				onStack[v] = true
			}

			advanced := false
			out := g.outEdges(v)
			for f.edge < len(out) {
				w := out[f.edge].target
				f.edge++
				if index[w] < 0 {
					frames = append(frames, frame{v: w})
					advanced = true
					break
				}
				if onStack[w] && index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
			if advanced {
				continue
			}

			if lowlink[v] == index[v] {
				var comp []int
				for {
					w := tarjanStack[len(tarjanStack)-1]
					tarjanStack = tarjanStack[:len(tarjanStack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				sortInts(comp)
				comps = append(comps, comp)
			}

			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[v] < lowlink[parent.v] {
					lowlink[parent.v] = lowlink[v]
				}
			}
		}
	}
	return comps
}

// CycleCount returns the number of SCCs with more than one member.
func CycleCount(comps [][]int) int {
	count := 0
	for _, c := range comps {
		if len(c) > 1 {
			count++
		}
	}
	return count
}

// Condensation collapses SCCs into a DAG. The returned slice maps each
// node index to its component id; the edges are the distinct cross-
// component pairs.
func Condensation(g *Graph, comps [][]int) (compOf []int, edges [][2]int) {
	compOf = make([]int, g.N())
	for id, comp := range comps {
		for _, v := range comp {
			compOf[v] = id
		}
	}
	seen := make(map[[2]int]bool)
	for u := 0; u < g.N(); u++ {
		for _, e := range g.outEdges(u) {
			cu, cv := compOf[u], compOf[e.target]
			if cu == cv {
				continue
			}
			pair := [2]int{cu, cv}
			if !seen[pair] {
				seen[pair] = true
				edges = append(edges, pair)
			}
		}
	}
	sortPairs(edges)
	return compOf, edges
}

func sortInts(xs []int) { sort.Ints(xs) }

func sortPairs(ps [][2]int) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i][0] != ps[j][0] {
			return ps[i][0] < ps[j][0]
		}
		return ps[i][1] < ps[j][1]
	})
}
