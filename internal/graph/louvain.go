package graph

import "sort"

// louvainMaxPasses bounds the outer aggregation loop.
const louvainMaxPasses = 20

type louvainEdge struct {
	to int
	w  float64
}

// louvainGraph is the working representation: symmetric neighbor lists
// plus self-loop weights accumulated during aggregation.
type louvainGraph struct {
	nbrs [][]louvainEdge
	self []float64
}

func (lg *louvainGraph) n() int { return len(lg.nbrs) }

// degree returns k_i: neighbor weights plus twice the self-loop.
func (lg *louvainGraph) degree(i int) float64 {
	k := 2 * lg.self[i]
	for _, e := range lg.nbrs[i] {
		k += e.w
	}
	return k
}

// Louvain runs two-phase modularity maximization over the symmetrized
// graph and returns the community id per node plus the final modularity.
// Node iteration is in ascending index order and gain ties break toward
// the lower community id, so the result is deterministic.
func Louvain(g *Graph) (community []int, modularity float64) {
	return LouvainAdjacency(g.UndirectedAdjacency())
}

// LouvainAdjacency runs Louvain on a prebuilt symmetric adjacency. The
// input must satisfy adj[i][j] == adj[j][i]; diagonal entries are treated
// as self-loops.
func LouvainAdjacency(adj []map[int]float64) (community []int, modularity float64) {
	n := len(adj)
	if n == 0 {
		return nil, 0
	}

	lg := &louvainGraph{
		nbrs: make([][]louvainEdge, n),
		self: make([]float64, n),
	}
	for i, row := range adj {
		keys := make([]int, 0, len(row))
		for j := range row {
			keys = append(keys, j)
		}
		sort.Ints(keys)
		for _, j := range keys {
			if j == i {
				lg.self[i] = row[j]
				continue
			}
			lg.nbrs[i] = append(lg.nbrs[i], louvainEdge{to: j, w: row[j]})
		}
	}

	// mapping[i] chains the per-level assignments back to original nodes.
	mapping := make([]int, n)
	for i := range mapping {
		mapping[i] = i
	}

	for pass := 0; pass < louvainMaxPasses; pass++ {
		comm, moved := louvainLocalPhase(lg)
		if !moved {
			break
		}
		comm = compactCommunities(comm)
		for i := range mapping {
			mapping[i] = comm[mapping[i]]
		}
		lg = aggregate(lg, comm)
	}

	return mapping, modularityOf(adj, mapping)
}

// louvainLocalPhase greedily moves nodes between communities until no
// move improves modularity. Returns the community per node and whether
// any node moved.
func louvainLocalPhase(lg *louvainGraph) (comm []int, moved bool) {
	n := lg.n()
	comm = make([]int, n)
	sumTot := make([]float64, n)
	k := make([]float64, n)
	m2 := 0.0
	for i := 0; i < n; i++ {
		comm[i] = i
		k[i] = lg.degree(i)
		sumTot[i] = k[i]
		m2 += k[i]
	}
	if m2 == 0 {
		return comm, false
	}

	improved := true
	for improved {
		improved = false
		for i := 0; i < n; i++ {
			kin := make(map[int]float64)
			for _, e := range lg.nbrs[i] {
				kin[comm[e.to]] += e.w
			}

			old := comm[i]
			sumTot[old] -= k[i]

			best := old
			bestGain := kin[old] - sumTot[old]*k[i]/m2
			cands := make([]int, 0, len(kin))
			for c := range kin {
				cands = append(cands, c)
			}
			sort.Ints(cands)
			for _, c := range cands {
				if c == old {
					continue
				}
				gain := kin[c] - sumTot[c]*k[i]/m2
				if gain > bestGain+1e-12 {
					best = c
					bestGain = gain
				} else if gain >= bestGain-1e-12 && c < best {
					best = c
				}
			}

			sumTot[best] += k[i]
			if best != old {
				comm[i] = best
				improved = true
				moved = true
			}
		}
	}
	return comm, moved
}

// compactCommunities renumbers community ids to 0..k-1 preserving the
// order of first appearance.
func compactCommunities(comm []int) []int {
	next := 0
	remap := make(map[int]int)
	out := make([]int, len(comm))
	for i, c := range comm {
		id, ok := remap[c]
		if !ok {
			id = next
			remap[c] = id
			next++
		}
		out[i] = id
	}
	return out
}

// aggregate folds each community into a single node.
func aggregate(lg *louvainGraph, comm []int) *louvainGraph {
	nc := 0
	for _, c := range comm {
		if c+1 > nc {
			nc = c + 1
		}
	}
	out := &louvainGraph{
		nbrs: make([][]louvainEdge, nc),
		self: make([]float64, nc),
	}
	acc := make([]map[int]float64, nc)
	for i := range acc {
		acc[i] = make(map[int]float64)
	}
	for i := 0; i < lg.n(); i++ {
		ci := comm[i]
		out.self[ci] += lg.self[i]
		for _, e := range lg.nbrs[i] {
			cj := comm[e.to]
			if ci == cj {
				// Intra edges are visited from both endpoints; halve.
				out.self[ci] += e.w / 2
			} else {
				acc[ci][cj] += e.w
			}
		}
	}
	for c := 0; c < nc; c++ {
		keys := make([]int, 0, len(acc[c]))
		for j := range acc[c] {
			keys = append(keys, j)
		}
		sort.Ints(keys)
		for _, j := range keys {
			out.nbrs[c] = append(out.nbrs[c], louvainEdge{to: j, w: acc[c][j]})
		}
	}
	return out
}

// modularityOf computes Q for an assignment over a symmetric adjacency.
func modularityOf(adj []map[int]float64, comm []int) float64 {
	n := len(adj)
	if n == 0 {
		return 0
	}
	k := make([]float64, n)
	m2 := 0.0
	for i, row := range adj {
		for j, w := range row {
			if j == i {
				k[i] += 2 * w
				m2 += 2 * w
			} else {
				k[i] += w
				m2 += w
			}
		}
	}
	if m2 == 0 {
		return 0
	}
	q := 0.0
	for i, row := range adj {
		for j, w := range row {
			if comm[i] != comm[j] {
				continue
			}
			a := w
			if i == j {
				a = 2 * w
			}
			q += a - k[i]*k[j]/m2
		}
	}
	return q / m2
}
