// Package graph provides the dependency-graph algorithms of the engine:
// PageRank, Brandes betweenness, Tarjan SCC, blast-radius and depth
// traversals, and Louvain community detection. Graphs are compact CSR
// structures; nodes are referenced by index and mapped back to keys by
// the caller.
package graph

import "sort"

// edgeEntry is one adjacency slot: target node index plus weight.
type edgeEntry struct {
	target int
	weight float64
}

// Builder accumulates edges before freezing them into a Graph. Duplicate
// edges between the same ordered pair collapse by summing weights and
// self-loops are dropped, so every algorithm sees a simple digraph.
type Builder struct {
	keys   []string
	keyIdx map[string]int
	edges  map[[2]int]float64
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		keyIdx: make(map[string]int),
		edges:  make(map[[2]int]float64),
	}
}

// AddNode registers a node key, returning its index.
func (b *Builder) AddNode(key string) int {
	if i, ok := b.keyIdx[key]; ok {
		return i
	}
	i := len(b.keys)
	b.keys = append(b.keys, key)
	b.keyIdx[key] = i
	return i
}

// AddEdge adds a weighted directed edge, creating nodes as needed.
func (b *Builder) AddEdge(from, to string, weight float64) {
	if from == to {
		return
	}
	u := b.AddNode(from)
	v := b.AddNode(to)
	b.edges[[2]int{u, v}] += weight
}

// Build freezes the accumulated edges into CSR form.
func (b *Builder) Build() *Graph {
	n := len(b.keys)
	g := &Graph{
		keys:   b.keys,
		keyIdx: b.keyIdx,
	}

	outDeg := make([]int, n)
	inDeg := make([]int, n)
	type edge struct {
		u, v int
		w    float64
	}
	edges := make([]edge, 0, len(b.edges))
	for pair, w := range b.edges {
		edges = append(edges, edge{pair[0], pair[1], w})
		outDeg[pair[0]]++
		inDeg[pair[1]]++
	}
	// Deterministic CSR layout regardless of map iteration order.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].u != edges[j].u {
			return edges[i].u < edges[j].u
		}
		return edges[i].v < edges[j].v
	})

	g.outOff = make([]int, n+1)
	g.inOff = make([]int, n+1)
	for i := 0; i < n; i++ {
		g.outOff[i+1] = g.outOff[i] + outDeg[i]
		g.inOff[i+1] = g.inOff[i] + inDeg[i]
	}
	g.out = make([]edgeEntry, len(edges))
	g.in = make([]edgeEntry, len(edges))

	outPos := make([]int, n)
	copy(outPos, g.outOff[:n])
	inPos := make([]int, n)
	copy(inPos, g.inOff[:n])
	for _, e := range edges {
		g.out[outPos[e.u]] = edgeEntry{target: e.v, weight: e.w}
		outPos[e.u]++
		g.in[inPos[e.v]] = edgeEntry{target: e.u, weight: e.w}
		inPos[e.v]++
	}
	// Reverse adjacency arrives grouped by target but ordered by source
	// insertion; sort each slice for determinism.
	for v := 0; v < n; v++ {
		seg := g.in[g.inOff[v]:g.inOff[v+1]]
		sort.Slice(seg, func(i, j int) bool { return seg[i].target < seg[j].target })
	}
	return g
}

// Graph is a simple weighted digraph in CSR representation with a reverse
// index. Immutable after Build.
type Graph struct {
	keys   []string
	keyIdx map[string]int

	outOff []int
	out    []edgeEntry
	inOff  []int
	in     []edgeEntry
}

// N returns the node count.
func (g *Graph) N() int { return len(g.keys) }

// M returns the edge count.
func (g *Graph) M() int { return len(g.out) }

// Key returns the key of node i.
func (g *Graph) Key(i int) string { return g.keys[i] }

// Index returns the index of a node key.
func (g *Graph) Index(key string) (int, bool) {
	i, ok := g.keyIdx[key]
	return i, ok
}

// OutDegree returns the out-degree of node u.
func (g *Graph) OutDegree(u int) int { return g.outOff[u+1] - g.outOff[u] }

// InDegree returns the in-degree of node u.
func (g *Graph) InDegree(u int) int { return g.inOff[u+1] - g.inOff[u] }

// outEdges returns the contiguous outgoing slice of node u.
func (g *Graph) outEdges(u int) []edgeEntry { return g.out[g.outOff[u]:g.outOff[u+1]] }

// inEdges returns the contiguous incoming slice of node u.
func (g *Graph) inEdges(u int) []edgeEntry { return g.in[g.inOff[u]:g.inOff[u+1]] }

// Successors returns the out-neighbor indices of u.
func (g *Graph) Successors(u int) []int {
	es := g.outEdges(u)
	out := make([]int, len(es))
	for i, e := range es {
		out[i] = e.target
	}
	return out
}

// Predecessors returns the in-neighbor indices of u.
func (g *Graph) Predecessors(u int) []int {
	es := g.inEdges(u)
	out := make([]int, len(es))
	for i, e := range es {
		out[i] = e.target
	}
	return out
}

// Neighbors returns the undirected neighborhood of u (union of in and
// out neighbors, deduplicated, sorted).
func (g *Graph) Neighbors(u int) []int {
	seen := make(map[int]bool)
	for _, e := range g.outEdges(u) {
		seen[e.target] = true
	}
	for _, e := range g.inEdges(u) {
		seen[e.target] = true
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// WeaklyConnectedComponents returns components as sorted index slices,
// ordered by their smallest member.
func (g *Graph) WeaklyConnectedComponents() [][]int {
	n := g.N()
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}
	var comps [][]int
	for start := 0; start < n; start++ {
		if comp[start] >= 0 {
			continue
		}
		id := len(comps)
		queue := []int{start}
		comp[start] = id
		members := []int{start}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, e := range g.outEdges(u) {
				if comp[e.target] < 0 {
					comp[e.target] = id
					queue = append(queue, e.target)
					members = append(members, e.target)
				}
			}
			for _, e := range g.inEdges(u) {
				if comp[e.target] < 0 {
					comp[e.target] = id
					queue = append(queue, e.target)
					members = append(members, e.target)
				}
			}
		}
		sort.Ints(members)
		comps = append(comps, members)
	}
	return comps
}

// UndirectedAdjacency returns, for each node, the symmetrized weighted
// adjacency (weights of antiparallel edges summed). Used by Louvain and
// the spectral Laplacian.
func (g *Graph) UndirectedAdjacency() []map[int]float64 {
	n := g.N()
	adj := make([]map[int]float64, n)
	for i := range adj {
		adj[i] = make(map[int]float64)
	}
	for u := 0; u < n; u++ {
		for _, e := range g.outEdges(u) {
			adj[u][e.target] += e.weight
			adj[e.target][u] += e.weight
		}
	}
	return adj
}
