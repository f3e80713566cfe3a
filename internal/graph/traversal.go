package graph

// BlastRadius returns, for each node, the number of other nodes that can
// reach it: a BFS over the reversed adjacency per node. The value is the
// reachable set size minus the node itself.
func BlastRadius(g *Graph) []int {
	n := g.N()
	out := make([]int, n)
	visited := make([]int, n)
	for i := range visited {
		visited[i] = -1
	}
	queue := make([]int, 0, n)

	for v := 0; v < n; v++ {
		count := 0
		queue = queue[:0]
		queue = append(queue, v)
		visited[v] = v
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, e := range g.inEdges(u) {
				if visited[e.target] != v {
					visited[e.target] = v
					count++
					queue = append(queue, e.target)
				}
			}
		}
		out[v] = count
	}
	return out
}

// Depth assigns each node its longest relaxation distance from the entry
// set: entries start at 0, edges relax depth[v] = max(depth[v],
// depth[u]+1), and a node still at -1 afterwards is unreachable. Cycles
// are bounded by the node count, so relaxation terminates.
func Depth(g *Graph, entries []int) []int {
	n := g.N()
	depth := make([]int, n)
	for i := range depth {
		depth[i] = -1
	}
	queue := make([]int, 0, n)
	inQueue := make([]bool, n)
	for _, e := range entries {
		if e >= 0 && e < n {
			depth[e] = 0
			queue = append(queue, e)
			inQueue[e] = true
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		inQueue[u] = false
		for _, e := range g.outEdges(u) {
			v := e.target
			if cand := depth[u] + 1; cand > depth[v] && cand < n {
				depth[v] = cand
				if !inQueue[v] {
					queue = append(queue, v)
					inQueue[v] = true
				}
			}
		}
	}
	return depth
}
