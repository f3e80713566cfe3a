package pipeline

import (
	"context"

	"insight/internal/fact"
	"insight/internal/graph"
	"insight/internal/stats"
)

// graphDeriver computes every pure-graph signal over the import graph
// built at Model: PageRank, betweenness, blast radius, depth, cycles,
// Louvain communities, and the derived orphan and centrality signals.
func graphDeriver() *deriver {
	return &deriver{
		name:     "graph",
		requires: []fact.Signal{fact.SigInDegree, fact.SigRole},
		provides: []fact.Signal{
			fact.SigPageRank, fact.SigBetweenness, fact.SigBlastRadiusSize,
			fact.SigDepth, fact.SigIsOrphan, fact.SigCommunity,
			fact.SigCycleCount, fact.SigCentralityGini, fact.SigOrphanRatio,
			fact.SigModularity,
		},
		run: runGraphDeriver,
	}
}

func runGraphDeriver(ctx context.Context, st *runState) {
	g := st.graph
	store := st.store
	root := store.Codebase().ID()
	files := store.Files()

	if g == nil || g.N() == 0 {
		// Resolver degradation: every file is an orphan, graph signals
		// fall back to identities.
		for _, f := range files {
			store.Set(f.ID(), fact.SigIsOrphan, fact.Bool(true))
		}
		store.Set(root, fact.SigCycleCount, fact.Int(0))
		store.Set(root, fact.SigModularity, fact.Float(0))
		store.Set(root, fact.SigCentralityGini, fact.Float(0))
		if n := len(files); n > 0 {
			store.Set(root, fact.SigOrphanRatio, fact.Float(1))
		}
		store.MarkUnavailable(fact.SigPageRank)
		store.MarkUnavailable(fact.SigBetweenness)
		store.MarkUnavailable(fact.SigBlastRadiusSize)
		store.MarkUnavailable(fact.SigDepth)
		return
	}

	pr := graph.PageRank(g, graph.DefaultPageRankOptions())
	select {
	case <-ctx.Done():
		return
	default:
	}
	bc := graph.Betweenness(g)
	blast := graph.BlastRadius(g)

	// Entries: role ENTRY_POINT or TEST, or no incoming edges.
	var entries []int
	for _, f := range files {
		i, ok := g.Index(f.Path)
		if !ok {
			continue
		}
		role, _ := store.Enumv(f.ID(), fact.SigRole)
		r := fact.FileRole(role)
		if r == fact.RoleEntryPoint || r == fact.RoleTest || g.InDegree(i) == 0 {
			entries = append(entries, i)
		}
	}
	depth := graph.Depth(g, entries)

	comps := graph.StronglyConnectedComponents(g)
	comm, modularity := graph.Louvain(g)
	st.communities = comm

	orphans := 0
	for _, f := range files {
		id := f.ID()
		i, ok := g.Index(f.Path)
		if !ok {
			// File exists but never entered the graph (parse failure).
			store.Set(id, fact.SigIsOrphan, fact.Bool(true))
			orphans++
			continue
		}
		store.Set(id, fact.SigPageRank, fact.Float(pr[i]))
		store.Set(id, fact.SigBetweenness, fact.Float(bc[i]))
		store.Set(id, fact.SigBlastRadiusSize, fact.Int(int64(blast[i])))
		store.Set(id, fact.SigDepth, fact.Int(int64(depth[i])))
		store.Set(id, fact.SigCommunity, fact.Enum(comm[i]))

		orphan := g.InDegree(i) == 0
		store.Set(id, fact.SigIsOrphan, fact.Bool(orphan))
		if orphan {
			orphans++
		}
	}

	store.Set(root, fact.SigCycleCount, fact.Int(int64(graph.CycleCount(comps))))
	store.Set(root, fact.SigModularity, fact.Float(stats.Clamp01(modularity)))
	store.Set(root, fact.SigCentralityGini, fact.Float(stats.Gini(pr)))
	if n := len(files); n > 0 {
		store.Set(root, fact.SigOrphanRatio, fact.Float(float64(orphans)/float64(n)))
	}
}
