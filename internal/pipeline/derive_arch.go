package pipeline

import (
	"context"
	"math"
	"sort"

	"insight/internal/architecture"
	"insight/internal/fact"
	"insight/internal/stats"
	"insight/internal/temporal"
)

// archDeriver detects modules and derives every module-level signal plus
// the global wiring ratios. It runs in its own wave (after graph and
// temporal) because it creates module entities and relations.
func archDeriver() *deriver {
	return &deriver{
		name:     "architecture",
		requires: []fact.Signal{fact.SigCommunity, fact.SigCognitiveLoad, fact.SigTotalChanges},
		provides: []fact.Signal{
			fact.SigCohesion, fact.SigCoupling, fact.SigInstability,
			fact.SigAbstractness, fact.SigMainSeqDistance,
			fact.SigBoundaryAlignment, fact.SigLayerViolationCount,
			fact.SigRoleConsistency, fact.SigVelocity,
			fact.SigCoordinationCost, fact.SigKnowledgeGini,
			fact.SigModuleBusFactor, fact.SigMeanCognitiveLoad,
			fact.SigFileCount, fact.SigPhantomRatio, fact.SigGlueDeficit,
		},
		run: runArchDeriver,
	}
}

func runArchDeriver(ctx context.Context, st *runState) {
	store := st.store
	files := store.Files()
	if len(files) == 0 {
		return
	}

	// Communities by path, from the graph deriver when it ran.
	communities := make(map[string]int)
	for _, f := range files {
		if c, ok := store.Enumv(f.ID(), fact.SigCommunity); ok {
			communities[f.Path] = c
		}
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	det := architecture.DetectModules(paths, communities)

	// Create module entities and membership relations.
	moduleFiles := make(map[string][]string)
	for _, f := range files {
		name := det.Assign[f.Path]
		f.Module = name
		moduleFiles[name] = append(moduleFiles[name], f.Path)
	}
	moduleNames := make([]string, 0, len(moduleFiles))
	for name := range moduleFiles {
		moduleNames = append(moduleNames, name)
	}
	sort.Strings(moduleNames)
	for _, name := range moduleNames {
		m := store.AddModule(name, det.Dirs[name])
		for _, path := range moduleFiles[name] {
			store.AddRelation(fact.RelInModule, fact.FileID(path), m.ID(), 1)
		}
	}

	// File-level import edges aggregated to module level.
	var fileEdges []architecture.FileEdge
	for _, e := range store.Relations().All(fact.RelImports) {
		fileEdges = append(fileEdges, architecture.FileEdge{From: e.From.Key, To: e.To.Key})
	}
	sort.Slice(fileEdges, func(i, j int) bool {
		if fileEdges[i].From != fileEdges[j].From {
			return fileEdges[i].From < fileEdges[j].From
		}
		return fileEdges[i].To < fileEdges[j].To
	})

	symbols := make(map[string]architecture.SymbolCounts)
	for _, f := range files {
		sd := st.scans[f.Path]
		if sd == nil {
			continue
		}
		sc := symbols[f.Module]
		sc.Abstract += sd.abstractCount
		sc.Total += sd.symbolCount
		symbols[f.Module] = sc
	}

	martin := architecture.ComputeMartin(det.Assign, fileEdges, symbols)
	deps := architecture.ModuleDeps(det.Assign, fileEdges)
	layering := architecture.InferLayers(deps)
	violations := layering.ViolationCounts()

	depPairs := make([][2]string, 0, len(deps))
	for pair := range deps {
		depPairs = append(depPairs, pair)
	}
	sort.Slice(depPairs, func(i, j int) bool {
		if depPairs[i][0] != depPairs[j][0] {
			return depPairs[i][0] < depPairs[j][0]
		}
		return depPairs[i][1] < depPairs[j][1]
	})
	for _, pair := range depPairs {
		store.AddRelation(fact.RelDependsOn, fact.ModuleID(pair[0]), fact.ModuleID(pair[1]), float64(deps[pair]))
	}

	temporalAvailable := store.Has(fact.SigTotalChanges)

	for _, name := range moduleNames {
		select {
		case <-ctx.Done():
			return
		default:
		}
		m, _ := store.ModuleByName(name)
		id := m.ID()
		members := moduleFiles[name]

		store.Set(id, fact.SigFileCount, fact.Int(int64(len(members))))

		intra, cross := moduleEdgeCounts(name, det.Assign, fileEdges)
		if total := intra + cross; total > 0 {
			store.Set(id, fact.SigCohesion, fact.Float(float64(intra)/float64(total)))
		} else {
			store.Set(id, fact.SigCohesion, fact.Float(0))
		}
		store.Set(id, fact.SigCoupling, fact.Float(moduleCoupling(name, deps, len(moduleNames))))

		if mm := martin[name]; mm != nil {
			store.Set(id, fact.SigAbstractness, fact.Float(mm.Abstractness))
			if mm.Instability != nil {
				store.Set(id, fact.SigInstability, fact.Float(*mm.Instability))
			}
			if mm.Distance != nil {
				store.Set(id, fact.SigMainSeqDistance, fact.Float(*mm.Distance))
			}
		}

		store.Set(id, fact.SigBoundaryAlignment, fact.Float(architecture.BoundaryAlignment(members, communities)))
		store.Set(id, fact.SigLayerViolationCount, fact.Int(int64(violations[name])))
		store.Set(id, fact.SigRoleConsistency, fact.Float(roleConsistency(st, members)))
		store.Set(id, fact.SigMeanCognitiveLoad, fact.Float(meanFileSignal(st, members, fact.SigCognitiveLoad)))

		if temporalAvailable {
			setModuleTemporalSignals(st, id, members)
		}
	}

	// Global wiring ratios.
	root := store.Codebase().ID()
	phantomFiles := 0
	for _, f := range files {
		if v, ok := store.Intv(f.ID(), fact.SigPhantomImportCount); ok && v > 0 {
			phantomFiles++
		}
	}
	store.Set(root, fact.SigPhantomRatio, fact.Float(float64(phantomFiles)/float64(len(files))))

	glue := 0.0
	if st.graph != nil && st.graph.N() > 0 {
		comps := len(st.graph.WeaklyConnectedComponents())
		glue = stats.Clamp01(float64(comps-1) / math.Max(float64(len(moduleNames)), 1))
	} else {
		glue = 1
	}
	store.Set(root, fact.SigGlueDeficit, fact.Float(glue))
}

// moduleEdgeCounts tallies intra-module and boundary-crossing edges for
// one module.
func moduleEdgeCounts(name string, assign map[string]string, edges []architecture.FileEdge) (intra, cross int) {
	for _, e := range edges {
		fromMod, toMod := assign[e.From], assign[e.To]
		switch {
		case fromMod == name && toMod == name:
			intra++
		case fromMod == name || toMod == name:
			cross++
		}
	}
	return intra, cross
}

// moduleCoupling is the fraction of other modules this module depends
// on.
func moduleCoupling(name string, deps map[[2]string]int, moduleCount int) float64 {
	if moduleCount <= 1 {
		return 0
	}
	targets := make(map[string]bool)
	for pair := range deps {
		if pair[0] == name {
			targets[pair[1]] = true
		}
	}
	return float64(len(targets)) / float64(moduleCount-1)
}

// roleConsistency is the modal role fraction over a module's files.
func roleConsistency(st *runState, members []string) float64 {
	if len(members) == 0 {
		return 1
	}
	counts := make(map[int]int)
	known := 0
	for _, path := range members {
		if role, ok := st.store.Enumv(fact.FileID(path), fact.SigRole); ok {
			counts[role]++
			known++
		}
	}
	if known == 0 {
		return 1
	}
	modal := 0
	for _, c := range counts {
		if c > modal {
			modal = c
		}
	}
	return float64(modal) / float64(known)
}

// meanFileSignal averages a numeric file signal over module members.
func meanFileSignal(st *runState, members []string, sig fact.Signal) float64 {
	var values []float64
	for _, path := range members {
		if v, ok := st.store.Float(fact.FileID(path), sig); ok {
			values = append(values, v)
		}
	}
	return stats.Mean(values)
}

// setModuleTemporalSignals aggregates authorship and velocity over the
// module's files from the temporal analysis.
func setModuleTemporalSignals(st *runState, id fact.EntityID, members []string) {
	store := st.store
	res := st.temporal

	authorCommits := make(map[string]int)
	totalTouches := 0
	for _, path := range members {
		fh := res.Files[path]
		if fh == nil {
			continue
		}
		totalTouches += fh.TotalChanges
		for email, count := range fh.AuthorCommits {
			authorCommits[email] += count
		}
	}

	emails := make([]string, 0, len(authorCommits))
	for e := range authorCommits {
		emails = append(emails, e)
	}
	sort.Strings(emails)
	counts := make([]float64, 0, len(emails))
	for _, e := range emails {
		counts = append(counts, float64(authorCommits[e]))
	}

	entropy := stats.Entropy(counts)
	store.Set(id, fact.SigModuleBusFactor, fact.Float(math.Exp2(entropy)))
	store.Set(id, fact.SigKnowledgeGini, fact.Float(stats.Gini(counts)))

	// Coordination cost grows with the number of heads that must agree.
	authors := len(counts)
	cost := 0.0
	if authors > 1 {
		cost = 1 - 1/float64(authors)
	}
	store.Set(id, fact.SigCoordinationCost, fact.Float(cost))

	windows := temporalWindowCount(res)
	if windows > 0 {
		store.Set(id, fact.SigVelocity, fact.Float(float64(totalTouches)/float64(windows)))
	}
}

// temporalWindowCount is the number of 4-week windows in the history.
func temporalWindowCount(res *temporal.Result) int {
	if res == nil || res.HistoryEnd < res.HistoryStart {
		return 0
	}
	return int((res.HistoryEnd-res.HistoryStart)/(4*7*24*3600)) + 1
}
