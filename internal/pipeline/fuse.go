package pipeline

import (
	"math"

	"insight/internal/fact"
	"insight/internal/fusion"
	"insight/internal/stats"
)

// fuse runs the Fusion stage: tier selection, percentile normalization,
// composite scores, and the health Laplacian. In the ABSOLUTE tier no
// percentiles or composites are computed; finders see raw signals only.
func (st *runState) fuse(tierOverride string) {
	store := st.store
	fileCount := len(store.Files())

	switch tierOverride {
	case "absolute":
		st.tier = fusion.TierAbsolute
	case "bayesian":
		st.tier = fusion.TierBayesian
	case "full":
		st.tier = fusion.TierFull
	default:
		st.tier = fusion.SelectTier(fileCount)
	}

	if st.tier == fusion.TierAbsolute {
		return
	}

	// Percentiles for every percentileable file signal with data.
	st.pctl = make(map[fact.Signal][]float64)
	for sig := fact.Signal(0); sig < fact.NumSignals; sig++ {
		def := sig.Def()
		if def.Scope != fact.ScopeFile || !def.Percentileable || !store.Has(sig) {
			continue
		}
		ordinals, values := store.FileFloats(sig)
		pct := fusion.Percentiles(values, st.tier)
		col := make([]float64, fileCount)
		for i := range col {
			col[i] = math.NaN()
		}
		for i, ord := range ordinals {
			col[ord] = pct[i]
		}
		st.pctl[sig] = col
	}

	st.fileComposites()
	st.moduleComposites()
	st.globalComposites()
	st.healthLaplacian()
}

// filePctlAt reads a file percentile, defaulting when absent.
func (st *runState) filePctlAt(sig fact.Signal, ordinal int, fallback float64) float64 {
	col, ok := st.pctl[sig]
	if !ok || ordinal >= len(col) || math.IsNaN(col[ordinal]) {
		return fallback
	}
	return col[ordinal]
}

func (st *runState) fileComposites() {
	store := st.store
	_, busFactors := store.FileFloats(fact.SigBusFactor)
	maxBus := 0.0
	for _, b := range busFactors {
		if b > maxBus {
			maxBus = b
		}
	}

	for _, f := range store.Files() {
		id := f.ID()
		ord := f.Ordinal()

		traj := fact.TrajStable
		if t, ok := store.Enumv(id, fact.SigChurnTrajectory); ok {
			traj = fact.Trajectory(t)
		}
		bus := maxBus // neutral term when authorship data is missing
		if b, ok := store.Float(id, fact.SigBusFactor); ok {
			bus = b
		}
		risk := fusion.RiskScore(fusion.RiskInputs{
			PageRankPctl:      st.filePctlAt(fact.SigPageRank, ord, 0),
			BlastPctl:         st.filePctlAt(fact.SigBlastRadiusSize, ord, 0),
			CognitiveLoadPctl: st.filePctlAt(fact.SigCognitiveLoad, ord, 0),
			Trajectory:        traj,
			BusFactor:         bus,
			MaxBusFactor:      maxBus,
		})
		store.Set(id, fact.SigRiskScore, fact.Float(risk))

		orphan, _ := store.Boolv(id, fact.SigIsOrphan)
		stub, _ := store.Float(id, fact.SigStubRatio)
		phantoms, _ := store.Intv(id, fact.SigPhantomImportCount)
		imports, _ := store.Intv(id, fact.SigImportCount)
		broken, _ := store.Intv(id, fact.SigBrokenCallCount)
		quality := fusion.WiringQuality(orphan, stub, int(phantoms), int(imports), int(broken), 0)
		store.Set(id, fact.SigWiringQuality, fact.Float(quality))
	}
}

func (st *runState) moduleComposites() {
	store := st.store
	for _, m := range store.Modules() {
		id := m.ID()
		cohesion, _ := store.Float(id, fact.SigCohesion)
		coupling, _ := store.Float(id, fact.SigCoupling)
		boundary, _ := store.Float(id, fact.SigBoundaryAlignment)
		roles, _ := store.Float(id, fact.SigRoleConsistency)

		var members []string
		for _, e := range store.Relations().Incoming(id, fact.RelInModule) {
			members = append(members, e.From.Key)
		}
		meanStub := meanFileSignal(st, members, fact.SigStubRatio)

		in := fusion.HealthInputs{
			Cohesion:          cohesion,
			Coupling:          coupling,
			BoundaryAlignment: boundary,
			RoleConsistency:   roles,
			MeanStubRatio:     meanStub,
		}
		if d, ok := store.Float(id, fact.SigMainSeqDistance); ok {
			dist := d
			in.Distance = &dist
		}
		store.Set(id, fact.SigHealthScore, fact.Float(fusion.ModuleHealth(in)))
	}
}

func (st *runState) globalComposites() {
	store := st.store
	root := store.Codebase().ID()
	files := store.Files()
	fileCount := len(files)
	if fileCount == 0 {
		return
	}

	orphanRatio, _ := store.Float(root, fact.SigOrphanRatio)
	phantomRatio, _ := store.Float(root, fact.SigPhantomRatio)
	glueDeficit, _ := store.Float(root, fact.SigGlueDeficit)

	_, stubs := store.FileFloats(fact.SigStubRatio)
	meanStub := stats.Mean(stubs)

	cloneFiles := make(map[string]bool)
	for _, pair := range st.clones {
		cloneFiles[pair.A] = true
		cloneFiles[pair.B] = true
	}
	cloneRatio := float64(len(cloneFiles)) / float64(fileCount)

	wiring := fusion.WiringScore(orphanRatio, phantomRatio, glueDeficit, meanStub, cloneRatio)
	store.Set(root, fact.SigWiringScore, fact.Float(wiring))

	// Architecture health over module aggregates.
	var cohesions, couplings, distances, alignments []float64
	totalViolations := 0
	for _, m := range store.Modules() {
		id := m.ID()
		if v, ok := store.Float(id, fact.SigCohesion); ok {
			cohesions = append(cohesions, v)
		}
		if v, ok := store.Float(id, fact.SigCoupling); ok {
			couplings = append(couplings, v)
		}
		if v, ok := store.Float(id, fact.SigMainSeqDistance); ok {
			distances = append(distances, v)
		}
		if v, ok := store.Float(id, fact.SigBoundaryAlignment); ok {
			alignments = append(alignments, v)
		}
		if v, ok := store.Intv(id, fact.SigLayerViolationCount); ok {
			totalViolations += int(v)
		}
	}
	depEdges := store.Relations().Count(fact.RelDependsOn)
	violationRate := float64(totalViolations) / math.Max(float64(depEdges), 1)

	arch := fusion.ArchitectureHealth(
		stats.Clamp01(violationRate),
		stats.Mean(cohesions),
		stats.Mean(couplings),
		stats.Mean(distances),
		stats.Mean(alignments),
	)
	store.Set(root, fact.SigArchitectureHealth, fact.Float(arch))

	modularity, _ := store.Float(root, fact.SigModularity)
	globalBus := 0.0
	teamSize := float64(len(store.Authors()))
	if st.temporal != nil {
		globalBus = st.temporal.GlobalBusFactor()
	}
	health := fusion.CodebaseHealth(arch, wiring, globalBus, teamSize, modularity)
	store.Set(root, fact.SigCodebaseHealth, fact.Float(health))
}

// healthLaplacian computes the pre-percentile raw risk field and its
// discrete Laplacian over the undirected import neighborhood.
func (st *runState) healthLaplacian() {
	store := st.store
	files := store.Files()
	n := len(files)
	if n == 0 || st.graph == nil {
		return
	}

	maxOf := func(sig fact.Signal) float64 {
		_, values := store.FileFloats(sig)
		m := 0.0
		for _, v := range values {
			if v > m {
				m = v
			}
		}
		return m
	}
	maxPR := maxOf(fact.SigPageRank)
	maxBlast := maxOf(fact.SigBlastRadiusSize)
	maxLoad := maxOf(fact.SigCognitiveLoad)
	maxBus := maxOf(fact.SigBusFactor)

	risk := make([]float64, n)
	for _, f := range files {
		id := f.ID()
		traj := fact.TrajStable
		if t, ok := store.Enumv(id, fact.SigChurnTrajectory); ok {
			traj = fact.Trajectory(t)
		}
		pr, _ := store.Float(id, fact.SigPageRank)
		blast, _ := store.Float(id, fact.SigBlastRadiusSize)
		load, _ := store.Float(id, fact.SigCognitiveLoad)
		bus := maxBus
		if b, ok := store.Float(id, fact.SigBusFactor); ok {
			bus = b
		}
		risk[f.Ordinal()] = fusion.RawRisk(fusion.RawRiskInputs{
			PageRank: pr, MaxPageRank: maxPR,
			BlastRadius: blast, MaxBlastRadius: maxBlast,
			CognitiveLoad: load, MaxCognitiveLoad: maxLoad,
			Trajectory: traj,
			BusFactor:  bus, MaxBusFactor: maxBus,
		})
	}

	neighbors := make([][]int, n)
	for _, f := range files {
		gi, ok := st.graph.Index(f.Path)
		if !ok {
			continue
		}
		for _, ni := range st.graph.Neighbors(gi) {
			if nf, ok := store.FileByPath(st.graph.Key(ni)); ok {
				neighbors[f.Ordinal()] = append(neighbors[f.Ordinal()], nf.Ordinal())
			}
		}
	}
	st.deltaH = fusion.HealthLaplacian(risk, neighbors)
}
