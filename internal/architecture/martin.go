package architecture

import "math"

// Martin holds the Martin metrics of one module. Instability is nil when
// the module has no external couplings at all (Ca+Ce = 0); consumers
// must treat the main-sequence distance as missing in that case.
type Martin struct {
	Ca           int      // afferent: external edges arriving
	Ce           int      // efferent: external edges leaving
	Instability  *float64 // Ce / (Ca + Ce)
	Abstractness float64  // abstract symbols / total symbols
	Distance     *float64 // |A + I - 1|
}

// FileEdge is one file-level import edge used for module aggregation.
type FileEdge struct {
	From string
	To   string
}

// SymbolCounts carries per-module declaration tallies.
type SymbolCounts struct {
	Abstract int
	Total    int
}

// ComputeMartin aggregates file-level imports to module level and
// derives the Martin metrics per module.
func ComputeMartin(moduleOf map[string]string, edges []FileEdge, symbols map[string]SymbolCounts) map[string]*Martin {
	out := make(map[string]*Martin)
	ensure := func(name string) *Martin {
		if m, ok := out[name]; ok {
			return m
		}
		m := &Martin{}
		out[name] = m
		return m
	}
	for _, name := range moduleOf {
		ensure(name)
	}

	for _, e := range edges {
		fromMod, okF := moduleOf[e.From]
		toMod, okT := moduleOf[e.To]
		if !okF || !okT || fromMod == toMod {
			continue
		}
		ensure(fromMod).Ce++
		ensure(toMod).Ca++
	}

	for name, m := range out {
		if sc, ok := symbols[name]; ok && sc.Total > 0 {
			m.Abstractness = float64(sc.Abstract) / float64(sc.Total)
		}
		if total := m.Ca + m.Ce; total > 0 {
			inst := float64(m.Ce) / float64(total)
			m.Instability = &inst
			dist := math.Abs(m.Abstractness + inst - 1)
			m.Distance = &dist
		}
	}
	return out
}

// ModuleDeps lists the distinct cross-module dependency pairs implied by
// the file edges, with aggregated edge counts as weights.
func ModuleDeps(moduleOf map[string]string, edges []FileEdge) map[[2]string]int {
	deps := make(map[[2]string]int)
	for _, e := range edges {
		fromMod, okF := moduleOf[e.From]
		toMod, okT := moduleOf[e.To]
		if !okF || !okT || fromMod == toMod {
			continue
		}
		deps[[2]string{fromMod, toMod}]++
	}
	return deps
}
