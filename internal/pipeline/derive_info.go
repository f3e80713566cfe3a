package pipeline

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"insight/internal/backends/scan"
	"insight/internal/fact"
	"insight/internal/information"
	"insight/internal/stats"
)

// infoDeriver computes the information-theoretic per-file signals:
// compression ratio, semantic coherence, concepts, naming drift, and
// cognitive load, plus the corpus clone pairs.
func infoDeriver() *deriver {
	return &deriver{
		name: "information",
		provides: []fact.Signal{
			fact.SigCompressionRatio, fact.SigSemanticCoherence,
			fact.SigConceptCount, fact.SigConceptEntropy,
			fact.SigNamingDrift, fact.SigCognitiveLoad,
		},
		run: runInfoDeriver,
	}
}

func runInfoDeriver(ctx context.Context, st *runState) {
	store := st.store

	// Pass one: document frequencies across files and functions.
	corpus := information.NewTFIDF()
	for _, f := range store.Files() {
		sd := st.scans[f.Path]
		if sd == nil || sd.parseFailed {
			continue
		}
		corpus.Add(f.Path, sd.fileTokens)
		for fi, tokens := range sd.functionTokens {
			corpus.Add(f.Path+"#"+strconv.Itoa(fi), tokens)
		}
	}

	// Pass two: per-file signals.
	var cloneDocs []information.Document
	for _, f := range store.Files() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		sd := st.scans[f.Path]
		if sd == nil || sd.parseFailed {
			continue
		}
		id := f.ID()

		store.Set(id, fact.SigCompressionRatio, fact.Float(information.CompressionRatio(sd.content)))

		var vectors []map[string]float64
		for fi := range sd.functionTokens {
			vectors = append(vectors, corpus.Vector(f.Path+"#"+strconv.Itoa(fi)))
		}
		store.Set(id, fact.SigSemanticCoherence, fact.Float(information.SemanticCoherence(vectors)))

		concepts := information.Concepts(sd.functionTokens)
		store.Set(id, fact.SigConceptCount, fact.Int(int64(concepts.Count)))
		store.Set(id, fact.SigConceptEntropy, fact.Float(concepts.Entropy))

		store.Set(id, fact.SigNamingDrift, fact.Float(namingDrift(f.Path, sd.fileTokens)))
		store.Set(id, fact.SigCognitiveLoad, fact.Float(cognitiveLoad(sd)))

		cloneDocs = append(cloneDocs, information.Document{Path: f.Path, Content: sd.content})
	}

	st.clones = information.DetectClones(cloneDocs)
}

// namingDrift measures how little the file's name vocabulary overlaps
// its dominant content vocabulary: 0 when every name token appears among
// the top content tokens, 1 when none does.
func namingDrift(path string, tokens []string) float64 {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	nameTokens := scan.Tokenize(base)
	if len(nameTokens) == 0 || len(tokens) == 0 {
		return 0
	}
	top := make(map[string]bool)
	for _, tok := range information.TopTokens(tokens, 20) {
		top[tok] = true
	}
	hits := 0
	for _, tok := range nameTokens {
		if top[tok] {
			hits++
		}
	}
	return 1 - float64(hits)/float64(len(nameTokens))
}

// cognitiveLoad fuses nesting depth and function mass into one load
// figure: deep nesting dominates, long bodies add drag.
func cognitiveLoad(sd *scanData) float64 {
	meanBody := stats.Mean(sd.bodyTokenSizes)
	return float64(sd.maxNesting) + meanBody/50
}
