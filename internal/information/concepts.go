package information

import (
	"sort"

	"insight/internal/graph"
	"insight/internal/stats"
)

// ConceptResult summarizes the concept structure of one file.
type ConceptResult struct {
	Count   int
	Entropy float64
}

// conceptTier2Max is the function count up to which keyword frequency
// replaces the co-occurrence community analysis.
const conceptTier2Max = 9

// Concepts derives the concept count and entropy of a file from its
// function token streams. Three tiers by function count:
//
//   - < 3: a single concept derived from the file role; entropy 0.
//   - 3..9: top-k keyword frequency groups.
//   - >= 10: Louvain communities over the token co-occurrence graph,
//     with entropy over normalized community mass.
func Concepts(functionTokens [][]string) ConceptResult {
	switch n := len(functionTokens); {
	case n < 3:
		return ConceptResult{Count: 1, Entropy: 0}
	case n <= conceptTier2Max:
		return keywordConcepts(functionTokens)
	default:
		return cooccurrenceConcepts(functionTokens)
	}
}

// keywordConcepts approximates concepts by distinct dominant keywords
// across functions.
func keywordConcepts(functionTokens [][]string) ConceptResult {
	counts := make(map[string]float64)
	for _, tokens := range functionTokens {
		for _, kw := range TopTokens(tokens, 3) {
			counts[kw]++
		}
	}
	if len(counts) == 0 {
		return ConceptResult{Count: 1, Entropy: 0}
	}
	// Merge keywords into concept mass; distinct dominant keywords
	// across functions approximate distinct concerns.
	mass := make([]float64, 0, len(counts))
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		mass = append(mass, counts[k])
	}
	count := len(mass)
	if count > len(functionTokens) {
		count = len(functionTokens)
	}
	return ConceptResult{Count: count, Entropy: stats.Entropy(mass)}
}

// cooccurrenceConcepts builds a token co-occurrence graph (tokens
// co-occurring within one function body are linked) and runs Louvain on
// it; community count and normalized community mass entropy follow.
func cooccurrenceConcepts(functionTokens [][]string) ConceptResult {
	tokenIdx := make(map[string]int)
	var tokens []string
	idxOf := func(tok string) int {
		if i, ok := tokenIdx[tok]; ok {
			return i
		}
		i := len(tokens)
		tokenIdx[tok] = i
		tokens = append(tokens, tok)
		return i
	}

	// Deterministic node numbering: collect the distinct tokens of each
	// function in sorted order before linking.
	type edgeAcc map[int]float64
	adjDraft := make(map[int]edgeAcc)
	link := func(a, b int) {
		if a == b {
			return
		}
		if adjDraft[a] == nil {
			adjDraft[a] = make(edgeAcc)
		}
		if adjDraft[b] == nil {
			adjDraft[b] = make(edgeAcc)
		}
		adjDraft[a][b]++
		adjDraft[b][a]++
	}

	for _, fn := range functionTokens {
		distinct := make(map[string]bool)
		for _, tok := range fn {
			distinct[tok] = true
		}
		uniq := make([]string, 0, len(distinct))
		for tok := range distinct {
			uniq = append(uniq, tok)
		}
		sort.Strings(uniq)
		ids := make([]int, len(uniq))
		for i, tok := range uniq {
			ids[i] = idxOf(tok)
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				link(ids[i], ids[j])
			}
		}
	}

	if len(tokens) == 0 {
		return ConceptResult{Count: 1, Entropy: 0}
	}

	adj := make([]map[int]float64, len(tokens))
	for i := range adj {
		if acc, ok := adjDraft[i]; ok {
			adj[i] = map[int]float64(acc)
		} else {
			adj[i] = map[int]float64{}
		}
	}

	comm, _ := graph.LouvainAdjacency(adj)
	mass := make(map[int]float64)
	for _, c := range comm {
		mass[c]++
	}
	weights := make([]float64, 0, len(mass))
	ids := make([]int, 0, len(mass))
	for c := range mass {
		ids = append(ids, c)
	}
	sort.Ints(ids)
	for _, c := range ids {
		weights = append(weights, mass[c])
	}
	return ConceptResult{Count: len(weights), Entropy: stats.Entropy(weights)}
}
