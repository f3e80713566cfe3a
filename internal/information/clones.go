package information

import "sort"

const (
	// CloneNCDThreshold is the NCD below which a pair counts as a clone.
	CloneNCDThreshold = 0.3

	// lshCorpusThreshold is the file count at which pairwise NCD gives
	// way to the MinHash/LSH candidate pre-filter.
	lshCorpusThreshold = 1000

	// lshJaccardFloor is the estimated Jaccard similarity a candidate
	// pair must reach before exact NCD is spent on it.
	lshJaccardFloor = 0.5
)

// ClonePair is a detected near-duplicate file pair, sorted so A < B.
type ClonePair struct {
	A   string
	B   string
	NCD float64
}

// Document is one corpus member for clone detection.
type Document struct {
	Path    string
	Content []byte
}

// DetectClones finds file pairs with NCD below the clone threshold.
// Small corpora are compared pairwise; at or above the LSH threshold,
// exact NCD runs only on LSH candidate pairs whose estimated Jaccard
// clears the floor. The input order does not affect the result: documents
// are sorted by path first.
func DetectClones(docs []Document) []ClonePair {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var pairs []ClonePair
	if len(sorted) < lshCorpusThreshold {
		for i := range sorted {
			for j := i + 1; j < len(sorted); j++ {
				if d := NCD(sorted[i].Content, sorted[j].Content); d < CloneNCDThreshold {
					pairs = append(pairs, ClonePair{A: sorted[i].Path, B: sorted[j].Path, NCD: d})
				}
			}
		}
		return pairs
	}

	sigs := make([]Signature, len(sorted))
	for i, d := range sorted {
		sigs[i] = MinHash(d.Content)
	}

	buckets := make(map[lshKey][]int)
	for i, sig := range sigs {
		for _, key := range lshBuckets(sig) {
			buckets[key] = append(buckets[key], i)
		}
	}

	seen := make(map[[2]int]bool)
	var candidates [][2]int
	for _, members := range buckets {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				pair := [2]int{members[i], members[j]}
				if pair[0] > pair[1] {
					pair[0], pair[1] = pair[1], pair[0]
				}
				if !seen[pair] {
					seen[pair] = true
					candidates = append(candidates, pair)
				}
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i][0] != candidates[j][0] {
			return candidates[i][0] < candidates[j][0]
		}
		return candidates[i][1] < candidates[j][1]
	})

	for _, pair := range candidates {
		if EstimatedJaccard(sigs[pair[0]], sigs[pair[1]]) < lshJaccardFloor {
			continue
		}
		if d := NCD(sorted[pair[0]].Content, sorted[pair[1]].Content); d < CloneNCDThreshold {
			pairs = append(pairs, ClonePair{A: sorted[pair[0]].Path, B: sorted[pair[1]].Path, NCD: d})
		}
	}
	return pairs
}
