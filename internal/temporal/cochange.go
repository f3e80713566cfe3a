package temporal

import "sort"

// maxFilesPerCommit caps co-change accounting so huge merge commits do
// not dominate the pair counts.
const maxFilesPerCommit = 64

// CoChange is the association summary of one unordered file pair, with
// A < B lexicographically.
type CoChange struct {
	A            string
	B            string
	Joint        int
	Lift         float64
	ConfidenceAB float64 // P(B | A)
	ConfidenceBA float64 // P(A | B)
}

// CoChangeMatrix computes lift and directional confidence for every file
// pair that ever co-changed. Probabilities are taken over the full commit
// count; commits touching fewer than two or more than the cap contribute
// only to the marginals.
func CoChangeMatrix(commits []Commit) []CoChange {
	total := len(commits)
	if total == 0 {
		return nil
	}

	touch := make(map[string]int)
	joint := make(map[[2]string]int)
	for _, c := range commits {
		for _, f := range c.Files {
			touch[f]++
		}
		if len(c.Files) < 2 || len(c.Files) > maxFilesPerCommit {
			continue
		}
		for i := 0; i < len(c.Files); i++ {
			for j := i + 1; j < len(c.Files); j++ {
				a, b := c.Files[i], c.Files[j]
				if b < a {
					a, b = b, a
				}
				joint[[2]string{a, b}]++
			}
		}
	}

	out := make([]CoChange, 0, len(joint))
	n := float64(total)
	for pair, count := range joint {
		pa := float64(touch[pair[0]]) / n
		pb := float64(touch[pair[1]]) / n
		pab := float64(count) / n
		cc := CoChange{A: pair[0], B: pair[1], Joint: count}
		if pa > 0 && pb > 0 {
			cc.Lift = pab / (pa * pb)
		}
		if touch[pair[0]] > 0 {
			cc.ConfidenceAB = float64(count) / float64(touch[pair[0]])
		}
		if touch[pair[1]] > 0 {
			cc.ConfidenceBA = float64(count) / float64(touch[pair[1]])
		}
		out = append(out, cc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}
