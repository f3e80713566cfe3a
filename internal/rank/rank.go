// Package rank orders findings by severity x confidence x impact,
// deduplicates by identity key, and applies the chronic-problem
// amplification wrapper using snapshot persistence history.
package rank

import (
	"sort"

	"insight/internal/finder"
)

// chronicMinPersistence is the snapshot count after which a persisting
// finding is amplified.
const chronicMinPersistence = 3

// chronicFactor multiplies the severity of chronic findings, capped at 1.
const chronicFactor = 1.25

// ImpactSource supplies the pagerank percentiles impact is derived from.
// A nil file map means no percentiles exist (ABSOLUTE tier); every
// impact is then 1.
type ImpactSource struct {
	FilePageRankPctl map[string]float64 // by file path
	ModuleMeanPctl   map[string]float64 // mean member pctl by module name
}

// impact computes the reach weight of one finding.
func (s ImpactSource) impact(f *finder.Finding) float64 {
	if s.FilePageRankPctl == nil {
		return 1
	}
	switch {
	case len(f.TargetFiles) == 1:
		return s.filePctl(f.TargetFiles[0])
	case len(f.TargetFiles) > 1:
		best := 0.0
		for _, path := range f.TargetFiles {
			if p := s.filePctl(path); p > best {
				best = p
			}
		}
		return best
	case len(f.TargetModules) > 0:
		sum := 0.0
		n := 0
		for _, m := range f.TargetModules {
			if p, ok := s.ModuleMeanPctl[m]; ok {
				sum += p
				n++
			}
		}
		if n == 0 {
			return 1
		}
		return sum / float64(n)
	default:
		return 1 // codebase scope
	}
}

func (s ImpactSource) filePctl(path string) float64 {
	if p, ok := s.FilePageRankPctl[path]; ok {
		return p
	}
	return 0
}

// Rank scores, deduplicates, and sorts findings in descending score
// order. Duplicate identity keys keep the highest-severity instance.
func Rank(findings []finder.Finding, impacts ImpactSource) []finder.Finding {
	byID := make(map[string]finder.Finding, len(findings))
	for _, f := range findings {
		f.Score = f.Severity * f.Confidence * impacts.impact(&f)
		if prev, ok := byID[f.ID]; ok && prev.Severity >= f.Severity {
			continue
		}
		byID[f.ID] = f
	}

	out := make([]finder.Finding, 0, len(byID))
	for _, f := range byID {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ApplyChronic is the post-ranking wrapper: findings whose identity has
// persisted across enough snapshots get their severity amplified (capped
// at 1.0) and their score recomputed. Amplifying a severity already at
// 1.0 is a no-op. The input order is preserved except for re-sorting by
// the updated scores.
func ApplyChronic(findings []finder.Finding, persistence map[string]int, impacts ImpactSource) []finder.Finding {
	for i := range findings {
		count := persistence[findings[i].ID]
		if count < chronicMinPersistence {
			continue
		}
		amplified := findings[i].Severity * chronicFactor
		if amplified > 1 {
			amplified = 1
		}
		findings[i].Severity = amplified
		findings[i].Score = amplified * findings[i].Confidence * impacts.impact(&findings[i])
		findings[i].Evidence = append(findings[i].Evidence, finder.Evidence{
			Signal: "persistence_count",
			Value:  float64(count),
			Note:   "chronic: finding persisted across snapshots",
		})
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Score != findings[j].Score {
			return findings[i].Score > findings[j].Score
		}
		return findings[i].ID < findings[j].ID
	})
	return findings
}
