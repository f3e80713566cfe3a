// Package temporal derives change-history signals from the commit
// stream: churn series and trajectories, co-change lift, author entropy
// and bus factor, and commit-intent ratios.
package temporal

import (
	"sort"
	"strings"
)

// Commit is one entry of the commit stream produced by the git driver.
type Commit struct {
	SHA         string
	AuthorEmail string
	AuthorName  string
	Timestamp   int64 // unix seconds
	Message     string
	Files       []string
	Renames     [][2]string // (old, new)
}

// Normalize sorts commits by timestamp, lowercases author emails, and
// rewrites file paths through the rename chain so each file has one
// consistent history under its final name. The returned rename map sends
// every historical path to its final path.
func Normalize(commits []Commit) ([]Commit, map[string]string) {
	out := make([]Commit, len(commits))
	copy(out, commits)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].SHA < out[j].SHA
	})

	// Walk forward collecting the rename chain; resolve transitively.
	alias := make(map[string]string)
	for _, c := range out {
		for _, r := range c.Renames {
			alias[r[0]] = r[1]
		}
	}
	resolve := func(path string) string {
		seen := map[string]bool{path: true}
		for {
			next, ok := alias[path]
			if !ok || seen[next] {
				return path
			}
			seen[next] = true
			path = next
		}
	}

	renameMap := make(map[string]string)
	for old := range alias {
		renameMap[old] = resolve(old)
	}

	for i := range out {
		out[i].AuthorEmail = strings.ToLower(out[i].AuthorEmail)
		files := make([]string, 0, len(out[i].Files))
		dedup := make(map[string]bool, len(out[i].Files))
		for _, f := range out[i].Files {
			final := resolve(f)
			if !dedup[final] {
				dedup[final] = true
				files = append(files, final)
			}
		}
		sort.Strings(files)
		out[i].Files = files
	}
	return out, renameMap
}
