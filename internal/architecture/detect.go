// Package architecture detects modules and derives the structural
// metrics over them: Martin metrics, layer inference with violation
// detection, and boundary alignment against the dependency communities.
package architecture

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Detection assigns every file to one module.
type Detection struct {
	Method string            // "depth" or "community"
	Assign map[string]string // file path -> module name
	Dirs   map[string]string // module name -> directory ("" for synthetic)
}

// minModuleFiles..maxModuleFiles is the sweet spot a directory must hold
// to count as a good module candidate at its depth.
const (
	minModuleFiles = 3
	maxModuleFiles = 15
)

// DetectModules chooses the directory depth whose directories best match
// the module sweet spot and assigns files by path prefix. Flat projects
// (every file in the root directory) fall back to synthesizing modules
// from the dependency communities.
func DetectModules(paths []string, communities map[string]int) Detection {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	maxDepth := 0
	for _, p := range sorted {
		if d := pathDepth(p); d > maxDepth {
			maxDepth = d
		}
	}
	if maxDepth == 0 {
		return communityModules(sorted, communities)
	}

	// For each candidate depth, counts[dir] = source files anywhere under dir.
	bestDepth := 1
	bestFrac := -1.0
	for d := 1; d <= maxDepth; d++ {
		counts := make(map[string]int)
		for _, p := range sorted {
			if pathDepth(p) < d {
				continue
			}
			counts[prefixDirs(p, d)]++
		}
		if len(counts) == 0 {
			continue
		}
		inRange := 0
		for _, c := range counts {
			if c >= minModuleFiles && c <= maxModuleFiles {
				inRange++
			}
		}
		frac := float64(inRange) / float64(len(counts))
		// Strictly-greater keeps the tie on the shallower depth.
		if frac > bestFrac {
			bestFrac = frac
			bestDepth = d
		}
	}

	det := Detection{
		Method: "depth",
		Assign: make(map[string]string, len(sorted)),
		Dirs:   make(map[string]string),
	}
	for _, p := range sorted {
		var name string
		if pathDepth(p) >= bestDepth {
			name = prefixDirs(p, bestDepth)
		} else if dir := path.Dir(p); dir != "." {
			name = dir
		} else {
			name = "."
		}
		det.Assign[p] = name
		det.Dirs[name] = name
	}
	return det
}

// communityModules synthesizes modules from dependency communities when
// the tree has no directory structure to work with.
func communityModules(paths []string, communities map[string]int) Detection {
	det := Detection{
		Method: "community",
		Assign: make(map[string]string, len(paths)),
		Dirs:   make(map[string]string),
	}
	for _, p := range paths {
		c, ok := communities[p]
		if !ok {
			c = 0
		}
		name := fmt.Sprintf("community-%d", c)
		det.Assign[p] = name
		det.Dirs[name] = ""
	}
	return det
}

// pathDepth counts the directory components of a root-relative path.
func pathDepth(p string) int {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}

// prefixDirs returns the first d directory components joined.
func prefixDirs(p string, d int) string {
	parts := strings.Split(path.Dir(p), "/")
	if len(parts) > d {
		parts = parts[:d]
	}
	return strings.Join(parts, "/")
}

// BoundaryAlignment is the fraction of a module's files whose community
// matches the module's modal community. A module with no community data
// aligns trivially (1).
func BoundaryAlignment(files []string, communities map[string]int) float64 {
	if len(files) == 0 {
		return 1
	}
	counts := make(map[int]int)
	known := 0
	for _, f := range files {
		if c, ok := communities[f]; ok {
			counts[c]++
			known++
		}
	}
	if known == 0 {
		return 1
	}
	modal := 0
	ids := make([]int, 0, len(counts))
	for c := range counts {
		ids = append(ids, c)
	}
	sort.Ints(ids)
	for _, c := range ids {
		if counts[c] > modal {
			modal = counts[c]
		}
	}
	return float64(modal) / float64(known)
}
