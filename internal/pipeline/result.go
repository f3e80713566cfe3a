package pipeline

import (
	"time"

	"insight/internal/finder"
)

// AnalysisResult is the engine's output object.
type AnalysisResult struct {
	Root      string    `json:"root" yaml:"root"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	CommitSHA string    `json:"commitSha,omitempty" yaml:"commitSha,omitempty"`
	Tier      string    `json:"tier" yaml:"tier"`

	FileCount   int `json:"fileCount" yaml:"fileCount"`
	ModuleCount int `json:"moduleCount" yaml:"moduleCount"`

	CodebaseHealth     float64 `json:"codebaseHealth" yaml:"codebaseHealth"`
	ArchitectureHealth float64 `json:"architectureHealth" yaml:"architectureHealth"`
	WiringScore        float64 `json:"wiringScore" yaml:"wiringScore"`

	Findings []finder.Finding `json:"findings" yaml:"findings"`

	SnapshotID string `json:"snapshotId,omitempty" yaml:"snapshotId,omitempty"`
	Truncated  bool   `json:"truncated,omitempty" yaml:"truncated,omitempty"`

	// Warnings surfaced at end of run (persistence failures, degraded
	// spines).
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// highSeverityThreshold is the severity bound of --fail-on high.
const highSeverityThreshold = 0.8

// ExitCode maps the result and fail-on mode to the process exit code:
// 0 when no finding clears the threshold, 1 when one does. Analysis
// errors exit 2 before a result exists.
func (r *AnalysisResult) ExitCode(failOn string) int {
	switch failOn {
	case "any":
		if len(r.Findings) > 0 {
			return 1
		}
	case "high":
		for _, f := range r.Findings {
			if f.Severity >= highSeverityThreshold {
				return 1
			}
		}
	}
	return 0
}
