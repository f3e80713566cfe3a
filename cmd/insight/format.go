package main

import (
	"fmt"
	"io"
	"strings"

	"insight/internal/fusion"
	"insight/internal/pipeline"
)

// renderText writes the terminal report: a health summary followed by
// ranked findings with their evidence.
func renderText(w io.Writer, result *pipeline.AnalysisResult) error {
	fmt.Fprintf(w, "insight: %s\n", result.Root)
	fmt.Fprintf(w, "tier %s | %d files | %d modules", result.Tier, result.FileCount, result.ModuleCount)
	if result.CommitSHA != "" {
		fmt.Fprintf(w, " | %s", shortSHA(result.CommitSHA))
	}
	fmt.Fprintln(w)

	if result.Tier != "ABSOLUTE" {
		fmt.Fprintf(w, "health %.1f | architecture %.1f | wiring %.1f\n",
			fusion.Display(result.CodebaseHealth),
			fusion.Display(result.ArchitectureHealth),
			fusion.Display(result.WiringScore))
	}
	if result.Truncated {
		fmt.Fprintln(w, "note: analysis truncated by stage budget")
	}
	for _, warning := range result.Warnings {
		fmt.Fprintln(w, "warning:", warning)
	}
	fmt.Fprintln(w)

	if len(result.Findings) == 0 {
		fmt.Fprintln(w, "no findings")
		return nil
	}

	fmt.Fprintf(w, "%d findings\n", len(result.Findings))
	for i, f := range result.Findings {
		fmt.Fprintf(w, "%3d. [%.2f] %s %s\n", i+1, f.Score, f.Name, f.Target)
		fmt.Fprintf(w, "     severity %.2f, confidence %.2f\n", f.Severity, f.Confidence)
		if f.Rationale != "" {
			fmt.Fprintf(w, "     %s\n", f.Rationale)
		}
		for _, e := range f.Evidence {
			if e.Note != "" && e.Op == "" {
				fmt.Fprintf(w, "       - %s: %s\n", e.Signal, e.Note)
				continue
			}
			pctl := ""
			if e.Pctl {
				pctl = " (pctl)"
			}
			fmt.Fprintf(w, "       - %s%s = %.3f (%s %.3f)\n", e.Signal, pctl, e.Value, e.Op, e.Threshold)
		}
		if f.Remediation != "" {
			fmt.Fprintf(w, "     fix: %s\n", f.Remediation)
		}
	}
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// renderSnapshotList prints the snapshots table.
func renderSnapshotList(w io.Writer, lines []string) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "no snapshots")
		return
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}
