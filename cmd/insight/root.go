// Command insight is the CLI front-end of the analysis engine.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"insight/internal/slogutil"
)

var (
	flagVerbosity int
	flagQuiet     bool
	flagFormat    string
)

// exitAnalysisError is the exit code for analysis failures.
const exitAnalysisError = 2

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "insight",
		Short:         "Static and temporal codebase quality analyzer",
		Long:          "insight analyzes a source tree plus its git history, fuses ~62 signals\ninto health scores, and reports ranked findings with evidence.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().CountVarP(&flagVerbosity, "verbose", "v", "increase log verbosity")
	root.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress all logs")
	root.PersistentFlags().StringVarP(&flagFormat, "format", "f", "text", "output format: text|json|yaml")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newSnapshotsCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newInitCmd())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if code, ok := err.(exitCodeError); ok {
			return int(code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitAnalysisError
	}
	return 0
}

// exitCodeError carries a specific exit code through cobra's error path
// without printing anything (the command already reported).
type exitCodeError int

func (e exitCodeError) Error() string { return fmt.Sprintf("exit %d", int(e)) }

func cliLogger() *slog.Logger {
	level := slogutil.LevelFromVerbosity(flagVerbosity, flagQuiet)
	return slogutil.NewLogger(os.Stderr, level)
}
