package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"insight/internal/config"
	ierr "insight/internal/errors"
	"insight/internal/pipeline"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		failOn     string
		noGit      bool
		noSnapshot bool
		maxCommits int
		tier       string
	)

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze a repository and report ranked findings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			abs, err := filepath.Abs(root)
			if err != nil {
				return err
			}

			cfg, err := config.Load(abs)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				return exitCodeError(exitAnalysisError)
			}
			if failOn != "" {
				cfg.FailOn = failOn
			}
			if tier != "" {
				cfg.Tier = tier
			}
			if maxCommits > 0 {
				cfg.Git.MaxCommits = maxCommits
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				return exitCodeError(exitAnalysisError)
			}

			analyzer := pipeline.New(cfg, pipeline.Options{
				NoGit:      noGit,
				NoSnapshot: noSnapshot,
			}, cliLogger())

			result, err := analyzer.Run(context.Background())
			if err != nil {
				var ie *ierr.InsightError
				if errors.As(err, &ie) {
					fmt.Fprintln(os.Stderr, "error:", ie.Error())
				} else {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
				return exitCodeError(exitAnalysisError)
			}

			if err := renderResult(cmd.OutOrStdout(), result, flagFormat); err != nil {
				return err
			}
			if code := result.ExitCode(cfg.FailOn); code != 0 {
				return exitCodeError(code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit 1 when findings reach the threshold: none|any|high")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "skip the temporal spine")
	cmd.Flags().BoolVar(&noSnapshot, "no-snapshot", false, "do not persist a snapshot")
	cmd.Flags().IntVar(&maxCommits, "max-commits", 0, "cap the commit history read from git")
	cmd.Flags().StringVar(&tier, "tier", "", "force the analysis tier: absolute|bayesian|full")
	return cmd
}

func renderResult(w io.Writer, result *pipeline.AnalysisResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		return yaml.NewEncoder(w).Encode(result)
	default:
		return renderText(w, result)
	}
}
