package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"insight/internal/config"
	"insight/internal/snapshot"
)

func openSnapshotStore(root string) (*snapshot.Store, *config.Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(abs)
	if err != nil {
		return nil, nil, err
	}
	store, err := snapshot.Open(filepath.Join(abs, cfg.Snapshot.Dir), cliLogger())
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func newSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots [path]",
		Short: "List stored analysis snapshots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			store, _, err := openSnapshotStore(root)
			if err != nil {
				return err
			}
			defer store.Close()

			metas, err := store.ListSnapshots()
			if err != nil {
				return err
			}
			var lines []string
			for _, m := range metas {
				lines = append(lines, fmt.Sprintf("%s  %s  %s  %d files  %d findings  health %.2f",
					m.ID, m.Timestamp.Format("2006-01-02 15:04"), shortSHA(m.CommitSHA),
					m.FileCount, m.FindingCount, m.Health))
			}
			renderSnapshotList(cmd.OutOrStdout(), lines)
			return nil
		},
	}
}

func newDiffCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "diff <from-snapshot> <to-snapshot>",
		Short: "Compare two snapshots: signal trends and finding lifecycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openSnapshotStore(root)
			if err != nil {
				return err
			}
			defer store.Close()

			diff, err := store.Diff(args[0], args[1], nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "diff %s -> %s\n\n", shortSHA(diff.From.ID), shortSHA(diff.To.ID))
			fmt.Fprintf(out, "health %.2f -> %.2f\n\n", diff.From.Health, diff.To.Health)

			for _, fc := range diff.Findings {
				fmt.Fprintf(out, "%-11s %s\n", fc.Status, fc.ID)
			}
			if len(diff.Findings) > 0 {
				fmt.Fprintln(out)
			}
			for _, sc := range diff.Signals {
				fmt.Fprintf(out, "%s %s: delta %+.3f, velocity %+.3f, %s (%s)\n",
					sc.EntityKey, sc.Signal, sc.Stats.Delta, sc.Stats.Velocity,
					sc.Stats.Trend, sc.Stats.Trajectory)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "repository root")
	return cmd
}
