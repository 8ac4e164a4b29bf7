// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored cursors, paper counts, and recent runs",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Int("runs", 5, "number of recent runs to show")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()

	cps, err := store.Checkpoints(ctx)
	if err != nil {
		return err
	}
	total, err := store.CountPapers(ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Papers stored: %d\n", total)

	if len(cps) == 0 {
		fmt.Fprintln(w, "No checkpoints yet.")
	}
	for _, cp := range cps {
		n, err := store.CountPapers(ctx, cp.Category)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %-12s cursor %-8d papers %-8d updated %s\n",
			cp.Category, cp.Cursor, n, cp.UpdatedAt.Local().Format(time.DateTime))
	}

	limit, _ := cmd.Flags().GetInt("runs")
	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		fmt.Fprintln(w, "Recent runs:")
	}
	for _, r := range runs {
		fmt.Fprintf(w, "  %s %-12s %-11s %d records, cursor %d -> %d, started %s\n",
			r.ID.String()[:8], r.Category, r.Status, r.Records, r.StartCursor, r.FinalCursor,
			r.StartedAt.Local().Format(time.DateTime))
		if r.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", r.Error)
		}
	}
	return nil
}
