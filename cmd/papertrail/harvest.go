// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/papertrail/internal/harvest"
	"github.com/pdiddy/papertrail/internal/metrics"
	"github.com/pdiddy/papertrail/pkg/types"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest a category from the arXiv feed into the store",
	Long: `Harvest pages through one arXiv category oldest first, starting at the
stored cursor for that category (or --start when none exists). Records are
committed in batches together with the cursor that follows them.

Interrupting with Ctrl-C commits the partial batch and exits cleanly; the
next run resumes from the committed cursor.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("category", "", "arXiv category to harvest (default cs.LG)")
	harvestCmd.Flags().Int64("start", 0, "cursor to start from when no checkpoint exists")
	harvestCmd.Flags().Int("threshold", 0, "records per committed batch (default 1000)")
	harvestCmd.Flags().Int("page-size", 0, "entries requested per page (default 1000)")
	harvestCmd.Flags().Bool("enrich", true, "download PDFs and extract references")
	harvestCmd.Flags().String("on-entry-error", "", "entry failure policy: abort or skip (default abort)")
	harvestCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")

	bindFlag(harvestCmd, "category", "feed.category")
	bindFlag(harvestCmd, "start", "harvest.start_cursor")
	bindFlag(harvestCmd, "threshold", "harvest.flush_threshold")
	bindFlag(harvestCmd, "page-size", "feed.page_size")
	bindFlag(harvestCmd, "enrich", "harvest.enrich")
	bindFlag(harvestCmd, "on-entry-error", "harvest.on_entry_error")
	bindFlag(harvestCmd, "metrics-addr", "metrics.addr")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg, cfg.Harvest.Enrich, logger)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	category := cfg.Feed.Category
	runner := harvest.NewRunner(harvest.Config{
		Category:       category,
		FlushThreshold: cfg.Harvest.FlushThreshold,
		StartCursor:    types.Cursor(cfg.Harvest.StartCursor),
	}, store, p.sources(cfg, category, logger), logger)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Harvesting %s (enrich=%t, batch=%d)\n", category, cfg.Harvest.Enrich, cfg.Harvest.FlushThreshold)

	sum, err := runner.Run(ctx)
	fmt.Fprintf(w, "Run %s: %d records in %d batches, cursor %d -> %d\n",
		sum.RunID, sum.Records, sum.Batches, sum.StartCursor, sum.FinalCursor)
	if err != nil {
		return err
	}
	if sum.Interrupted {
		fmt.Fprintln(w, "Interrupted; rerun to resume from the committed cursor.")
	}
	return nil
}
