// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/papertrail/internal/export"
)

var paperCmd = &cobra.Command{
	Use:   "paper <arxiv-id>",
	Short: "Fetch one paper's metadata from the arXiv feed",
	Long: `Paper looks up a single arXiv identifier (e.g. 1706.03762) and prints its
metadata. With --references the PDF is downloaded and the arXiv identifiers
it cites are included.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaper,
}

func init() {
	paperCmd.Flags().Bool("references", false, "download the PDF and extract cited identifiers")
	paperCmd.Flags().String("format", "yaml", "output format: yaml or json")

	rootCmd.AddCommand(paperCmd)
}

func runPaper(cmd *cobra.Command, args []string) error {
	withRefs, _ := cmd.Flags().GetBool("references")
	formatName, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, err := newPipeline(ctx, cfg, withRefs, logger)
	if err != nil {
		return err
	}

	entry, err := p.feed.FetchByID(ctx, args[0])
	if err != nil {
		return err
	}
	rec, err := p.parser.Parse(ctx, entry, withRefs)
	if err != nil {
		return err
	}

	data, err := export.Marshal(export.NewEntry(rec), format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
	return err
}
