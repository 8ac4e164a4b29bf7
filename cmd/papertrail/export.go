// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/papertrail/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored papers to a YAML or JSON file",
	Long: `Export writes the stored records, oldest first, to papers.<format> (or
papers-<category>.<format> with --category) in the output directory.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("out", "export", "output directory")
	exportCmd.Flags().String("format", "yaml", "output format: yaml or json")
	exportCmd.Flags().String("category", "", "only export papers harvested for this category")
	exportCmd.Flags().Int("limit", 0, "maximum number of papers (0 = all)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	out, _ := cmd.Flags().GetString("out")
	formatName, _ := cmd.Flags().GetString("format")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")

	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	path, n, err := export.Write(ctx, store, export.Options{
		Dir:      out,
		Format:   format,
		Category: category,
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d papers to %s\n", n, path)
	return nil
}
