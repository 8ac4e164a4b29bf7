// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refsCmd = &cobra.Command{
	Use:   "refs <pdf-path-or-url>",
	Short: "Extract cited arXiv identifiers from one PDF",
	Long: `Refs reads a PDF from a local path or an http(s) URL, extracts its text
with the configured backend, and prints every cited identifier on its own
line in the order found. Duplicates are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefs,
}

func init() {
	rootCmd.AddCommand(refsCmd)
}

func runRefs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := newPipeline(ctx, cfg, true, logger)
	if err != nil {
		return err
	}

	text, ok, err := p.pdf.FetchText(ctx, args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintf(w, "No PDF available at %s\n", args[0])
		return nil
	}
	for _, id := range p.refs.Extract(&text) {
		fmt.Fprintln(w, id)
	}
	return nil
}
