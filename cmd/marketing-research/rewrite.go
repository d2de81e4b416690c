// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marketing-research/internal/citation"
	"github.com/pdiddy/marketing-research/internal/sources"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <cited.md>",
	Short: "Rewrite citation tags in a report into markdown links",
	Long: `Rewrite replaces every <cite source="src-N"/> tag in a cited report with
an inline markdown link to the matching source. Sources come from a
sources.yaml written by a previous run. Tags that do not resolve are
removed and listed on stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourcesPath, _ := cmd.Flags().GetString("sources")

		report, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading report: %w", err)
		}
		data, err := os.ReadFile(sourcesPath)
		if err != nil {
			return fmt.Errorf("reading sources: %w", err)
		}
		reg, err := sources.UnmarshalYAML(data)
		if err != nil {
			return err
		}

		for _, id := range citation.Unresolved(string(report), reg) {
			fmt.Fprintf(os.Stderr, "warning: unknown source %s dropped\n", id)
		}
		res := citation.Rewrite(string(report), reg, nil)
		fmt.Fprintln(os.Stdout, res.Text)
		fmt.Fprintf(os.Stderr, "%d sources linked\n", len(res.Sources))
		return nil
	},
}

func init() {
	rewriteCmd.Flags().String("sources", "sources.yaml", "sources file written by run")

	rootCmd.AddCommand(rewriteCmd)
}
