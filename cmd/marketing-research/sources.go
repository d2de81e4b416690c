// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marketing-research/internal/sources"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources <pass>",
	Short: "Show the source registry of a stored pass",
	Long: `Sources prints the short ids, titles, URLs and supporting claims
registered during a pass, read from its stored sources.yaml artifact.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := openArtifacts()
		if err != nil {
			return err
		}
		defer store.Close()

		a, err := store.Load(cmd.Context(), args[0], "sources.yaml", 0)
		if err != nil {
			return err
		}
		reg, err := sources.UnmarshalYAML(a.Data)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reg)
		}
		for _, s := range reg.List() {
			fmt.Fprintf(os.Stdout, "%-8s %s\n         %s\n", s.ShortID, s.Title, s.URL)
			for _, c := range s.SupportedClaims {
				fmt.Fprintf(os.Stdout, "         - %s\n", strings.TrimSpace(c.TextSegment))
			}
		}
		fmt.Fprintf(os.Stderr, "%d sources\n", reg.Len())
		return nil
	},
}

func init() {
	sourcesCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(sourcesCmd)
}
