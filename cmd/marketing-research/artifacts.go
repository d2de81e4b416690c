// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marketing-research/internal/artifact"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "List and fetch stored pass artifacts",
	Long: `Artifacts inspects the sqlite artifact store. Every run stores its
state, sources, cited draft, and final report under the pass id; saving
the same name again adds a new version.`,
}

var artifactsListCmd = &cobra.Command{
	Use:   "list [pass]",
	Short: "List artifacts, optionally for one pass",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		var pass string
		if len(args) == 1 {
			pass = args[0]
		}

		store, err := openArtifacts()
		if err != nil {
			return err
		}
		defer store.Close()

		infos, err := store.List(cmd.Context(), pass)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}
		if len(infos) == 0 {
			fmt.Fprintln(os.Stderr, "No artifacts.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PASS\tNAME\tVERSION\tSIZE\tCREATED")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", info.Pass, info.Name, info.Version, info.Size, info.CreatedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

var artifactsGetCmd = &cobra.Command{
	Use:   "get <pass> <name>",
	Short: "Write an artifact to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetInt("version")

		store, err := openArtifacts()
		if err != nil {
			return err
		}
		defer store.Close()

		a, err := store.Load(cmd.Context(), args[0], args[1], version)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(a.Data)
		return err
	},
}

func init() {
	artifactsListCmd.Flags().Bool("json", false, "output as JSON")
	artifactsGetCmd.Flags().Int("version", 0, "artifact version (default: latest)")

	artifactsCmd.AddCommand(artifactsListCmd, artifactsGetCmd)
	rootCmd.AddCommand(artifactsCmd)
}

func openArtifacts() (*artifact.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return artifact.OpenSQLite(cfg.Storage.ArtifactDB)
}
