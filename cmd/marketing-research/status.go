// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marketing-research/internal/research"
	"github.com/pdiddy/marketing-research/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status [pass]",
	Short: "Show checkpointed passes",
	Long: `Status reads pass checkpoints from Redis. Without an argument it lists
recent passes, newest first. With a pass id it shows the phase trace,
coverage, and refinement rounds of that pass.

Requires session.redis_addr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Session.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr is not set")
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		store, err := session.Dial(cmd.Context(), cfg.Session, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			state, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(state)
			}
			printStatus(state)
			return nil
		}

		ids, err := store.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(os.Stderr, "No checkpointed passes.")
			return nil
		}
		for _, id := range ids {
			state, err := store.Load(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(os.Stdout, "%s  (unavailable: %v)\n", id, err)
				continue
			}
			fmt.Fprintf(os.Stdout, "%s  %-12s %s  %s\n", id, state.Phase, state.StartedAt.Local().Format(time.DateTime), state.Plan.Name)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 10, "number of recent passes to list")
	statusCmd.Flags().Bool("json", false, "output the pass state as JSON")

	rootCmd.AddCommand(statusCmd)
}

func printStatus(state *research.PassState) {
	trace := make([]string, len(state.Trace))
	for i, p := range state.Trace {
		trace[i] = string(p)
	}
	fmt.Fprintf(os.Stdout, "pass:     %s\n", state.ID)
	fmt.Fprintf(os.Stdout, "plan:     %s\n", state.Plan.Name)
	fmt.Fprintf(os.Stdout, "phase:    %s\n", state.Phase)
	fmt.Fprintf(os.Stdout, "trace:    %s\n", strings.Join(trace, " -> "))
	fmt.Fprintf(os.Stdout, "rounds:   %d\n", state.Rounds)
	fmt.Fprintf(os.Stdout, "sources:  %d\n", state.Sources.Len())
	fmt.Fprintf(os.Stdout, "searches: %d of %d answered\n", state.Coverage.Succeeded, state.Coverage.Total)
	fmt.Fprintf(os.Stdout, "updated:  %s\n", state.UpdatedAt.Local().Format(time.DateTime))
}
