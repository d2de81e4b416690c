// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marketing-research/internal/gemini"
	"github.com/pdiddy/marketing-research/internal/search"
	"github.com/pdiddy/marketing-research/internal/sources"
	"github.com/pdiddy/marketing-research/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Run search queries against one provider",
	Long: `Search runs one or more queries through the web (Gemini grounded search)
or video (YouTube) provider and prints each answer with its grounding
sources. Useful for checking keys and query wording before a full run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("provider")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var p search.Provider
		switch types.ProviderKind(kind) {
		case types.ProviderWeb:
			p, err = gemini.New(ctx, cfg.AI, cfg.Search.Model)
			if err != nil {
				return err
			}
		case types.ProviderVideo:
			if cfg.Search.YouTubeAPIKey == "" {
				return fmt.Errorf("no YouTube API key (set .secrets/youtube-api-key or YOUTUBE_API_KEY)")
			}
			p = &search.YouTubeProvider{
				Client:     &http.Client{Timeout: cfg.Search.Timeout},
				APIKey:     cfg.Search.YouTubeAPIKey,
				MaxResults: cfg.Search.YouTubeMaxResults,
				UserAgent:  cfg.Search.UserAgent,
				MaxRetries: cfg.Search.MaxRetries,
			}
		default:
			return fmt.Errorf("unknown provider %q (want web or video)", kind)
		}

		batch := search.RunQueries(ctx, p, args, search.Options{
			MaxConcurrent: cfg.Search.MaxConcurrent,
			Timeout:       cfg.Search.Timeout,
			Logger:        logger,
		})

		if asJSON {
			reg := sources.NewRegistry()
			reg.Record(batch.Events()...)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Results []types.SearchResult `json:"results"`
				Failed  []string             `json:"failed,omitempty"`
				Sources *sources.Registry    `json:"sources"`
			}{batch.Results, batch.Failed, reg})
		}
		search.FormatText(batch, os.Stdout)
		return nil
	},
}

func init() {
	searchCmd.Flags().String("provider", string(types.ProviderWeb), "provider: web or video")
	searchCmd.Flags().Bool("json", false, "output results and registered sources as JSON")

	rootCmd.AddCommand(searchCmd)
}
