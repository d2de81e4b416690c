// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the marketing-research CLI.
// See docs/ARCHITECTURE.md § Pipeline Driver, § Artifacts.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/marketing-research/internal/gemini"
	"github.com/pdiddy/marketing-research/internal/logging"
	"github.com/pdiddy/marketing-research/internal/secrets"
	"github.com/pdiddy/marketing-research/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the marketing-research CLI.
var rootCmd = &cobra.Command{
	Use:   "marketing-research",
	Short: "Multi-topic marketing research with cited reports",
	Long: `marketing-research runs a research pass for a campaign plan: one research
stage per topic runs concurrently, an evaluator critiques the merged findings
and requests follow-up searches, and a composer writes a report whose inline
citations are rewritten into markdown links.

Plans are YAML files listing topics with their goals and query bounds.
Reports and their sources are stored as versioned artifacts per pass.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./marketing-research.yaml or ~/.config/marketing-research/marketing-research.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func setDefaults() {
	viper.SetDefault("ai.model", gemini.DefaultModel)
	viper.SetDefault("ai.max_retries", 0)
	viper.SetDefault("ai.timeout", 2*time.Minute)
	viper.SetDefault("ai.temperature", 0)

	viper.SetDefault("search.model", "")
	viper.SetDefault("search.timeout", time.Minute)
	viper.SetDefault("search.user_agent", "marketing-research/"+version)
	viper.SetDefault("search.rate_per_second", 0)
	viper.SetDefault("search.burst", 1)
	viper.SetDefault("search.max_concurrent", 0)
	viper.SetDefault("search.youtube_max_results", 5)
	viper.SetDefault("search.max_retries", 5)

	viper.SetDefault("pipeline.min_queries", 2)
	viper.SetDefault("pipeline.max_queries", 7)
	viper.SetDefault("pipeline.max_follow_ups", 7)
	viper.SetDefault("pipeline.max_refinement_rounds", 1)
	viper.SetDefault("pipeline.max_concurrent_stages", 0)

	viper.SetDefault("storage.artifact_db", filepath.Join("data", "artifacts.db"))
	viper.SetDefault("storage.blob_dir", filepath.Join("data", "blobs"))

	viper.SetDefault("session.redis_addr", "")
	viper.SetDefault("session.ttl", 24*time.Hour)

	viper.SetDefault("render.image", "pandoc/latex:3.6")
	viper.SetDefault("render.runtime", "")
	viper.SetDefault("render.timeout", 5*time.Minute)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")

	viper.SetDefault("metrics.file", "")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("marketing-research")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "marketing-research"))
		}
	}

	setDefaults()
	viper.SetEnvPrefix("MARKETING_RESEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged configuration and fills credentials from
// secrets when the config leaves them empty.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = loadedSecrets.Get(secrets.GeminiAPIKey)
	}
	if cfg.Search.YouTubeAPIKey == "" {
		cfg.Search.YouTubeAPIKey = loadedSecrets.Get(secrets.YouTubeAPIKey)
	}
	if cfg.Session.RedisPassword == "" {
		cfg.Session.RedisPassword = loadedSecrets.Get(secrets.RedisPassword)
	}
	return cfg, nil
}

func newLogger(cfg types.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
