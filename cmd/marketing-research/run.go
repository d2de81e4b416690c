// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/marketing-research/internal/artifact"
	"github.com/pdiddy/marketing-research/internal/container"
	"github.com/pdiddy/marketing-research/internal/gemini"
	"github.com/pdiddy/marketing-research/internal/metrics"
	"github.com/pdiddy/marketing-research/internal/render"
	"github.com/pdiddy/marketing-research/internal/research"
	"github.com/pdiddy/marketing-research/internal/search"
	"github.com/pdiddy/marketing-research/internal/session"
	"github.com/pdiddy/marketing-research/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Run a research pass for a campaign plan",
	Long: `Run executes one research pass: a research stage per topic in the plan,
evaluation of the merged findings with follow-up searches, report
composition, and citation rewriting.

The final report is printed to stdout unless --out names a directory.
Report, cited draft, sources, and pass state are stored as versioned
artifacts under the pass id. A pass that fails part way still stores
what it produced.`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func init() {
	runCmd.Flags().String("out", "", "directory to write report.md and sources.yaml into")
	runCmd.Flags().Bool("pdf", false, "render the final report to PDF through a pandoc container")
	runCmd.Flags().Bool("upload", false, "upload report.md (and report.pdf) to the blob store")
	runCmd.Flags().Bool("no-store", false, "skip the artifact store")

	rootCmd.AddCommand(runCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
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

	plan, err := research.LoadPlan(args[0])
	if err != nil {
		return err
	}

	gc, err := gemini.New(ctx, cfg.AI, cfg.Search.Model)
	if err != nil {
		return err
	}

	p := &research.Pipeline{
		Generator:  gc,
		Providers:  providers(cfg, gc),
		Config:     cfg.Pipeline,
		Search:     search.Options{MaxConcurrent: cfg.Search.MaxConcurrent, Timeout: cfg.Search.Timeout},
		MaxRetries: cfg.AI.MaxRetries,
		Logger:     logger,
		Progress:   os.Stderr,
	}

	if cfg.Session.RedisAddr != "" {
		store, err := session.Dial(ctx, cfg.Session, logger)
		if err != nil {
			logger.Warn("checkpoints disabled", zap.Error(err))
		} else {
			defer store.Close()
			p.Checkpointer = store
		}
	}

	state, runErr := p.Run(ctx, plan)
	if state != nil {
		fmt.Fprintf(os.Stderr, "pass %s\n", state.ID)
		if err := finishPass(ctx, cmd, cfg, state, logger); err != nil {
			return err
		}
	}

	if cfg.Metrics.File != "" {
		if err := metrics.WriteFile(cfg.Metrics.File); err != nil {
			logger.Warn("writing metrics failed", zap.String("file", cfg.Metrics.File), zap.Error(err))
		}
	}
	return runErr
}

// providers builds the search backends. The video backend is only offered
// when a YouTube key is configured, so plans that need it fail validation
// instead of failing every query.
func providers(cfg types.Config, gc *gemini.Client) map[types.ProviderKind]search.Provider {
	out := map[types.ProviderKind]search.Provider{
		types.ProviderWeb: search.NewRateLimited(gc, cfg.Search.RatePerSecond, cfg.Search.Burst),
	}
	if cfg.Search.YouTubeAPIKey != "" {
		yt := &search.YouTubeProvider{
			Client:     &http.Client{Timeout: cfg.Search.Timeout},
			APIKey:     cfg.Search.YouTubeAPIKey,
			MaxResults: cfg.Search.YouTubeMaxResults,
			UserAgent:  cfg.Search.UserAgent,
			MaxRetries: cfg.Search.MaxRetries,
		}
		out[types.ProviderVideo] = search.NewRateLimited(yt, cfg.Search.RatePerSecond, cfg.Search.Burst)
	}
	return out
}

// finishPass stores the pass outputs and writes the report where asked.
func finishPass(ctx context.Context, cmd *cobra.Command, cfg types.Config, state *research.PassState, logger *zap.Logger) error {
	outDir, _ := cmd.Flags().GetString("out")
	wantPDF, _ := cmd.Flags().GetBool("pdf")
	upload, _ := cmd.Flags().GetBool("upload")
	noStore, _ := cmd.Flags().GetBool("no-store")

	entries, err := passEntries(state)
	if err != nil {
		return err
	}
	done := state.Phase == research.PhaseDone

	var pdf []byte
	if wantPDF && done {
		pdf = renderPDF(ctx, cfg, state.Final.Text, logger)
		if pdf != nil {
			entries = append(entries, artifact.Entry{Name: "report.pdf", ContentType: artifact.ContentPDF, Data: pdf})
		}
	}

	if !noStore {
		store, err := artifact.OpenSQLite(cfg.Storage.ArtifactDB)
		if err != nil {
			logger.Warn("artifact store unavailable", zap.Error(err))
		} else {
			defer store.Close()
			printPersist(artifact.SaveAll(ctx, store, state.ID, entries, logger))
		}
	}

	if upload && done {
		blobs := &artifact.DirBlobStore{Dir: cfg.Storage.BlobDir}
		results := []types.PersistResult{artifact.Upload(ctx, blobs, state.ID, "report.md", []byte(state.Final.Text), logger)}
		if pdf != nil {
			results = append(results, artifact.Upload(ctx, blobs, state.ID, "report.pdf", pdf, logger))
		}
		printPersist(results)
	}

	if !done {
		return nil
	}
	if outDir == "" {
		fmt.Fprintln(os.Stdout, state.Final.Text)
		return nil
	}
	return writeOutDir(outDir, entries)
}

// passEntries lists the artifacts a pass has produced so far.
func passEntries(state *research.PassState) ([]artifact.Entry, error) {
	stateJSON, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding pass state: %w", err)
	}
	sourcesYAML, err := state.Sources.MarshalYAML()
	if err != nil {
		return nil, fmt.Errorf("encoding sources: %w", err)
	}

	entries := []artifact.Entry{
		{Name: "state.json", ContentType: artifact.ContentJSON, Data: stateJSON},
		{Name: "sources.yaml", ContentType: artifact.ContentYAML, Data: sourcesYAML},
	}
	if state.Cited.Text != "" {
		entries = append(entries, artifact.Entry{Name: "report.cited.md", ContentType: artifact.ContentMarkdown, Data: []byte(state.Cited.Text)})
	}
	if state.Final.Text != "" {
		entries = append(entries, artifact.Entry{Name: "report.md", ContentType: artifact.ContentMarkdown, Data: []byte(state.Final.Text)})
	}
	return entries, nil
}

func renderPDF(ctx context.Context, cfg types.Config, markdown string, logger *zap.Logger) []byte {
	rt, err := container.Detect(ctx, cfg.Render.Runtime)
	if err != nil {
		logger.Warn("skipping PDF", zap.Error(err))
		return nil
	}
	r, err := render.NewContainerRenderer(ctx, rt, cfg.Render)
	if err != nil {
		logger.Warn("skipping PDF", zap.Error(err))
		return nil
	}
	pdf, err := r.Render(ctx, markdown)
	if err != nil {
		logger.Warn("rendering PDF failed", zap.Error(err))
		return nil
	}
	return pdf
}

func writeOutDir(dir string, entries []artifact.Entry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name)
		if err := os.WriteFile(path, e.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "wrote   %s\n", path)
	}
	return nil
}

func printPersist(results []types.PersistResult) {
	for _, r := range results {
		switch {
		case !r.OK():
			fmt.Fprintf(os.Stderr, "failed  %s: %s\n", r.Name, r.Error)
		case r.URI != "":
			fmt.Fprintf(os.Stderr, "uploaded %s -> %s\n", r.Name, r.URI)
		default:
			fmt.Fprintf(os.Stderr, "stored  %s v%d\n", r.Name, r.Version)
		}
	}
}
