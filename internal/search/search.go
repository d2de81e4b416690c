// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs research queries against external search providers
// and gathers their prose answers and grounding metadata.
//
// See docs/ARCHITECTURE.md § Research Stage.
package search

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/marketing-research/internal/metrics"
	"github.com/pdiddy/marketing-research/pkg/types"
)

// Provider answers a single query. Each backend (Gemini grounded search,
// YouTube) implements this interface.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) (types.SearchResult, error)
}

// Options bound a batch of queries.
type Options struct {
	// MaxConcurrent caps in-flight queries; 0 runs all at once.
	MaxConcurrent int

	// Timeout bounds each call; 0 means no per-call timeout.
	Timeout time.Duration

	Logger *zap.Logger
}

// Batch is the outcome of RunQueries.
type Batch struct {
	// Results holds the queries that produced something, in query order.
	Results []types.SearchResult

	// Failed lists queries that errored or came back empty, in query order.
	Failed []string

	Coverage types.Coverage
}

// Events returns the grounding metadata of every result in order.
func (b Batch) Events() []types.GroundingEvent {
	events := make([]types.GroundingEvent, 0, len(b.Results))
	for _, r := range b.Results {
		events = append(events, r.Grounding)
	}
	return events
}

// RunQueries issues every query against p concurrently and waits for all of
// them. A query that errors or returns nothing is logged and listed in
// Failed; it never fails the batch.
func RunQueries(ctx context.Context, p Provider, queries []string, opts Options) Batch {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	type outcome struct {
		result types.SearchResult
		ok     bool
	}
	outcomes := make([]outcome, len(queries))

	var g errgroup.Group
	if opts.MaxConcurrent > 0 {
		g.SetLimit(opts.MaxConcurrent)
	}
	for i, q := range queries {
		g.Go(func() error {
			callCtx := ctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}

			start := time.Now()
			res, err := p.Search(callCtx, q)
			elapsed := time.Since(start).Seconds()

			switch {
			case err != nil:
				metrics.RecordSearch(p.Name(), metrics.OutcomeError, elapsed)
				logger.Warn("search failed",
					zap.String("provider", p.Name()),
					zap.String("query", q),
					zap.Error(err))
			case isEmpty(res):
				metrics.RecordSearch(p.Name(), metrics.OutcomeEmpty, elapsed)
				logger.Warn("search returned nothing",
					zap.String("provider", p.Name()),
					zap.String("query", q))
			default:
				metrics.RecordSearch(p.Name(), metrics.OutcomeOK, elapsed)
				if res.Query == "" {
					res.Query = q
				}
				if res.Provider == "" {
					res.Provider = p.Name()
				}
				outcomes[i] = outcome{result: res, ok: true}
			}
			return nil
		})
	}
	_ = g.Wait()

	batch := Batch{Coverage: types.Coverage{Total: len(queries)}}
	for i, o := range outcomes {
		if !o.ok {
			batch.Failed = append(batch.Failed, queries[i])
			continue
		}
		batch.Results = append(batch.Results, o.result)
		batch.Coverage.Succeeded++
	}
	return batch
}

// Synthesize joins the results into one text block per query, in order.
func Synthesize(results []types.SearchResult) string {
	var blocks []string
	for _, r := range results {
		text := strings.TrimSpace(r.Synthesis)
		if text == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("### %s\n\n%s", r.Query, text))
	}
	return strings.Join(blocks, "\n\n")
}

// FormatText writes a batch as readable text with its grounding chunks.
func FormatText(b Batch, w io.Writer) {
	if len(b.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
	}
	for _, r := range b.Results {
		fmt.Fprintf(w, "== %s (%s)\n\n%s\n", r.Query, r.Provider, strings.TrimSpace(r.Synthesis))
		for i, c := range r.Grounding.Chunks {
			fmt.Fprintf(w, "  [%d] %s  %s\n", i, c.Title, c.URL)
		}
		fmt.Fprintln(w)
	}
	for _, q := range b.Failed {
		fmt.Fprintf(w, "warning: no results for %q\n", q)
	}
	fmt.Fprintf(w, "%d of %d queries answered\n", b.Coverage.Succeeded, b.Coverage.Total)
}

func isEmpty(r types.SearchResult) bool {
	return strings.TrimSpace(r.Synthesis) == "" && r.Grounding.IsEmpty()
}
