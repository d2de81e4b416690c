// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pdiddy/marketing-research/internal/generate"
	"github.com/pdiddy/marketing-research/internal/search"
	"github.com/pdiddy/marketing-research/internal/sources"
	"github.com/pdiddy/marketing-research/pkg/types"
)

// Stage is one plan → search → synthesize unit for a single topic.
type Stage struct {
	Topic     types.Topic
	Brief     string
	Generator generate.Generator
	Provider  search.Provider

	// Search bounds the query batch.
	Search search.Options

	// MaxRetries bounds planner retries on malformed output.
	MaxRetries int

	Logger *zap.Logger
}

// StageResult is what a stage hands back to the pipeline. Events carries
// the grounding metadata in query order so the pipeline can fold it into
// the pass registry after fan-out.
type StageResult struct {
	State    types.ResearchState
	Events   []types.GroundingEvent
	Coverage types.Coverage
}

type plannedQueries struct {
	Queries []string `json:"queries"`
}

// plannerSchema constrains the planner reply to a bare list of queries.
func plannerSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"queries": {
				Type:        genai.TypeArray,
				Description: "Search queries in priority order.",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"queries"},
	}
}

// Run plans queries, runs them and synthesizes the answers. It never
// returns an error: a planning failure yields an empty state with Error
// set, and failed queries are left out of the synthesis.
func (s *Stage) Run(ctx context.Context) StageResult {
	logger := s.logger()
	state := types.ResearchState{
		Topic:        s.Topic.Name,
		Sources:      map[string]types.Source{},
		URLToShortID: map[string]string{},
	}

	queries, err := s.plan(ctx)
	if err != nil {
		logger.Warn("query planning failed", zap.Error(err))
		state.Error = err.Error()
		return StageResult{State: state}
	}
	state.Queries = queries

	opts := s.Search
	opts.Logger = logger
	batch := search.RunQueries(ctx, s.Provider, queries, opts)

	reg := sources.NewRegistry()
	events := batch.Events()
	reg.Record(events...)

	state.Synthesis = search.Synthesize(batch.Results)
	state.Sources = reg.Map()
	state.URLToShortID = reg.URLIndex()
	state.FailedQueries = batch.Failed
	if state.Synthesis == "" && len(queries) > 0 {
		state.Error = "no query returned results"
	}

	logger.Info("research stage finished",
		zap.Int("queries", len(queries)),
		zap.Int("failed", len(batch.Failed)),
		zap.Int("sources", reg.Len()))

	return StageResult{State: state, Events: events, Coverage: batch.Coverage}
}

// plan asks the generator for queries and enforces the topic's bounds.
func (s *Stage) plan(ctx context.Context) ([]string, error) {
	prompt, err := render(plannerTmpl, plannerData{Brief: s.Brief, Topic: s.Topic})
	if err != nil {
		return nil, fmt.Errorf("rendering planner prompt: %w", err)
	}

	var out plannedQueries
	req := generate.Request{System: plannerSystem, Prompt: prompt, Schema: plannerSchema()}
	if err := generate.JSON(ctx, s.Generator, req, &out, s.MaxRetries); err != nil {
		return nil, fmt.Errorf("planning queries: %w", err)
	}

	queries := cleanQueries(out.Queries)
	if len(queries) == 0 {
		return nil, fmt.Errorf("planner returned no queries")
	}
	if limit := s.Topic.MaxQueries; limit > 0 && len(queries) > limit {
		s.logger().Warn("truncating planned queries",
			zap.Int("planned", len(queries)), zap.Int("max", limit))
		queries = queries[:limit]
	}
	if len(queries) < s.Topic.MinQueries {
		s.logger().Info("planner returned fewer queries than requested",
			zap.Int("planned", len(queries)), zap.Int("min", s.Topic.MinQueries))
	}
	return queries, nil
}

func (s *Stage) logger() *zap.Logger {
	l := s.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return l.With(zap.String("topic", s.Topic.Name))
}

// cleanQueries trims blanks and drops empty and repeated queries, keeping
// the first occurrence.
func cleanQueries(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}
