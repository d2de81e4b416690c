// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gemini adapts the Gemini API to the generation and search
// capabilities the pipeline consumes. Search uses the Google Search tool
// and converts the response's grounding metadata into grounding events.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/pdiddy/marketing-research/internal/generate"
	"github.com/pdiddy/marketing-research/pkg/types"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// searchInstruction steers grounded search calls toward factual prose.
const searchInstruction = `You are a marketing research assistant. Answer the query with concise, factual findings drawn from Google Search results. Prefer recent data, name brands, platforms and figures where available, and do not speculate beyond what the results support.`

// contentGenerator is the subset of genai.Models the client uses, so tests
// can supply a fake.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements generate.Generator and search.Provider on Gemini.
type Client struct {
	models      contentGenerator
	model       string
	searchModel string
	temperature *float32
	timeout     time.Duration
}

// New creates a client for the Gemini API. searchModel may be empty to
// reuse cfg.Model for grounded search.
func New(ctx context.Context, cfg types.AIConfig, searchModel string) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return newClient(gc.Models, cfg, searchModel), nil
}

func newClient(models contentGenerator, cfg types.AIConfig, searchModel string) *Client {
	c := &Client{
		models:      models,
		model:       cfg.Model,
		searchModel: searchModel,
		timeout:     cfg.Timeout,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.searchModel == "" {
		c.searchModel = c.model
	}
	if cfg.Temperature > 0 {
		c.temperature = genai.Ptr(float32(cfg.Temperature))
	}
	return c
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "gemini" }

// Generate sends one request. When req.Schema is set the model is asked for
// JSON matching it; validation is left to the caller.
func (c *Client) Generate(ctx context.Context, req generate.Request) (generate.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	config := &genai.GenerateContentConfig{Temperature: c.temperature}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.Schema
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		return generate.Response{}, fmt.Errorf("calling gemini %s: %w", c.model, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return generate.Response{}, fmt.Errorf("gemini returned no candidates")
	}
	return generate.Response{Text: resp.Text()}, nil
}

// Search runs query with the Google Search tool enabled and returns the
// answer with its grounding metadata.
func (c *Client) Search(ctx context.Context, query string) (types.SearchResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(searchInstruction, genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		Temperature:       c.temperature,
	}

	resp, err := c.models.GenerateContent(ctx, c.searchModel, genai.Text(query), config)
	if err != nil {
		return types.SearchResult{}, fmt.Errorf("gemini search: %w", err)
	}

	res := types.SearchResult{Query: query, Provider: c.Name()}
	if resp == nil || len(resp.Candidates) == 0 {
		return res, nil
	}
	res.Synthesis = strings.TrimSpace(resp.Text())
	res.Grounding = groundingEvent(resp.Candidates[0].GroundingMetadata)
	return res, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// groundingEvent converts Gemini grounding metadata. A support naming
// several chunks yields one support per chunk, each with its own score.
func groundingEvent(md *genai.GroundingMetadata) types.GroundingEvent {
	var ev types.GroundingEvent
	if md == nil {
		return ev
	}

	for _, ch := range md.GroundingChunks {
		var chunk types.GroundingChunk
		if ch != nil && ch.Web != nil {
			chunk = types.GroundingChunk{
				URL:    ch.Web.URI,
				Title:  ch.Web.Title,
				Domain: ch.Web.Domain,
			}
		}
		// Keep positions aligned with chunk indices even for non-web chunks.
		ev.Chunks = append(ev.Chunks, chunk)
	}

	for _, sup := range md.GroundingSupports {
		if sup == nil || sup.Segment == nil || sup.Segment.Text == "" {
			continue
		}
		for i, idx := range sup.GroundingChunkIndices {
			gs := types.GroundingSupport{ChunkIndex: int(idx), TextSegment: sup.Segment.Text}
			if i < len(sup.ConfidenceScores) {
				conf := float64(sup.ConfidenceScores[i])
				gs.Confidence = &conf
			}
			ev.Supports = append(ev.Supports, gs)
		}
	}
	return ev
}
