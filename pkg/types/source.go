// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the marketing-research
// pipeline: grounding events returned by search, the deduplicated Source
// records built from them, per-topic research state, evaluator verdicts,
// and the cited/final reports.
//
// See docs/ARCHITECTURE.md § Data Model.
package types

// DefaultClaimConfidence is recorded for a grounding support that carries
// no confidence score.
const DefaultClaimConfidence = 0.5

// SupportedClaim is a text segment of generated output that a source backs.
type SupportedClaim struct {
	// TextSegment is the span of synthesis text the source supports.
	TextSegment string `json:"text_segment" yaml:"text_segment"`

	// Confidence is the grounding confidence between 0.0 and 1.0.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Source is a deduplicated web reference discovered during a research pass.
// URL is the dedup key; ShortID ("src-N") is assigned in first-discovery
// order and never changes afterwards.
type Source struct {
	ShortID         string           `json:"short_id" yaml:"short_id"`
	Title           string           `json:"title" yaml:"title"`
	URL             string           `json:"url" yaml:"url"`
	Domain          string           `json:"domain" yaml:"domain"`
	SupportedClaims []SupportedClaim `json:"supported_claims" yaml:"supported_claims"`
}

// DisplayText returns the link text used when a citation to s is rendered:
// the title, else the domain, else the short id.
func (s Source) DisplayText() string {
	switch {
	case s.Title != "":
		return s.Title
	case s.Domain != "":
		return s.Domain
	default:
		return s.ShortID
	}
}

// GroundingChunk is a web reference returned alongside a search-backed
// generation call.
type GroundingChunk struct {
	URL    string `json:"url" yaml:"url"`
	Title  string `json:"title" yaml:"title"`
	Domain string `json:"domain" yaml:"domain"`
}

// GroundingSupport links a text segment of generated output to one chunk
// of the same event by position. A nil Confidence means the provider did
// not score the link.
type GroundingSupport struct {
	ChunkIndex  int      `json:"chunk_index" yaml:"chunk_index"`
	TextSegment string   `json:"text_segment" yaml:"text_segment"`
	Confidence  *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// GroundingEvent carries the grounding metadata of one search call.
// Either list may be empty.
type GroundingEvent struct {
	Chunks   []GroundingChunk   `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	Supports []GroundingSupport `json:"supports,omitempty" yaml:"supports,omitempty"`
}

// IsEmpty reports whether the event carries no grounding data.
func (e GroundingEvent) IsEmpty() bool {
	return len(e.Chunks) == 0 && len(e.Supports) == 0
}

// SearchResult is the response of one external search call.
type SearchResult struct {
	// Query is the search query as issued.
	Query string `json:"query" yaml:"query"`

	// Provider names the backend that answered (e.g. "gemini", "youtube").
	Provider string `json:"provider" yaml:"provider"`

	// Synthesis is the provider's prose answer for the query.
	Synthesis string `json:"synthesis" yaml:"synthesis"`

	// Grounding holds the chunks and supports backing Synthesis.
	Grounding GroundingEvent `json:"grounding" yaml:"grounding"`
}
