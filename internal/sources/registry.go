// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources accumulates deduplicated citation sources discovered
// during a research pass and assigns each a stable short id.
//
// See docs/ARCHITECTURE.md § Source Registry.
package sources

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/marketing-research/pkg/types"
)

// IDPrefix is the prefix of every short id.
const IDPrefix = "src-"

// Registry maps source URLs to sequential short ids. A Registry is not safe
// for concurrent writes; the pipeline gives each fan-out stage its own.
type Registry struct {
	sources map[string]*types.Source // short id → source
	byURL   map[string]string        // url → short id
	order   []string                 // short ids in first-discovery order
	last    int                      // highest numeric id suffix in use
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]*types.Source),
		byURL:   make(map[string]string),
	}
}

// FromSources rebuilds a registry from previously exported sources, keeping
// their short ids. Sources with an empty URL or id, a URL already seen, or
// an id already taken are skipped. New ids continue after the highest
// imported one, so gaps are never filled.
func FromSources(list []types.Source) *Registry {
	r := NewRegistry()
	for _, s := range list {
		if s.URL == "" || s.ShortID == "" {
			continue
		}
		if _, ok := r.byURL[s.URL]; ok {
			continue
		}
		if _, ok := r.sources[s.ShortID]; ok {
			continue
		}
		if n, ok := idNumber(s.ShortID); ok && n > r.last {
			r.last = n
		}
		src := s
		src.SupportedClaims = append([]types.SupportedClaim(nil), s.SupportedClaims...)
		r.sources[src.ShortID] = &src
		r.byURL[src.URL] = src.ShortID
		r.order = append(r.order, src.ShortID)
	}
	return r
}

// Record folds grounding events into the registry. Unseen URLs get the next
// short id; claims are appended to the source their chunk resolves to.
// Re-recording the same events changes nothing. Malformed or empty events
// are ignored.
func (r *Registry) Record(events ...types.GroundingEvent) {
	for _, ev := range events {
		// Position in ev.Chunks → short id, for this event only.
		resolved := make(map[int]string, len(ev.Chunks))
		for i, chunk := range ev.Chunks {
			if strings.TrimSpace(chunk.URL) == "" {
				continue
			}
			resolved[i] = r.add(chunk)
		}

		for _, sup := range ev.Supports {
			id, ok := resolved[sup.ChunkIndex]
			if !ok || sup.TextSegment == "" {
				continue
			}
			conf := types.DefaultClaimConfidence
			if sup.Confidence != nil {
				conf = *sup.Confidence
			}
			r.addClaim(id, types.SupportedClaim{TextSegment: sup.TextSegment, Confidence: conf})
		}
	}
}

// add returns the short id for chunk.URL, assigning the next one if needed.
func (r *Registry) add(chunk types.GroundingChunk) string {
	if id, ok := r.byURL[chunk.URL]; ok {
		return id
	}

	domain := chunk.Domain
	if domain == "" {
		domain = domainOf(chunk.URL)
	}
	title := chunk.Title
	if title == "" || title == chunk.Domain {
		title = domain
	}

	r.last++
	id := fmt.Sprintf("%s%d", IDPrefix, r.last)
	r.sources[id] = &types.Source{
		ShortID: id,
		Title:   title,
		URL:     chunk.URL,
		Domain:  domain,
	}
	r.byURL[chunk.URL] = id
	r.order = append(r.order, id)
	return id
}

func (r *Registry) addClaim(id string, claim types.SupportedClaim) {
	src := r.sources[id]
	for _, c := range src.SupportedClaims {
		if c == claim {
			return
		}
	}
	src.SupportedClaims = append(src.SupportedClaims, claim)
}

// Get returns a copy of the source with the given short id.
func (r *Registry) Get(shortID string) (types.Source, bool) {
	src, ok := r.sources[shortID]
	if !ok {
		return types.Source{}, false
	}
	return clone(src), true
}

// Lookup returns the short id assigned to url.
func (r *Registry) Lookup(url string) (string, bool) {
	id, ok := r.byURL[url]
	return id, ok
}

// Len returns the number of distinct sources. A nil registry is empty.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// List returns copies of all sources in short id order.
func (r *Registry) List() []types.Source {
	out := make([]types.Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clone(r.sources[id]))
	}
	return out
}

// Map returns copies of all sources keyed by short id.
func (r *Registry) Map() map[string]types.Source {
	out := make(map[string]types.Source, len(r.order))
	for _, id := range r.order {
		out[id] = clone(r.sources[id])
	}
	return out
}

// URLIndex returns a copy of the url → short id index.
func (r *Registry) URLIndex() map[string]string {
	out := make(map[string]string, len(r.byURL))
	for u, id := range r.byURL {
		out[u] = id
	}
	return out
}

// MarshalYAML exports the sources as an ordered YAML list.
func (r *Registry) MarshalYAML() ([]byte, error) {
	data, err := yaml.Marshal(r.List())
	if err != nil {
		return nil, fmt.Errorf("marshaling sources: %w", err)
	}
	return data, nil
}

// UnmarshalYAML parses a list written by MarshalYAML into a registry.
func UnmarshalYAML(data []byte) (*Registry, error) {
	var list []types.Source
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}
	return FromSources(list), nil
}

// MarshalJSON encodes the registry as an ordered list of sources.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.List())
}

// UnmarshalJSON replaces r with the sources of a list written by
// MarshalJSON.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var list []types.Source
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parsing sources: %w", err)
	}
	*r = *FromSources(list)
	return nil
}

// idNumber returns the numeric suffix of a "src-N" id.
func idNumber(id string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, IDPrefix))
	if err != nil || !strings.HasPrefix(id, IDPrefix) || n <= 0 {
		return 0, false
	}
	return n, true
}

func clone(s *types.Source) types.Source {
	c := *s
	c.SupportedClaims = append([]types.SupportedClaim(nil), s.SupportedClaims...)
	return c
}

// domainOf returns the host of rawURL without a leading "www.".
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
