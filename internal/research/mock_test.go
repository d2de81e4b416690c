// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/marketing-research/internal/generate"
	"github.com/pdiddy/marketing-research/pkg/types"
)

var (
	topicLineRe  = regexp.MustCompile(`Research topic: (.+)`)
	sourceLineRe = regexp.MustCompile(`(?m)^(src-\d+) \|`)
)

// mockGenerator answers planner, evaluator and composer requests by their
// system instructions.
type mockGenerator struct {
	mu sync.Mutex

	// queries maps a topic title to the planner's queries; planErr maps a
	// title to a raw (possibly malformed) planner reply.
	queries  map[string][]string
	planRaw  map[string]string
	verdicts []string
	compose  func(prompt string) (string, error)

	evalCalls    int
	composeCalls int
	prompts      []string
}

func (m *mockGenerator) Generate(_ context.Context, req generate.Request) (generate.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, req.Prompt)

	switch req.System {
	case plannerSystem:
		title := ""
		if mt := topicLineRe.FindStringSubmatch(req.Prompt); mt != nil {
			title = strings.TrimSpace(mt[1])
		}
		if raw, ok := m.planRaw[title]; ok {
			return generate.Response{Text: raw}, nil
		}
		data, _ := json.Marshal(map[string][]string{"queries": m.queries[title]})
		return generate.Response{Text: string(data)}, nil

	case evaluatorSystem:
		m.evalCalls++
		if len(m.verdicts) == 0 {
			return generate.Response{Text: `{"grade":"pass","comment":"complete"}`}, nil
		}
		i := min(m.evalCalls-1, len(m.verdicts)-1)
		return generate.Response{Text: m.verdicts[i]}, nil

	case composerSystem:
		m.composeCalls++
		if m.compose != nil {
			return wrapText(m.compose(req.Prompt))
		}
		return generate.Response{Text: citeAll(req.Prompt)}, nil
	}
	return generate.Response{}, fmt.Errorf("unexpected request %q", req.System)
}

func wrapText(text string, err error) (generate.Response, error) {
	return generate.Response{Text: text}, err
}

// citeAll writes a report with one section per requested heading; each
// topic section cites the matching source in listing order.
func citeAll(prompt string) string {
	var ids []string
	for _, m := range sourceLineRe.FindAllStringSubmatch(prompt, -1) {
		ids = append(ids, m[1])
	}
	var headings []string
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "## ") {
			headings = append(headings, strings.TrimPrefix(line, "## "))
		}
	}

	var b strings.Builder
	for i, h := range headings {
		fmt.Fprintf(&b, "## %s\n\n", h)
		if h == InsightsSection {
			b.WriteString("Every channel points the same way.\n\n")
			continue
		}
		if i < len(ids) {
			fmt.Fprintf(&b, "A finding about %s <cite source=\"%s\"/>.\n\n", strings.ToLower(h), ids[i])
		}
	}
	b.WriteString("## References\n\n1. should be stripped\n")
	return b.String()
}

// mockProvider answers queries from a table. Queries in errs fail; unknown
// queries return nothing.
type mockProvider struct {
	name    string
	results map[string]types.SearchResult
	errs    map[string]error
	delay   time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32

	mu      sync.Mutex
	queries []string
}

func (m *mockProvider) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockProvider) Search(ctx context.Context, query string) (types.SearchResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return types.SearchResult{}, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if err := m.errs[query]; err != nil {
		return types.SearchResult{}, err
	}
	return m.results[query], nil
}

// grounded builds a result whose synthesis is backed by one chunk.
func grounded(query, text, url, title string) types.SearchResult {
	conf := 0.8
	return types.SearchResult{
		Query:     query,
		Synthesis: text,
		Grounding: types.GroundingEvent{
			Chunks:   []types.GroundingChunk{{URL: url, Title: title}},
			Supports: []types.GroundingSupport{{ChunkIndex: 0, TextSegment: text, Confidence: &conf}},
		},
	}
}

// recordingCheckpointer keeps the phase of every snapshot.
type recordingCheckpointer struct {
	phases []Phase
	err    error
}

func (r *recordingCheckpointer) Checkpoint(_ context.Context, s *PassState) error {
	r.phases = append(r.phases, s.Phase)
	return r.err
}

func threeTopicPlan() types.Plan {
	return types.Plan{
		Name:  "spring-launch",
		Brief: "Launch of a lightweight running shoe.",
		Topics: []types.Topic{
			{Name: "search_trends", Title: "Search Trends", Goal: "What people search for."},
			{Name: "video_trends", Title: "Video Trends", Goal: "What video creators cover."},
			{Name: "campaign", Title: "Campaign Guide", Goal: "What the guide requires."},
		},
	}
}

// threeTopicFixture returns a generator and provider where each topic plans
// one query answered by one grounded chunk.
func threeTopicFixture() (*mockGenerator, *mockProvider) {
	gen := &mockGenerator{queries: map[string][]string{
		"Search Trends":  {"running shoe searches"},
		"Video Trends":   {"running shoe videos"},
		"Campaign Guide": {"campaign guide rules"},
	}}
	prov := &mockProvider{results: map[string]types.SearchResult{
		"running shoe searches": grounded("running shoe searches", "Searches for light shoes rose 30%.", "https://trends.example/shoes", "Trends Report"),
		"running shoe videos":   grounded("running shoe videos", "Unboxing videos dominate.", "https://video.example/unbox", "Video Study"),
		"campaign guide rules":  grounded("campaign guide rules", "The guide requires a youth focus.", "https://brand.example/guide", "Brand Guide"),
	}}
	return gen, prov
}
