// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/marketing-research/pkg/types"
)

func conf(v float64) *float64 { return &v }

func event(chunks []types.GroundingChunk, supports ...types.GroundingSupport) types.GroundingEvent {
	return types.GroundingEvent{Chunks: chunks, Supports: supports}
}

func TestRecordAssignsSequentialIDs(t *testing.T) {
	r := NewRegistry()
	r.Record(event([]types.GroundingChunk{
		{URL: "https://a.example/1", Title: "A", Domain: "a.example"},
		{URL: "https://b.example/2", Title: "B", Domain: "b.example"},
	}))

	require.Equal(t, 2, r.Len())
	a, ok := r.Get("src-1")
	require.True(t, ok)
	assert.Equal(t, "https://a.example/1", a.URL)
	b, ok := r.Get("src-2")
	require.True(t, ok)
	assert.Equal(t, "https://b.example/2", b.URL)
}

func TestRecordDedupsByURLAndMergesClaims(t *testing.T) {
	r := NewRegistry()
	chunk := types.GroundingChunk{URL: "https://a.example/1", Title: "A", Domain: "a.example"}

	r.Record(
		event([]types.GroundingChunk{chunk}, types.GroundingSupport{ChunkIndex: 0, TextSegment: "first claim", Confidence: conf(0.9)}),
		event([]types.GroundingChunk{
			{URL: "https://c.example/3", Title: "C", Domain: "c.example"},
			chunk,
		}, types.GroundingSupport{ChunkIndex: 1, TextSegment: "second claim", Confidence: conf(0.7)}),
	)

	require.Equal(t, 2, r.Len())
	a, _ := r.Get("src-1")
	want := []types.SupportedClaim{
		{TextSegment: "first claim", Confidence: 0.9},
		{TextSegment: "second claim", Confidence: 0.7},
	}
	if diff := cmp.Diff(want, a.SupportedClaims); diff != "" {
		t.Errorf("claims mismatch (-want +got):\n%s", diff)
	}
	c, _ := r.Get("src-2")
	assert.Equal(t, "https://c.example/3", c.URL)
	assert.Empty(t, c.SupportedClaims)
}

func TestRecordIsIdempotent(t *testing.T) {
	ev := event([]types.GroundingChunk{
		{URL: "https://a.example/1", Title: "A", Domain: "a.example"},
	}, types.GroundingSupport{ChunkIndex: 0, TextSegment: "claim"})

	r := NewRegistry()
	r.Record(ev)
	first := r.List()
	r.Record(ev, ev)

	if diff := cmp.Diff(first, r.List()); diff != "" {
		t.Errorf("repeat Record changed registry (-before +after):\n%s", diff)
	}
}

func TestShortIDStableAcrossReencounters(t *testing.T) {
	r := NewRegistry()
	urls := []string{"https://x.example", "https://y.example", "https://x.example", "https://z.example", "https://y.example"}
	assigned := make(map[string]string)

	for _, u := range urls {
		r.Record(event([]types.GroundingChunk{{URL: u}}))
		id, ok := r.Lookup(u)
		require.True(t, ok)
		if prev, seen := assigned[u]; seen {
			assert.Equal(t, prev, id, "short id for %s changed", u)
		}
		assigned[u] = id
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "src-1", assigned["https://x.example"])
	assert.Equal(t, "src-2", assigned["https://y.example"])
	assert.Equal(t, "src-3", assigned["https://z.example"])
}

func TestRecordResumesCounter(t *testing.T) {
	r := FromSources([]types.Source{
		{ShortID: "src-1", URL: "https://a.example", Title: "A"},
		{ShortID: "src-2", URL: "https://b.example", Title: "B"},
	})
	r.Record(event([]types.GroundingChunk{{URL: "https://c.example", Title: "C"}}))

	id, ok := r.Lookup("https://c.example")
	require.True(t, ok)
	assert.Equal(t, "src-3", id)
}

func TestRecordAfterImportWithGaps(t *testing.T) {
	r := FromSources([]types.Source{
		{ShortID: "src-1", URL: "https://a.example", Title: "A"},
		{ShortID: "src-3", URL: "https://b.example", Title: "B"},
		{ShortID: "src-3", URL: "https://dup.example", Title: "taken id"},
		{ShortID: "custom", URL: "https://custom.example", Title: "Custom"},
	})
	require.Equal(t, 3, r.Len())

	r.Record(event([]types.GroundingChunk{{URL: "https://c.example", Title: "C"}}))

	id, ok := r.Lookup("https://c.example")
	require.True(t, ok)
	assert.Equal(t, "src-4", id)

	b, ok := r.Get("src-3")
	require.True(t, ok)
	assert.Equal(t, "https://b.example", b.URL)

	var ids []string
	for _, s := range r.List() {
		ids = append(ids, s.ShortID)
	}
	assert.Equal(t, []string{"src-1", "src-3", "custom", "src-4"}, ids)
	_, ok = r.Lookup("https://dup.example")
	assert.False(t, ok)
}

func TestRecordTitleFallsBackToDomain(t *testing.T) {
	tests := []struct {
		name      string
		chunk     types.GroundingChunk
		wantTitle string
		wantDom   string
	}{
		{"distinct title", types.GroundingChunk{URL: "https://a.example/x", Title: "Report", Domain: "a.example"}, "Report", "a.example"},
		{"title equals domain", types.GroundingChunk{URL: "https://a.example/x", Title: "a.example", Domain: "a.example"}, "a.example", "a.example"},
		{"empty title", types.GroundingChunk{URL: "https://a.example/x", Domain: "a.example"}, "a.example", "a.example"},
		{"domain from url", types.GroundingChunk{URL: "https://www.Trends.example/path"}, "trends.example", "trends.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.Record(event([]types.GroundingChunk{tt.chunk}))
			src, ok := r.Get("src-1")
			require.True(t, ok)
			assert.Equal(t, tt.wantTitle, src.Title)
			assert.Equal(t, tt.wantDom, src.Domain)
		})
	}
}

func TestRecordIgnoresMalformedGrounding(t *testing.T) {
	r := NewRegistry()
	r.Record(
		types.GroundingEvent{},
		event([]types.GroundingChunk{{URL: ""}, {URL: "   "}}),
		event([]types.GroundingChunk{{URL: "https://a.example"}},
			types.GroundingSupport{ChunkIndex: 5, TextSegment: "out of range"},
			types.GroundingSupport{ChunkIndex: -1, TextSegment: "negative"},
			types.GroundingSupport{ChunkIndex: 0, TextSegment: ""},
		),
	)

	require.Equal(t, 1, r.Len())
	src, _ := r.Get("src-1")
	assert.Empty(t, src.SupportedClaims)
}

func TestRecordSupportOnlyResolvesWithinEvent(t *testing.T) {
	r := NewRegistry()
	r.Record(event([]types.GroundingChunk{{URL: "https://a.example"}}))
	// Index 0 refers to this event's chunks, which are empty.
	r.Record(event(nil, types.GroundingSupport{ChunkIndex: 0, TextSegment: "orphan"}))

	src, _ := r.Get("src-1")
	assert.Empty(t, src.SupportedClaims)
}

func TestRecordDefaultConfidence(t *testing.T) {
	r := NewRegistry()
	r.Record(event([]types.GroundingChunk{{URL: "https://a.example"}},
		types.GroundingSupport{ChunkIndex: 0, TextSegment: "unscored"}))

	src, _ := r.Get("src-1")
	require.Len(t, src.SupportedClaims, 1)
	assert.Equal(t, types.DefaultClaimConfidence, src.SupportedClaims[0].Confidence)
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Record(event([]types.GroundingChunk{{URL: "https://a.example"}},
		types.GroundingSupport{ChunkIndex: 0, TextSegment: "claim"}))

	src, _ := r.Get("src-1")
	src.SupportedClaims[0].TextSegment = "mutated"
	src.Title = "mutated"

	again, _ := r.Get("src-1")
	assert.Equal(t, "claim", again.SupportedClaims[0].TextSegment)
	assert.NotEqual(t, "mutated", again.Title)

	_, ok := r.Get("src-99")
	assert.False(t, ok)
}

func TestYAMLRoundTripKeepsIDs(t *testing.T) {
	r := NewRegistry()
	r.Record(event([]types.GroundingChunk{
		{URL: "https://a.example", Title: "A"},
		{URL: "https://b.example", Title: "B"},
	}, types.GroundingSupport{ChunkIndex: 1, TextSegment: "b claim", Confidence: conf(0.8)}))

	data, err := r.MarshalYAML()
	require.NoError(t, err)

	back, err := UnmarshalYAML(data)
	require.NoError(t, err)
	if diff := cmp.Diff(r.List(), back.List()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.Record(event([]types.GroundingChunk{{URL: "https://a.example", Title: "A"}}))

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back Registry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.List(), back.List())

	back.Record(event([]types.GroundingChunk{{URL: "https://b.example"}}))
	id, _ := back.Lookup("https://b.example")
	assert.Equal(t, "src-2", id)
}
