// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/marketing-research/pkg/types"
)

// mockProvider answers from a fixed table; missing queries return empty
// results, queries in errs fail.
type mockProvider struct {
	answers map[string]string
	errs    map[string]error
	delay   time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Search(ctx context.Context, query string) (types.SearchResult, error) {
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
	text, ok := m.answers[query]
	if !ok {
		return types.SearchResult{}, nil
	}
	return types.SearchResult{
		Synthesis: text,
		Grounding: types.GroundingEvent{
			Chunks: []types.GroundingChunk{{URL: "https://example.com/" + query}},
		},
	}, nil
}

func TestRunQueriesKeepsOrderAndAbsorbsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zapcore.WarnLevel)
	p := &mockProvider{
		answers: map[string]string{"a": "alpha", "c": "gamma", "d": "delta"},
		errs:    map[string]error{"b": errors.New("quota exceeded")},
	}

	batch := RunQueries(context.Background(), p, []string{"a", "b", "c", "missing", "d"}, Options{Logger: zap.New(core)})

	require.Len(t, batch.Results, 3)
	assert.Equal(t, "a", batch.Results[0].Query)
	assert.Equal(t, "c", batch.Results[1].Query)
	assert.Equal(t, "d", batch.Results[2].Query)
	assert.Equal(t, "mock", batch.Results[0].Provider)
	assert.Equal(t, []string{"b", "missing"}, batch.Failed)
	assert.Equal(t, types.Coverage{Succeeded: 3, Total: 5}, batch.Coverage)

	assert.Equal(t, 1, logs.FilterMessage("search failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("search returned nothing").Len())
	assert.Len(t, batch.Events(), 3)
}

func TestRunQueriesRunsConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &mockProvider{
		answers: map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
		delay:   50 * time.Millisecond,
	}
	start := time.Now()
	batch := RunQueries(context.Background(), p, []string{"a", "b", "c", "d"}, Options{})

	assert.Len(t, batch.Results, 4)
	assert.Equal(t, int32(4), p.peak.Load())
	assert.Less(t, time.Since(start), 180*time.Millisecond)
}

func TestRunQueriesRespectsLimit(t *testing.T) {
	p := &mockProvider{
		answers: map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
		delay:   10 * time.Millisecond,
	}
	batch := RunQueries(context.Background(), p, []string{"a", "b", "c", "d"}, Options{MaxConcurrent: 2})

	assert.Len(t, batch.Results, 4)
	assert.LessOrEqual(t, p.peak.Load(), int32(2))
}

func TestRunQueriesTimeout(t *testing.T) {
	p := &mockProvider{answers: map[string]string{"slow": "late"}, delay: time.Second}

	batch := RunQueries(context.Background(), p, []string{"slow"}, Options{Timeout: 10 * time.Millisecond})

	assert.Empty(t, batch.Results)
	assert.Equal(t, []string{"slow"}, batch.Failed)
}

func TestRunQueriesEmpty(t *testing.T) {
	batch := RunQueries(context.Background(), &mockProvider{}, nil, Options{})
	assert.Empty(t, batch.Results)
	assert.False(t, batch.Coverage.Degraded())
}

func TestSynthesize(t *testing.T) {
	got := Synthesize([]types.SearchResult{
		{Query: "q1", Synthesis: " first \n"},
		{Query: "q2", Synthesis: ""},
		{Query: "q3", Synthesis: "third"},
	})
	assert.Equal(t, "### q1\n\nfirst\n\n### q3\n\nthird", got)
	assert.Empty(t, Synthesize(nil))
}

func TestFormatText(t *testing.T) {
	var buf bytes.Buffer
	FormatText(Batch{
		Results: []types.SearchResult{{
			Query: "q", Provider: "mock", Synthesis: "answer",
			Grounding: types.GroundingEvent{Chunks: []types.GroundingChunk{{Title: "T", URL: "https://t.example"}}},
		}},
		Failed:   []string{"bad"},
		Coverage: types.Coverage{Succeeded: 1, Total: 2},
	}, &buf)

	out := buf.String()
	assert.Contains(t, out, "== q (mock)")
	assert.Contains(t, out, "[0] T  https://t.example")
	assert.Contains(t, out, `warning: no results for "bad"`)
	assert.Contains(t, out, "1 of 2 queries answered")
}

func TestRateLimited(t *testing.T) {
	p := &mockProvider{answers: map[string]string{"a": "1"}}
	assert.Same(t, p, NewRateLimited(p, 0, 0))

	limited := NewRateLimited(p, 1000, 1)
	require.IsType(t, &RateLimited{}, limited)
	assert.Equal(t, "mock", limited.Name())

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limited.Search(context.Background(), "a")
			assert.NoError(t, err)
			assert.Equal(t, "1", res.Synthesis)
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := NewRateLimited(p, 0.001, 1)
	_, _ = slow.Search(context.Background(), "a") // spend the only token
	_, err := slow.Search(ctx, "a")
	assert.Error(t, err)
}
