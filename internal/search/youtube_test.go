// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const youtubeFixture = `{
  "items": [
    {
      "id": {"videoId": "abc123"},
      "snippet": {
        "title": "Summer Sneaker Haul &amp; Review",
        "description": "Top picks for 2026.",
        "channelTitle": "KicksDaily",
        "publishedAt": "2026-06-01T12:00:00Z"
      }
    },
    {
      "id": {"channelId": "no-video"},
      "snippet": {"title": "A channel"}
    },
    {
      "id": {"videoId": "xyz789"},
      "snippet": {"title": "Unboxing", "description": ""}
    }
  ]
}`

func withYouTubeServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	old := youtubeSearchURL
	youtubeSearchURL = ts.URL
	t.Cleanup(func() { youtubeSearchURL = old })
}

func TestYouTubeProviderSearch(t *testing.T) {
	var gotQuery, gotKey, gotMax string
	withYouTubeServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("key")
		gotMax = r.URL.Query().Get("maxResults")
		assert.Equal(t, "video", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(youtubeFixture))
	})

	p := &YouTubeProvider{APIKey: "k", MaxResults: 3}
	res, err := p.Search(context.Background(), "sneaker trends")
	require.NoError(t, err)

	assert.Equal(t, "sneaker trends", gotQuery)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "3", gotMax)

	require.Len(t, res.Grounding.Chunks, 2)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", res.Grounding.Chunks[0].URL)
	assert.Equal(t, "Summer Sneaker Haul & Review", res.Grounding.Chunks[0].Title)
	assert.Equal(t, "youtube.com", res.Grounding.Chunks[0].Domain)

	require.Len(t, res.Grounding.Supports, 2)
	assert.Equal(t, 1, res.Grounding.Supports[1].ChunkIndex)
	assert.Nil(t, res.Grounding.Supports[0].Confidence)

	want := "- Summer Sneaker Haul & Review (KicksDaily, 2026-06-01): Top picks for 2026.\n- Unboxing"
	assert.Equal(t, want, res.Synthesis)
	assert.Equal(t, res.Grounding.Supports[0].TextSegment, "- Summer Sneaker Haul & Review (KicksDaily, 2026-06-01): Top picks for 2026.")
}

func TestYouTubeProviderErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := (&YouTubeProvider{}).Search(context.Background(), "q")
		assert.ErrorContains(t, err, "API key")
	})

	t.Run("http error", func(t *testing.T) {
		withYouTubeServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		_, err := (&YouTubeProvider{APIKey: "k"}).Search(context.Background(), "q")
		assert.ErrorContains(t, err, "HTTP 403")
	})

	t.Run("bad json", func(t *testing.T) {
		withYouTubeServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("{"))
		})
		_, err := (&YouTubeProvider{APIKey: "k"}).Search(context.Background(), "q")
		assert.ErrorContains(t, err, "parsing YouTube response")
	})

	t.Run("no videos is empty not error", func(t *testing.T) {
		withYouTubeServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"items":[]}`))
		})
		res, err := (&YouTubeProvider{APIKey: "k"}).Search(context.Background(), "q")
		require.NoError(t, err)
		assert.True(t, isEmpty(res))
	})
}
