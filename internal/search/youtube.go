// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/marketing-research/internal/httputil"
	"github.com/pdiddy/marketing-research/pkg/types"
)

// youtubeSearchURL is the YouTube Data API search endpoint. Declared as a
// var so tests can substitute an httptest server.
var youtubeSearchURL = "https://www.googleapis.com/youtube/v3/search"

const (
	youtubeDomain         = "youtube.com"
	defaultYouTubeResults = 5
)

// YouTubeProvider searches videos through the YouTube Data API. Each video
// becomes one grounding chunk backing one line of the synthesis.
type YouTubeProvider struct {
	Client     *http.Client
	APIKey     string
	MaxResults int
	UserAgent  string
	MaxRetries int
}

// Name returns the provider identifier.
func (p *YouTubeProvider) Name() string { return "youtube" }

type youtubeResponse struct {
	Items []youtubeItem `json:"items"`
}

type youtubeItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ChannelTitle string `json:"channelTitle"`
		PublishedAt  string `json:"publishedAt"`
	} `json:"snippet"`
}

// Search lists videos matching query, most relevant first.
func (p *YouTubeProvider) Search(ctx context.Context, query string) (types.SearchResult, error) {
	if p.APIKey == "" {
		return types.SearchResult{}, fmt.Errorf("youtube API key is not configured")
	}
	maxResults := p.MaxResults
	if maxResults <= 0 {
		maxResults = defaultYouTubeResults
	}

	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"q":          {query},
		"maxResults": {strconv.Itoa(maxResults)},
		"order":      {"relevance"},
		"key":        {p.APIKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, youtubeSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return types.SearchResult{}, fmt.Errorf("creating request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, p.MaxRetries)
	if err != nil {
		return types.SearchResult{}, fmt.Errorf("YouTube API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.SearchResult{}, fmt.Errorf("YouTube API returned HTTP %d", resp.StatusCode)
	}

	var yr youtubeResponse
	if err := json.NewDecoder(resp.Body).Decode(&yr); err != nil {
		return types.SearchResult{}, fmt.Errorf("parsing YouTube response: %w", err)
	}

	return youtubeResult(query, yr.Items), nil
}

// youtubeResult turns the video list into a synthesis with one grounded
// line per video.
func youtubeResult(query string, items []youtubeItem) types.SearchResult {
	res := types.SearchResult{Query: query, Provider: "youtube"}
	var lines []string
	for _, it := range items {
		if it.ID.VideoID == "" {
			continue
		}
		title := html.UnescapeString(strings.TrimSpace(it.Snippet.Title))
		line := "- " + title
		var meta []string
		if it.Snippet.ChannelTitle != "" {
			meta = append(meta, html.UnescapeString(it.Snippet.ChannelTitle))
		}
		if len(it.Snippet.PublishedAt) >= 10 {
			meta = append(meta, it.Snippet.PublishedAt[:10])
		}
		if len(meta) > 0 {
			line += " (" + strings.Join(meta, ", ") + ")"
		}
		if desc := strings.TrimSpace(html.UnescapeString(it.Snippet.Description)); desc != "" {
			line += ": " + desc
		}

		idx := len(res.Grounding.Chunks)
		res.Grounding.Chunks = append(res.Grounding.Chunks, types.GroundingChunk{
			URL:    "https://www.youtube.com/watch?v=" + url.QueryEscape(it.ID.VideoID),
			Title:  title,
			Domain: youtubeDomain,
		})
		res.Grounding.Supports = append(res.Grounding.Supports, types.GroundingSupport{
			ChunkIndex:  idx,
			TextSegment: line,
		})
		lines = append(lines, line)
	}
	res.Synthesis = strings.Join(lines, "\n")
	return res
}
