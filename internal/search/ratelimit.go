// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/pdiddy/marketing-research/pkg/types"
)

// RateLimited wraps a Provider so that calls share one token bucket. A
// single RateLimited value is shared by every stage of a pass.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited returns p limited to perSecond calls with the given burst.
// A non-positive perSecond returns p unchanged.
func NewRateLimited(p Provider, perSecond float64, burst int) Provider {
	if perSecond <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{Provider: p, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Search waits for a token, then delegates.
func (r *RateLimited) Search(ctx context.Context, query string) (types.SearchResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return types.SearchResult{}, fmt.Errorf("waiting for rate limit: %w", err)
	}
	return r.Provider.Search(ctx, query)
}
