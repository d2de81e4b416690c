// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/marketing-research/pkg/types"
)

// RunAll runs every stage concurrently and waits for all of them. A stage
// that fails, or panics, yields an empty entry with Error set; it never
// cancels or blocks its siblings. Results are keyed by topic name. limit
// caps concurrent stages; 0 runs all at once.
func RunAll(ctx context.Context, stages []*Stage, limit int) map[string]StageResult {
	results := make([]StageResult, len(stages))

	// A plain Group: no derived context, so one failure cancels nothing.
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, st := range stages {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = StageResult{State: types.ResearchState{
						Topic: st.Topic.Name,
						Error: fmt.Sprintf("stage panicked: %v", r),
					}}
				}
			}()
			results[i] = st.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]StageResult, len(stages))
	for i, st := range stages {
		out[st.Topic.Name] = results[i]
	}
	return out
}
