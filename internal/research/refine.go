// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/marketing-research/internal/search"
	"github.com/pdiddy/marketing-research/internal/sources"
	"github.com/pdiddy/marketing-research/pkg/types"
)

// FollowUpSection heads the findings a refinement round appends.
const FollowUpSection = "Follow-up findings"

// Refiner runs an evaluator's follow-up queries and appends what they find.
type Refiner struct {
	Provider search.Provider
	Search   search.Options
	Logger   *zap.Logger
}

// RefineResult is the outcome of one refinement round.
type RefineResult struct {
	// Synthesis is the prior synthesis followed by the new findings.
	Synthesis string

	// Findings holds only the new findings; empty when nothing came back.
	Findings string

	Failed   []string
	Coverage types.Coverage
}

// Refine runs every follow-up query concurrently, records their grounding
// into reg and returns prior extended with the new findings. The prior
// text is always kept verbatim as a prefix of the result.
func (r *Refiner) Refine(ctx context.Context, verdict types.EvaluationVerdict, prior string, reg *sources.Registry) RefineResult {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(verdict.FollowUpQueries) == 0 {
		return RefineResult{Synthesis: prior}
	}

	opts := r.Search
	opts.Logger = logger
	batch := search.RunQueries(ctx, r.Provider, verdict.FollowUpQueries, opts)
	if reg != nil {
		reg.Record(batch.Events()...)
	}

	res := RefineResult{
		Synthesis: prior,
		Findings:  search.Synthesize(batch.Results),
		Failed:    batch.Failed,
		Coverage:  batch.Coverage,
	}
	if res.Findings != "" {
		res.Synthesis = appendSection(prior, FollowUpSection, res.Findings)
	}

	logger.Info("refinement finished",
		zap.Int("queries", len(verdict.FollowUpQueries)),
		zap.Int("failed", len(batch.Failed)))
	return res
}

func appendSection(prior, title, body string) string {
	section := "## " + title + "\n\n" + body
	if strings.TrimSpace(prior) == "" {
		return prior + section
	}
	return prior + "\n\n" + section
}
