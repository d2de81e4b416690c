// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pdiddy/marketing-research/internal/generate"
	"github.com/pdiddy/marketing-research/pkg/types"
)

// Merge joins the per-topic syntheses into one document with a level-two
// heading per topic, in plan order. Topics without findings are listed
// with a placeholder so the evaluator sees the gap.
func Merge(plan types.Plan, topics map[string]*types.ResearchState) string {
	var blocks []string
	for _, t := range plan.Topics {
		body := "_No findings._"
		if st, ok := topics[t.Name]; ok && st != nil && strings.TrimSpace(st.Synthesis) != "" {
			body = strings.TrimSpace(st.Synthesis)
		}
		blocks = append(blocks, fmt.Sprintf("## %s\n\n%s", t.Title, body))
	}
	return strings.Join(blocks, "\n\n")
}

// VerdictSchema is the structure the evaluator must return.
func VerdictSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"grade": {
				Type:        genai.TypeString,
				Description: "pass when the findings cover every goal, fail otherwise.",
				Enum:        []string{string(types.GradePass), string(types.GradeFail)},
			},
			"comment": {
				Type:        genai.TypeString,
				Description: "What is missing, or a tangential area worth exploring.",
			},
			"follow_up_queries": {
				Type:        genai.TypeArray,
				Description: "Search queries that close the gaps; empty on pass.",
				Items:       &genai.Schema{Type: genai.TypeString},
				Nullable:    genai.Ptr(true),
			},
		},
		Required: []string{"grade", "comment"},
	}
}

// Evaluator critiques merged findings against the plan's goals.
type Evaluator struct {
	Generator generate.Generator

	// MaxFollowUps caps follow-up queries; 0 means DefaultFollowUps.
	MaxFollowUps int

	// MaxRetries bounds retries on malformed output; 0 fails at once.
	MaxRetries int

	Logger *zap.Logger
}

// Evaluate returns a schema-validated verdict. Malformed output is an
// error wrapping generate.ErrSchema. Follow-ups are trimmed, deduplicated
// and capped. The grade is advisory: only the follow-ups drive refinement.
func (e *Evaluator) Evaluate(ctx context.Context, merged string, plan types.Plan) (types.EvaluationVerdict, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := e.MaxFollowUps
	if limit <= 0 {
		limit = DefaultFollowUps
	}

	prompt, err := render(evaluatorTmpl, evaluatorData{
		Brief:        plan.Brief,
		Topics:       plan.Topics,
		Merged:       merged,
		MaxFollowUps: limit,
	})
	if err != nil {
		return types.EvaluationVerdict{}, fmt.Errorf("rendering evaluator prompt: %w", err)
	}

	var v types.EvaluationVerdict
	req := generate.Request{System: evaluatorSystem, Prompt: prompt, Schema: VerdictSchema()}
	if err := generate.JSON(ctx, e.Generator, req, &v, e.MaxRetries); err != nil {
		return types.EvaluationVerdict{}, fmt.Errorf("evaluating findings: %w", err)
	}

	v.FollowUpQueries = cleanQueries(v.FollowUpQueries)
	if len(v.FollowUpQueries) > limit {
		logger.Warn("truncating follow-up queries",
			zap.Int("requested", len(v.FollowUpQueries)), zap.Int("max", limit))
		v.FollowUpQueries = v.FollowUpQueries[:limit]
	}
	if len(v.FollowUpQueries) == 0 {
		v.FollowUpQueries = nil
	}
	return v, nil
}
