// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pdiddy/marketing-research/internal/citation"
	"github.com/pdiddy/marketing-research/internal/generate"
	"github.com/pdiddy/marketing-research/internal/metrics"
	"github.com/pdiddy/marketing-research/internal/search"
	"github.com/pdiddy/marketing-research/internal/sources"
	"github.com/pdiddy/marketing-research/pkg/types"
)

// ErrNoFindings is returned when every research stage came back empty.
var ErrNoFindings = errors.New("no research stage produced findings")

// Pipeline drives one research pass:
// FAN_OUT → MERGE → EVALUATE → (REFINE → RE-MERGE)* → COMPOSE → CITE_REWRITE → DONE.
type Pipeline struct {
	Generator generate.Generator

	// Providers maps each provider kind a plan may name to its backend.
	// Follow-up queries go to the web provider.
	Providers map[types.ProviderKind]search.Provider

	Config types.PipelineConfig

	// Search bounds every query batch of the pass.
	Search search.Options

	// MaxRetries bounds retries of structured generation; 0 means none.
	MaxRetries int

	// Checkpointer, when set, receives the state after every phase.
	Checkpointer Checkpointer

	Tracer   trace.Tracer
	Logger   *zap.Logger
	Progress io.Writer
}

// Run executes a pass for plan. The returned state is non-nil whenever the
// plan is valid, including on failure, so callers can inspect how far the
// pass got. Failures are *StageError values naming the phase.
func (p *Pipeline) Run(ctx context.Context, plan types.Plan) (*PassState, error) {
	plan = ApplyDefaults(plan, p.Config)
	if err := ValidatePlan(plan); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	for _, t := range plan.Topics {
		if p.Providers[t.Provider] == nil {
			return nil, fmt.Errorf("invalid plan: topic %q: no %s search provider configured", t.Name, t.Provider)
		}
	}

	state := NewPassState(plan)
	ctx, span := p.startPassSpan(ctx, state)
	p.logger().Info("research pass started", zap.String("pass", state.ID), zap.Int("topics", len(plan.Topics)))

	err := p.run(ctx, state)

	status := "done"
	if err != nil {
		status = "failed"
		p.logger().Error("research pass failed", zap.String("pass", state.ID), zap.Error(err))
	}
	metrics.RecordPass(status, state.Rounds, state.Sources.Len(), len(state.Final.Dropped))
	endSpan(span, err,
		attribute.String("pass.status", status),
		attribute.Int("pass.rounds", state.Rounds),
		attribute.Int("pass.sources", state.Sources.Len()))
	return state, err
}

func (p *Pipeline) run(ctx context.Context, state *PassState) error {
	plan := state.Plan

	if err := p.phase(ctx, state, PhaseFanOut, func(ctx context.Context) error {
		p.progress("fan-out: %d topics\n", len(plan.Topics))
		results := RunAll(ctx, p.stages(plan), p.Config.MaxConcurrentStages)

		// Fold in plan order so pass-wide short ids are deterministic.
		for _, t := range plan.Topics {
			r := results[t.Name]
			st := r.State
			state.Topics[t.Name] = &st
			state.Sources.Record(r.Events...)
			passScoped(&st, state.Sources)
			state.Coverage.Add(r.Coverage)

			if st.IsEmpty() {
				p.logger().Warn("topic produced no findings", zap.String("topic", t.Name), zap.String("reason", st.Error))
				p.progress("warning: topic %s produced no findings: %s\n", t.Name, st.Error)
				continue
			}
			p.progress("topic %s: %d queries, %d failed, %d sources\n",
				t.Name, len(st.Queries), len(st.FailedQueries), len(st.Sources))
		}
		return nil
	}); err != nil {
		return err
	}

	if err := p.phase(ctx, state, PhaseMerge, func(context.Context) error {
		var reasons []string
		found := false
		for _, t := range plan.Topics {
			st := state.Topics[t.Name]
			switch {
			case st != nil && !st.IsEmpty():
				found = true
			case st != nil && st.Error != "":
				reasons = append(reasons, t.Name+": "+st.Error)
			}
		}
		if !found && len(reasons) > 0 {
			return fmt.Errorf("%w (%s)", ErrNoFindings, strings.Join(reasons, "; "))
		}
		if !found {
			return ErrNoFindings
		}
		state.Merged = Merge(plan, state.Topics)
		return nil
	}); err != nil {
		return err
	}

	if err := p.refineLoop(ctx, state); err != nil {
		return err
	}

	if err := p.phase(ctx, state, PhaseCompose, func(ctx context.Context) error {
		composer := &Composer{Generator: p.Generator, Logger: p.logger()}
		cited, err := composer.Compose(ctx, plan, p.composeInputs(state), state.Sources.List())
		if err != nil {
			return err
		}
		state.Cited = cited
		p.progress("compose: %d sections, %d sources cited\n", len(cited.Sections), len(cited.CitedIDs))
		return nil
	}); err != nil {
		return err
	}

	if err := p.phase(ctx, state, PhaseCiteRewrite, func(context.Context) error {
		res := citation.Rewrite(state.Cited.Text, state.Sources, p.logger())
		final := res.Final()
		if note := coverageNote(state); note != "" {
			final.Text += "\n\n" + note
		}
		state.Final = final
		if len(final.Dropped) > 0 {
			p.progress("warning: dropped %d unresolved citations: %s\n", len(final.Dropped), strings.Join(final.Dropped, ", "))
		}
		return nil
	}); err != nil {
		return err
	}

	state.enter(PhaseDone)
	p.checkpoint(ctx, state)
	p.progress("done: %d sources linked, %d refinement rounds\n", len(state.Final.Sources), state.Rounds)
	return nil
}

// passScoped renumbers a topic's sources with the pass registry's ids so
// the topic record and the report cite the same src-N.
func passScoped(st *types.ResearchState, reg *sources.Registry) {
	byID := make(map[string]types.Source, len(st.Sources))
	byURL := make(map[string]string, len(st.URLToShortID))
	for _, src := range st.Sources {
		id, ok := reg.Lookup(src.URL)
		if !ok {
			continue
		}
		src.ShortID = id
		byID[id] = src
		byURL[src.URL] = id
	}
	st.Sources = byID
	st.URLToShortID = byURL
}

// refineLoop evaluates the merged findings and refines them until a
// verdict carries no follow-ups or the round limit is reached.
func (p *Pipeline) refineLoop(ctx context.Context, state *PassState) error {
	rounds := p.Config.MaxRefinementRounds
	if rounds <= 0 {
		rounds = 1
	}
	evaluator := &Evaluator{
		Generator:    p.Generator,
		MaxFollowUps: p.Config.MaxFollowUps,
		MaxRetries:   p.MaxRetries,
		Logger:       p.logger(),
	}
	refiner := &Refiner{Provider: p.followUpProvider(state.Plan), Search: p.Search, Logger: p.logger()}

	for round := 0; round < rounds; round++ {
		var verdict types.EvaluationVerdict
		if err := p.phase(ctx, state, PhaseEvaluate, func(ctx context.Context) error {
			v, err := evaluator.Evaluate(ctx, state.Merged, state.Plan)
			if err != nil {
				return err
			}
			verdict = v
			state.Verdicts = append(state.Verdicts, v)
			p.progress("evaluate: %s, %d follow-ups\n", v.Grade, len(v.FollowUpQueries))
			return nil
		}); err != nil {
			return err
		}
		if !verdict.NeedsRefinement() {
			return nil
		}

		var res RefineResult
		if err := p.phase(ctx, state, PhaseRefine, func(ctx context.Context) error {
			res = refiner.Refine(ctx, verdict, state.Merged, state.Sources)
			state.Rounds++
			state.FollowUps = append(state.FollowUps, verdict.FollowUpQueries...)
			state.Coverage.Add(res.Coverage)
			if res.Findings != "" {
				state.Findings = append(state.Findings, res.Findings)
			}
			p.progress("refine: round %d, %d queries, %d failed\n", state.Rounds, len(verdict.FollowUpQueries), len(res.Failed))
			return nil
		}); err != nil {
			return err
		}

		if err := p.phase(ctx, state, PhaseReMerge, func(context.Context) error {
			state.Merged = res.Synthesis
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// phase runs fn as one named pipeline phase with tracing, metrics and a
// checkpoint on success.
func (p *Pipeline) phase(ctx context.Context, state *PassState, ph Phase, fn func(context.Context) error) error {
	state.enter(ph)
	ctx, span := p.startPhaseSpan(ctx, ph)
	start := time.Now()

	err := fn(ctx)

	metrics.RecordPhase(string(ph), time.Since(start).Seconds())
	endSpan(span, err)
	if err != nil {
		return &StageError{Phase: ph, Err: err}
	}
	p.checkpoint(ctx, state)
	return nil
}

func (p *Pipeline) stages(plan types.Plan) []*Stage {
	stages := make([]*Stage, 0, len(plan.Topics))
	for _, t := range plan.Topics {
		stages = append(stages, &Stage{
			Topic:      t,
			Brief:      plan.Brief,
			Generator:  p.Generator,
			Provider:   p.Providers[t.Provider],
			Search:     p.Search,
			MaxRetries: p.MaxRetries,
			Logger:     p.logger(),
		})
	}
	return stages
}

// followUpProvider returns the web provider, falling back to the first
// topic's provider.
func (p *Pipeline) followUpProvider(plan types.Plan) search.Provider {
	if prov := p.Providers[types.ProviderWeb]; prov != nil {
		return prov
	}
	return p.Providers[plan.Topics[0].Provider]
}

func (p *Pipeline) composeInputs(state *PassState) []ComposeInput {
	inputs := make([]ComposeInput, 0, len(state.Plan.Topics)+1)
	for _, t := range state.Plan.Topics {
		text := "_No findings._"
		if st := state.Topics[t.Name]; st != nil && !st.IsEmpty() {
			text = st.Synthesis
		}
		inputs = append(inputs, ComposeInput{Title: t.Title, Text: text})
	}
	if len(state.Findings) > 0 {
		inputs = append(inputs, ComposeInput{Title: FollowUpSection, Text: strings.Join(state.Findings, "\n\n")})
	}
	return inputs
}

func (p *Pipeline) checkpoint(ctx context.Context, state *PassState) {
	if p.Checkpointer == nil {
		return
	}
	if err := p.Checkpointer.Checkpoint(ctx, state); err != nil {
		p.logger().Warn("checkpoint failed", zap.String("pass", state.ID), zap.String("phase", string(state.Phase)), zap.Error(err))
	}
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) progress(format string, args ...any) {
	if p.Progress == nil {
		return
	}
	fmt.Fprintf(p.Progress, format, args...)
}

// coverageNote describes searches and topics that contributed nothing, or
// returns "" when coverage is complete.
func coverageNote(state *PassState) string {
	var parts []string
	if c := state.Coverage; c.Degraded() {
		parts = append(parts, fmt.Sprintf("%d of %d searches returned no results", c.Failed(), c.Total))
	}
	empty := 0
	for _, t := range state.Plan.Topics {
		if st := state.Topics[t.Name]; st == nil || st.IsEmpty() {
			empty++
		}
	}
	if empty > 0 {
		parts = append(parts, fmt.Sprintf("%d of %d topics produced no findings", empty, len(state.Plan.Topics)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "_Coverage note: " + strings.Join(parts, "; ") + "; findings may be incomplete._"
}
