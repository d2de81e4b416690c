// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/pdiddy/marketing-research/internal/research"

func (p *Pipeline) tracer() trace.Tracer {
	if p.Tracer != nil {
		return p.Tracer
	}
	return otel.Tracer(tracerName)
}

// startPassSpan starts the root span of a pass.
func (p *Pipeline) startPassSpan(ctx context.Context, state *PassState) (context.Context, trace.Span) {
	ctx, span := p.tracer().Start(ctx, "research.pass")
	span.SetAttributes(
		attribute.String("pass.id", state.ID),
		attribute.String("pass.plan", state.Plan.Name),
		attribute.Int("pass.topics", len(state.Plan.Topics)),
	)
	return ctx, span
}

// startPhaseSpan starts a span for one pipeline phase.
func (p *Pipeline) startPhaseSpan(ctx context.Context, phase Phase) (context.Context, trace.Span) {
	ctx, span := p.tracer().Start(ctx, "phase."+string(phase))
	span.SetAttributes(attribute.String("phase.name", string(phase)))
	return ctx, span
}

// endSpan records err, if any, and ends span.
func endSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
