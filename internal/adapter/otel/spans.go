package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "counsel"

// StartEvaluationSpan starts a span for one escalation evaluation.
func StartEvaluationSpan(ctx context.Context, decisionType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "evaluation",
		trace.WithAttributes(
			attribute.String("decision.type", decisionType),
		),
	)
}

// StartSessionSpan starts a span for a consensus session.
func StartSessionSpan(ctx context.Context, sessionID, mechanism string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "consensus_session",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.mechanism", mechanism),
		),
	)
}

// StartPhaseSpan starts a span for one phase within a consensus session.
func StartPhaseSpan(ctx context.Context, sessionID, phase string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "consensus_phase",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.phase", phase),
		),
	)
}
