// Package evaluator defines the port for expert evaluators: anything that
// can produce an expert response or perspective for a decision, whether a
// model-backed persona, a rule engine, or a human relay.
package evaluator

import (
	"context"

	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// Evaluator produces expert input for a decision context. Implementations
// must honor ctx cancellation and deadlines; slow evaluators are cut off by
// the caller's per-expert timeout.
type Evaluator interface {
	// Type identifies the expert persona this evaluator speaks for.
	Type() expert.Type

	// Respond produces the short-form response used by escalation scoring.
	Respond(ctx context.Context, dc decision.Context) (expert.Response, error)

	// Perspective produces the long-form perspective used by consensus
	// sessions.
	Perspective(ctx context.Context, dc decision.Context) (expert.Perspective, error)
}
