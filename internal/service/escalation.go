package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	counselotel "github.com/quorumlabs/counsel/internal/adapter/otel"
	"github.com/quorumlabs/counsel/internal/adapter/ws"
	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain"
	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/escalation"
	"github.com/quorumlabs/counsel/internal/domain/expert"
	"github.com/quorumlabs/counsel/internal/port/broadcast"
	"github.com/quorumlabs/counsel/internal/port/database"
	"github.com/quorumlabs/counsel/internal/port/evaluator"
	"github.com/quorumlabs/counsel/internal/port/messagequeue"
)

// EvaluationRequest is one decision submitted for escalation scoring.
// Responses may be empty; Consensus is optional prior-round state.
type EvaluationRequest struct {
	Context   decision.Context             `json:"context"`
	Responses []expert.Response            `json:"responses,omitempty"`
	Consensus *escalation.ConsensusSummary `json:"consensus,omitempty"`
}

// EscalationService runs the scoring pipeline over a decision, persists the
// outcome to the append-only history, and announces it on the queue and the
// websocket hub.
type EscalationService struct {
	cfg         config.Engine
	complexity  *ComplexityScorer
	risk        *RiskAssessor
	confidence  *ConfidenceAggregator
	quality     *ConsensusQualityEvaluator
	composite   *CompositeScorer
	tiers       *TierDecisionEngine
	store       database.EscalationStore
	queue       messagequeue.Queue
	broadcaster broadcast.Broadcaster
	metrics     *counselotel.Metrics
}

// NewEscalationService creates a new EscalationService. Queue, broadcaster,
// and metrics may be nil; persistence is required.
func NewEscalationService(
	cfg config.Engine,
	store database.EscalationStore,
	queue messagequeue.Queue,
	broadcaster broadcast.Broadcaster,
	metrics *counselotel.Metrics,
) *EscalationService {
	return &EscalationService{
		cfg:         cfg,
		complexity:  NewComplexityScorer(cfg),
		risk:        NewRiskAssessor(cfg),
		confidence:  NewConfidenceAggregator(cfg),
		quality:     NewConsensusQualityEvaluator(),
		composite:   NewCompositeScorer(cfg),
		tiers:       NewTierDecisionEngine(cfg),
		store:       store,
		queue:       queue,
		broadcaster: broadcaster,
		metrics:     metrics,
	}
}

// Evaluate runs the full pipeline: confidence, complexity, risk, consensus
// quality, composite score, tier decision. The scoring itself is
// deterministic; only the record ID and timestamp differ between runs with
// identical input. A cancelled context yields domain.ErrInconclusive and no
// record, never a partial result.
func (s *EscalationService) Evaluate(ctx context.Context, req EvaluationRequest) (*escalation.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.inconclusive(req.Context, err)
	}

	ctx, span := counselotel.StartEvaluationSpan(ctx, req.Context.Type)
	defer span.End()

	dc := req.Context.Normalized()

	responses := make([]expert.Response, len(req.Responses))
	for i, r := range req.Responses {
		responses[i] = r.Clamped()
	}

	confidence := s.confidence.Aggregate(responses)
	complexity := s.complexity.Assess(dc)
	risk := s.risk.Assess(dc, responses)

	var quality escalation.ConsensusQuality
	if req.Consensus != nil {
		quality = s.quality.FromSummary(*req.Consensus)
	} else {
		quality = s.quality.FromResponses(responses)
	}

	composite := s.composite.Score(confidence, complexity, risk, quality)
	dec := s.tiers.Decide(composite, complexity, risk, dc)

	if err := ctx.Err(); err != nil {
		return nil, s.inconclusive(dc, err)
	}

	rec := escalation.Record{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Context:    dc,
		Responses:  responses,
		Confidence: confidence,
		Complexity: complexity,
		Risk:       risk,
		Quality:    quality,
		Composite:  composite,
		Decision:   dec,
	}

	if err := s.store.AppendEscalation(ctx, rec); err != nil {
		return nil, err
	}

	s.announce(ctx, &rec)
	return &rec, nil
}

// EvaluateWithExperts gathers responses from the evaluators concurrently,
// then runs Evaluate. Each evaluator gets its own timeout; one that misses it
// is replaced by a neutral fallback response and logged, not propagated.
// Cancellation of ctx aborts the whole evaluation with
// domain.ErrInconclusive.
func (s *EscalationService) EvaluateWithExperts(
	ctx context.Context,
	dc decision.Context,
	evaluators []evaluator.Evaluator,
	consensus *escalation.ConsensusSummary,
) (*escalation.Record, error) {
	responses := make([]expert.Response, len(evaluators))

	g, gctx := errgroup.WithContext(ctx)
	for i, ev := range evaluators {
		i, ev := i, ev
		g.Go(func() error {
			ectx, cancel := context.WithTimeout(gctx, s.cfg.ExpertTimeout)
			defer cancel()

			resp, err := ev.Respond(ectx, dc)
			if err == nil {
				responses[i] = resp.Clamped()
				return nil
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}

			slog.Warn("expert evaluator failed, using fallback response",
				"expert_type", ev.Type(), "error", err)
			if s.metrics != nil {
				s.metrics.ExpertTimeouts.Add(gctx, 1, metric.WithAttributes(
					attribute.String("expert.type", string(ev.Type())),
				))
			}
			responses[i] = fallbackResponse(ev.Type())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, s.inconclusive(dc, err)
	}

	return s.Evaluate(ctx, EvaluationRequest{
		Context:   dc,
		Responses: responses,
		Consensus: consensus,
	})
}

// Get returns one history record by ID.
func (s *EscalationService) Get(ctx context.Context, id string) (*escalation.Record, error) {
	return s.store.GetEscalation(ctx, id)
}

// History returns the most recent records, newest first. A non-positive or
// oversized limit falls back to the configured history window.
func (s *EscalationService) History(ctx context.Context, limit int) ([]escalation.Record, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.store.ListEscalations(ctx, limit)
}

// fallbackResponse stands in for an expert that timed out or errored. It is
// neutral: confidence 0.5 neither promotes nor suppresses escalation on its
// own.
func fallbackResponse(t expert.Type) expert.Response {
	return expert.Response{
		ExpertID:       "fallback-" + string(t),
		ExpertType:     t,
		Recommendation: "No recommendation available",
		Confidence:     0.5,
		Rationale:      "expert evaluator unavailable before deadline",
		ProducedAt:     time.Now().UTC(),
	}
}

func (s *EscalationService) inconclusive(dc decision.Context, cause error) error {
	slog.Info("evaluation inconclusive", "decision_type", dc.Type, "cause", cause)

	if s.metrics != nil {
		s.metrics.EvaluationsInconclusive.Add(context.WithoutCancel(context.Background()), 1)
	}
	if s.queue != nil {
		payload := messagequeue.DecisionInconclusivePayload{
			DecisionType: dc.Type,
			Reason:       cause.Error(),
		}
		s.publish(context.WithoutCancel(context.Background()), messagequeue.SubjectDecisionInconclusive, payload)
	}
	return errors.Join(domain.ErrInconclusive, cause)
}

// announce publishes and broadcasts a completed evaluation. Failures are
// logged; the record is already durable.
func (s *EscalationService) announce(ctx context.Context, rec *escalation.Record) {
	if s.metrics != nil {
		s.metrics.EscalationsEvaluated.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tier", string(rec.Decision.Tier)),
		))
		s.metrics.EscalationScore.Record(ctx, rec.Composite.Value)
	}

	if s.queue != nil {
		drivers := make([]string, len(rec.Composite.PrimaryDrivers))
		for i, d := range rec.Composite.PrimaryDrivers {
			drivers[i] = string(d)
		}
		s.publish(ctx, messagequeue.SubjectDecisionEvaluated, messagequeue.DecisionEvaluatedPayload{
			EscalationID:   rec.ID,
			DecisionType:   rec.Context.Type,
			Tier:           string(rec.Decision.Tier),
			Priority:       string(rec.Decision.Priority),
			CompositeScore: rec.Composite.Value,
			RiskLevel:      string(rec.Risk.Level),
			PrimaryDrivers: drivers,
		})
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(ctx, ws.EventEscalationEvaluated, rec)
	}
}

func (s *EscalationService) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish to queue", "subject", subject, "error", err)
	}
}
