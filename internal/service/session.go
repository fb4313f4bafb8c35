package service

import (
	"context"
	"encoding/json"
	"fmt"
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
	"github.com/quorumlabs/counsel/internal/domain/consensus"
	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
	"github.com/quorumlabs/counsel/internal/port/broadcast"
	"github.com/quorumlabs/counsel/internal/port/database"
	"github.com/quorumlabs/counsel/internal/port/evaluator"
	"github.com/quorumlabs/counsel/internal/port/messagequeue"
)

// SessionRequest opens a consensus session. Mechanism and Candidates are
// optional; when empty, the mechanism is selected from the context and the
// panel is derived from the decision's domain focus.
type SessionRequest struct {
	Context    decision.Context    `json:"context"`
	Mechanism  consensus.Mechanism `json:"mechanism,omitempty"`
	Candidates []expert.Type       `json:"candidates,omitempty"`
}

// SessionOrchestrator drives a consensus session through its six phases in
// order, persisting a snapshot after every phase. A session it has finished
// is never mutated again.
type SessionOrchestrator struct {
	cfg         config.Consensus
	builder     *ConsensusBuilder
	detector    *ConflictDetector
	resolver    *ConflictResolver
	store       database.SessionStore
	queue       messagequeue.Queue
	broadcaster broadcast.Broadcaster
	metrics     *counselotel.Metrics
}

// NewSessionOrchestrator creates a new SessionOrchestrator. Queue,
// broadcaster, and metrics may be nil; persistence is required.
func NewSessionOrchestrator(
	cfg config.Consensus,
	store database.SessionStore,
	queue messagequeue.Queue,
	broadcaster broadcast.Broadcaster,
	metrics *counselotel.Metrics,
) *SessionOrchestrator {
	return &SessionOrchestrator{
		cfg:         cfg,
		builder:     NewConsensusBuilder(cfg),
		detector:    NewConflictDetector(cfg),
		resolver:    NewConflictResolver(),
		store:       store,
		queue:       queue,
		broadcaster: broadcaster,
		metrics:     metrics,
	}
}

// Run executes every phase of a new session and returns it completed. A
// cancelled context aborts with domain.ErrInconclusive; the session snapshot
// keeps whatever phases had finished, without a final analysis.
func (o *SessionOrchestrator) Run(
	ctx context.Context,
	req SessionRequest,
	evaluators map[expert.Type]evaluator.Evaluator,
) (*consensus.Session, error) {
	dc := req.Context.Normalized()

	mechanism := req.Mechanism
	if !mechanism.Valid() {
		mechanism = o.builder.SelectMechanism(dc)
	}

	session := &consensus.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Context:   dc,
		Mechanism: mechanism,
	}

	ctx, span := counselotel.StartSessionSpan(ctx, session.ID, string(mechanism))
	defer span.End()

	if err := o.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	// Phase 1: expert selection.
	candidates := req.Candidates
	if len(candidates) == 0 {
		candidates = defaultCandidates(dc)
	}
	session.Participants = o.builder.SelectExperts(candidates, mechanism)
	if err := o.completePhase(ctx, session, consensus.PhaseResult{
		Phase: consensus.PhaseExpertSelection,
		Selection: &consensus.SelectionResult{
			Mechanism:    mechanism,
			Participants: session.Participants,
		},
	}); err != nil {
		return nil, err
	}

	// Phase 2: initial analysis.
	perspectives, err := o.gatherPerspectives(ctx, dc, session.Participants, evaluators)
	if err != nil {
		return nil, o.inconclusive(session, err)
	}
	session.Perspectives = perspectives
	indicators := o.builder.Indicators(perspectives)
	if err := o.completePhase(ctx, session, consensus.PhaseResult{
		Phase:      consensus.PhaseInitialAnalysis,
		Indicators: &indicators,
	}); err != nil {
		return nil, err
	}

	// Phase 3: perspective sharing.
	sharing := o.builder.Share(session.Perspectives)
	for i := range session.Perspectives {
		received := 0
		for _, in := range sharing.Insights {
			if in.To == session.Perspectives[i].ExpertType {
				received++
			}
		}
		session.Perspectives[i].CollaborationNotes = fmt.Sprintf("Insights from %d expert interactions", received)
	}
	if err := o.completePhase(ctx, session, consensus.PhaseResult{
		Phase:   consensus.PhasePerspectiveSharing,
		Sharing: &sharing,
	}); err != nil {
		return nil, err
	}

	// Phase 4: conflict identification.
	conflicts, agreements := o.detector.Detect(session.Perspectives)
	strategy := o.resolver.SelectStrategy(conflicts, dc)
	report := consensus.ConflictReport{
		Conflicts:       conflicts,
		AgreementAreas:  agreements,
		OverallSeverity: OverallSeverity(conflicts),
		Strategy:        strategy,
		Feasibility:     o.resolver.Feasibility(conflicts, o.builder.Params(mechanism)),
	}
	if err := o.completePhase(ctx, session, consensus.PhaseResult{
		Phase:     consensus.PhaseConflictIdentification,
		Conflicts: &report,
	}); err != nil {
		return nil, err
	}

	// Phase 5: consensus building.
	resolution := o.resolver.Resolve(conflicts, strategy)
	result := o.builder.Build(mechanism, session.Perspectives, dc, resolution)
	quality := o.builder.Quality(result, session.Perspectives, session.Participants, resolution)
	building := consensus.BuildResult{
		Resolution: resolution,
		Result:     result,
		Quality:    quality,
		Success:    quality.Overall > 0.7,
	}
	if err := o.completePhase(ctx, session, consensus.PhaseResult{
		Phase:    consensus.PhaseConsensusBuilding,
		Building: &building,
	}); err != nil {
		return nil, err
	}

	// Phase 6: final validation. The analysis freezes the session.
	analysis := finalAnalysis(mechanism, result, report)
	efficiency := o.builder.ProcessEfficiency(len(session.Phases), len(session.Participants), result.Strength)
	session.Analysis = &analysis
	session.Quality = &quality
	session.Efficiency = &efficiency
	session.CompletedAt = time.Now().UTC()
	if err := o.completePhase(ctx, session, consensus.PhaseResult{
		Phase: consensus.PhaseFinalValidation,
		Validation: &consensus.ValidationResult{
			Analysis:   analysis,
			Quality:    quality,
			Efficiency: efficiency,
		},
	}); err != nil {
		return nil, err
	}

	o.announce(ctx, session)
	return session, nil
}

// Get returns one session by ID.
func (o *SessionOrchestrator) Get(ctx context.Context, id string) (*consensus.Session, error) {
	return o.store.GetSession(ctx, id)
}

// List returns the most recent sessions, newest first.
func (o *SessionOrchestrator) List(ctx context.Context, limit int) ([]consensus.Session, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return o.store.ListSessions(ctx, limit)
}

// completePhase appends the phase result, persists the snapshot, and
// announces the phase. The context is checked first so a cancelled session
// never records further phases.
func (o *SessionOrchestrator) completePhase(ctx context.Context, s *consensus.Session, result consensus.PhaseResult) error {
	if err := ctx.Err(); err != nil {
		return o.inconclusive(s, err)
	}

	ctx, span := counselotel.StartPhaseSpan(ctx, s.ID, string(result.Phase))
	defer span.End()

	result.CompletedAt = time.Now().UTC()
	s.Phases = append(s.Phases, result)

	if err := o.store.SaveSession(ctx, s); err != nil {
		return err
	}

	if o.queue != nil {
		o.publish(ctx, messagequeue.SubjectConsensusPhase, messagequeue.ConsensusPhasePayload{
			SessionID: s.ID,
			Phase:     string(result.Phase),
		})
	}
	if o.broadcaster != nil {
		o.broadcaster.BroadcastEvent(ctx, ws.EventConsensusPhase, result)
	}
	return nil
}

// gatherPerspectives collects one perspective per participant concurrently.
// A participant whose evaluator is missing, errors, or misses its timeout is
// represented by a low-confidence fallback perspective. Cancellation of ctx
// aborts the whole gather.
func (o *SessionOrchestrator) gatherPerspectives(
	ctx context.Context,
	dc decision.Context,
	participants []expert.Type,
	evaluators map[expert.Type]evaluator.Evaluator,
) ([]expert.Perspective, error) {
	perspectives := make([]expert.Perspective, len(participants))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range participants {
		i, t := i, t
		g.Go(func() error {
			ev, ok := evaluators[t]
			if !ok {
				slog.Warn("no evaluator for participant, using fallback perspective", "expert_type", t)
				perspectives[i] = fallbackPerspective(t)
				return nil
			}

			ectx, cancel := context.WithTimeout(gctx, o.cfg.ExpertTimeout)
			defer cancel()

			p, err := ev.Perspective(ectx, dc)
			if err == nil {
				perspectives[i] = p.Clamped()
				return nil
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}

			slog.Warn("expert perspective failed, using fallback",
				"expert_type", t, "error", err)
			if o.metrics != nil {
				o.metrics.ExpertTimeouts.Add(gctx, 1, metric.WithAttributes(
					attribute.String("expert.type", string(t)),
				))
			}
			perspectives[i] = fallbackPerspective(t)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perspectives, nil
}

// fallbackPerspective stands in for an expert that produced no perspective
// in time. Its low confidence keeps it from carrying any mechanism.
func fallbackPerspective(t expert.Type) expert.Perspective {
	return expert.Perspective{
		ExpertID:       "fallback-" + string(t),
		ExpertType:     t,
		Recommendation: "No recommendation available",
		Confidence:     0.3,
		Concerns:       []string{"expert input unavailable"},
		Fallback:       true,
	}
}

// defaultCandidates derives a panel seed from the decision's domain focus.
func defaultCandidates(dc decision.Context) []expert.Type {
	var candidates []expert.Type
	for _, domainName := range dc.DomainFocus {
		if t, ok := expert.SpecialistFor(domainName); ok {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		candidates = []expert.Type{expert.DomainGuru}
	}
	return candidates
}

func finalAnalysis(mechanism consensus.Mechanism, result consensus.MechanismResult, report consensus.ConflictReport) consensus.Analysis {
	disagreements := make([]string, len(report.Conflicts))
	pairs := make([][2]expert.Type, len(report.Conflicts))
	for i, c := range report.Conflicts {
		disagreements[i] = fmt.Sprintf("%s vs %s", c.Experts[0], c.Experts[1])
		pairs[i] = c.Experts
	}

	return consensus.Analysis{
		Mechanism:         mechanism,
		Strength:          result.Strength,
		AgreementAreas:    report.AgreementAreas,
		DisagreementAreas: disagreements,
		ConflictingPairs:  pairs,
		Recommendation:    result.Recommendation,
		Confidence:        result.Confidence,
		Strategy:          report.Strategy,
	}
}

func (o *SessionOrchestrator) inconclusive(s *consensus.Session, cause error) error {
	slog.Info("consensus session inconclusive", "session_id", s.ID, "cause", cause)
	return fmt.Errorf("session %s: %w", s.ID, domain.ErrInconclusive)
}

func (o *SessionOrchestrator) announce(ctx context.Context, s *consensus.Session) {
	if o.metrics != nil {
		o.metrics.SessionsCompleted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("mechanism", string(s.Mechanism)),
		))
		o.metrics.SessionStrength.Record(ctx, s.Analysis.Strength)
	}

	if o.queue != nil {
		rating := ""
		if s.Quality != nil {
			rating = string(s.Quality.Rating)
		}
		success := false
		for _, p := range s.Phases {
			if p.Building != nil {
				success = p.Building.Result.Success
			}
		}
		o.publish(ctx, messagequeue.SubjectConsensusCompleted, messagequeue.ConsensusCompletedPayload{
			SessionID:      s.ID,
			Mechanism:      string(s.Mechanism),
			Success:        success,
			Strength:       s.Analysis.Strength,
			Recommendation: s.Analysis.Recommendation,
			QualityRating:  rating,
		})
	}

	if o.broadcaster != nil {
		o.broadcaster.BroadcastEvent(ctx, ws.EventConsensusCompleted, s)
	}
}

func (o *SessionOrchestrator) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := o.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish to queue", "subject", subject, "error", err)
	}
}
