package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quorumlabs/counsel/internal/domain/consensus"
	"github.com/quorumlabs/counsel/internal/domain/escalation"
	"github.com/quorumlabs/counsel/internal/port/cache"
	"github.com/quorumlabs/counsel/internal/port/database"
	"github.com/quorumlabs/counsel/internal/port/messagequeue"
)

const (
	analyticsWindow = 500

	escalationAnalyticsKey = "analytics:escalations"
	consensusAnalyticsKey  = "analytics:consensus"
)

// EscalationAnalytics summarizes the recent escalation history.
type EscalationAnalytics struct {
	TotalEscalations  int                        `json:"total_escalations"`
	EscalationRate    float64                    `json:"escalation_rate"`
	TierDistribution  map[escalation.Tier]int    `json:"tier_distribution"`
	AverageComposite  float64                    `json:"average_composite"`
	AverageComplexity float64                    `json:"average_complexity"`
	AverageRisk       float64                    `json:"average_risk"`
	ByDecisionType    map[string]DecisionPattern `json:"by_decision_type"`
}

// DecisionPattern is the per-decision-type escalation breakdown.
type DecisionPattern struct {
	Total             int                     `json:"total"`
	TierDistribution  map[escalation.Tier]int `json:"tier_distribution"`
	AverageComplexity float64                 `json:"average_complexity"`
	AverageRisk       float64                 `json:"average_risk"`
}

// ConsensusAnalytics summarizes recent consensus sessions.
type ConsensusAnalytics struct {
	TotalSessions          int                             `json:"total_sessions"`
	MechanismEffectiveness map[consensus.Mechanism]float64 `json:"mechanism_effectiveness"`
	AverageQuality         float64                         `json:"average_quality"`
	ResolutionSuccessRate  float64                         `json:"resolution_success_rate"`
	ByDecisionType         map[string]ConsensusPattern     `json:"by_decision_type"`
}

// ConsensusPattern is the per-decision-type consensus breakdown. A session
// counts as a success when its final strength clears 0.7.
type ConsensusPattern struct {
	Total          int                         `json:"total"`
	MechanismUsage map[consensus.Mechanism]int `json:"mechanism_usage"`
	SuccessRate    float64                     `json:"success_rate"`
}

// AnalyticsService aggregates history into operator-facing summaries,
// cached briefly since every read walks the recent window.
type AnalyticsService struct {
	store database.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewAnalyticsService creates a new AnalyticsService. Cache may be nil, in
// which case every call recomputes.
func NewAnalyticsService(store database.Store, c cache.Cache, ttl time.Duration) *AnalyticsService {
	return &AnalyticsService{store: store, cache: c, ttl: ttl}
}

// Escalations returns the escalation analytics over the recent window.
func (s *AnalyticsService) Escalations(ctx context.Context) (*EscalationAnalytics, error) {
	var cached EscalationAnalytics
	if s.fromCache(ctx, escalationAnalyticsKey, &cached) {
		return &cached, nil
	}

	records, err := s.store.ListEscalations(ctx, analyticsWindow)
	if err != nil {
		return nil, err
	}

	result := &EscalationAnalytics{
		TotalEscalations: len(records),
		TierDistribution: map[escalation.Tier]int{},
		ByDecisionType:   map[string]DecisionPattern{},
	}

	escalated := 0
	for _, rec := range records {
		result.TierDistribution[rec.Decision.Tier]++
		if rec.Decision.Escalated() {
			escalated++
		}
		result.AverageComposite += rec.Composite.Value
		result.AverageComplexity += rec.Complexity.Score
		result.AverageRisk += rec.Risk.Overall

		key := rec.Context.Type
		pattern := result.ByDecisionType[key]
		if pattern.TierDistribution == nil {
			pattern.TierDistribution = map[escalation.Tier]int{}
		}
		pattern.Total++
		pattern.TierDistribution[rec.Decision.Tier]++
		pattern.AverageComplexity += rec.Complexity.Score
		pattern.AverageRisk += rec.Risk.Overall
		result.ByDecisionType[key] = pattern
	}

	if n := len(records); n > 0 {
		result.EscalationRate = float64(escalated) / float64(n)
		result.AverageComposite /= float64(n)
		result.AverageComplexity /= float64(n)
		result.AverageRisk /= float64(n)
	}
	for key, pattern := range result.ByDecisionType {
		pattern.AverageComplexity /= float64(pattern.Total)
		pattern.AverageRisk /= float64(pattern.Total)
		result.ByDecisionType[key] = pattern
	}

	s.toCache(ctx, escalationAnalyticsKey, result)
	return result, nil
}

// Consensus returns the consensus analytics over the recent window. Only
// completed sessions contribute.
func (s *AnalyticsService) Consensus(ctx context.Context) (*ConsensusAnalytics, error) {
	var cached ConsensusAnalytics
	if s.fromCache(ctx, consensusAnalyticsKey, &cached) {
		return &cached, nil
	}

	sessions, err := s.store.ListSessions(ctx, analyticsWindow)
	if err != nil {
		return nil, err
	}

	result := &ConsensusAnalytics{
		MechanismEffectiveness: map[consensus.Mechanism]float64{},
		ByDecisionType:         map[string]ConsensusPattern{},
	}

	mechanismCounts := map[consensus.Mechanism]int{}
	typeSuccesses := map[string]int{}
	conflictFree := 0

	for i := range sessions {
		sess := &sessions[i]
		if !sess.Completed() {
			continue
		}
		result.TotalSessions++

		result.MechanismEffectiveness[sess.Mechanism] += sess.Analysis.Strength
		mechanismCounts[sess.Mechanism]++
		if sess.Quality != nil {
			result.AverageQuality += sess.Quality.Overall
		}
		if len(sess.Analysis.ConflictingPairs) == 0 {
			conflictFree++
		}

		key := sess.Context.Type
		pattern := result.ByDecisionType[key]
		if pattern.MechanismUsage == nil {
			pattern.MechanismUsage = map[consensus.Mechanism]int{}
		}
		pattern.Total++
		pattern.MechanismUsage[sess.Mechanism]++
		if sess.Analysis.Strength > 0.7 {
			typeSuccesses[key]++
		}
		result.ByDecisionType[key] = pattern
	}

	for m, total := range result.MechanismEffectiveness {
		result.MechanismEffectiveness[m] = total / float64(mechanismCounts[m])
	}
	if result.TotalSessions > 0 {
		result.AverageQuality /= float64(result.TotalSessions)
		result.ResolutionSuccessRate = float64(conflictFree) / float64(result.TotalSessions)
	}
	for key, pattern := range result.ByDecisionType {
		pattern.SuccessRate = float64(typeSuccesses[key]) / float64(pattern.Total)
		result.ByDecisionType[key] = pattern
	}

	s.toCache(ctx, consensusAnalyticsKey, result)
	return result, nil
}

// StartInvalidator subscribes to the append announcements and drops the
// matching cached aggregate, so the next read recomputes immediately
// instead of waiting out the TTL. The returned func cancels both
// subscriptions.
func (s *AnalyticsService) StartInvalidator(ctx context.Context, queue messagequeue.Queue) (func(), error) {
	if s.cache == nil || queue == nil {
		return func() {}, nil
	}

	cancelEscalations, err := queue.Subscribe(ctx, messagequeue.SubjectDecisionEvaluated,
		func(ctx context.Context, _ string, _ []byte) error {
			return s.cache.Delete(ctx, escalationAnalyticsKey)
		})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectDecisionEvaluated, err)
	}

	cancelSessions, err := queue.Subscribe(ctx, messagequeue.SubjectConsensusCompleted,
		func(ctx context.Context, _ string, _ []byte) error {
			return s.cache.Delete(ctx, consensusAnalyticsKey)
		})
	if err != nil {
		cancelEscalations()
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectConsensusCompleted, err)
	}

	return func() {
		cancelEscalations()
		cancelSessions()
	}, nil
}

func (s *AnalyticsService) fromCache(ctx context.Context, key string, target any) bool {
	if s.cache == nil {
		return false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(data, target) == nil
}

func (s *AnalyticsService) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		slog.Debug("cache analytics", "key", key, "error", err)
	}
}
