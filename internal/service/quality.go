package service

import (
	"github.com/quorumlabs/counsel/internal/domain/escalation"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// levelScores maps a reported consensus level to its base quality score.
// Unknown levels score the same as no consensus.
var levelScores = map[escalation.ConsensusLevel]float64{
	escalation.ConsensusStrong:      0.9,
	escalation.ConsensusModerate:    0.7,
	escalation.ConsensusNone:        0.4,
	escalation.ConsensusConflicting: 0.2,
}

// ConsensusQualityEvaluator scores how much agreement a set of expert inputs
// carries, either from a prior consensus summary or from raw responses.
type ConsensusQualityEvaluator struct{}

// NewConsensusQualityEvaluator returns an evaluator. It is stateless.
func NewConsensusQualityEvaluator() *ConsensusQualityEvaluator {
	return &ConsensusQualityEvaluator{}
}

// FromSummary scores quality from an upstream consensus summary. A reported
// improvement adds a bonus of at most 0.2, and the result never exceeds 1.
func (e *ConsensusQualityEvaluator) FromSummary(s escalation.ConsensusSummary) escalation.ConsensusQuality {
	score, ok := levelScores[s.Level]
	if !ok {
		score = levelScores[escalation.ConsensusNone]
	}
	if s.Improvement > 0 {
		score = min(1.0, score+min(0.2, s.Improvement*0.5))
	}
	return escalation.ConsensusQuality{
		Score:       score,
		Level:       s.Level,
		Improvement: s.Improvement,
	}
}

// FromResponses derives quality from recommendation spread when no consensus
// process has run yet. No responses means no measurable consensus.
func (e *ConsensusQualityEvaluator) FromResponses(responses []expert.Response) escalation.ConsensusQuality {
	if len(responses) == 0 {
		return escalation.ConsensusQuality{Level: escalation.ConsensusNone}
	}

	unique := map[string]struct{}{}
	for _, r := range responses {
		unique[r.Recommendation] = struct{}{}
	}

	switch {
	case len(unique) == 1:
		return escalation.ConsensusQuality{Score: 0.9, Level: escalation.ConsensusStrong}
	case len(unique) <= len(responses)/2:
		return escalation.ConsensusQuality{Score: 0.7, Level: escalation.ConsensusModerate}
	default:
		return escalation.ConsensusQuality{Score: 0.3, Level: escalation.ConsensusWeak}
	}
}
