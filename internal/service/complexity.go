package service

import (
	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/escalation"
)

// factorOrder fixes the reporting order of complexity factors so assessments
// are deterministic.
var factorOrder = []escalation.Factor{
	escalation.FactorTechnical,
	escalation.FactorStakeholder,
	escalation.FactorBusiness,
	escalation.FactorTimeline,
	escalation.FactorIntegration,
	escalation.FactorRegulatory,
}

// ComplexityScorer produces the six-factor weighted complexity assessment
// for a decision context.
type ComplexityScorer struct {
	weights   config.ComplexityWeights
	dominance float64
}

// NewComplexityScorer builds a scorer from validated engine configuration.
func NewComplexityScorer(cfg config.Engine) *ComplexityScorer {
	return &ComplexityScorer{
		weights:   cfg.ComplexityWeights,
		dominance: cfg.DriverThreshold,
	}
}

// Assess scores each factor on [0,1], combines them with the configured
// weights, and buckets the result. Missing context fields score as medium;
// there are no failure modes.
func (s *ComplexityScorer) Assess(dc decision.Context) escalation.ComplexityAssessment {
	dc = dc.Normalized()

	regulatory := 0.1
	if dc.Regulatory {
		regulatory = 0.8
	}

	factors := map[escalation.Factor]float64{
		escalation.FactorTechnical:   dc.TechnicalComplexity.Score(),
		escalation.FactorStakeholder: min(1.0, float64(len(dc.Stakeholders))*0.2),
		escalation.FactorBusiness:    dc.BusinessImpact.Score(),
		escalation.FactorTimeline:    dc.Timeline.PressureScore(),
		escalation.FactorIntegration: min(1.0, float64(len(dc.Dependencies))*0.15),
		escalation.FactorRegulatory:  regulatory,
	}

	score := factors[escalation.FactorTechnical]*s.weights.Technical +
		factors[escalation.FactorStakeholder]*s.weights.Stakeholder +
		factors[escalation.FactorBusiness]*s.weights.BusinessImpact +
		factors[escalation.FactorTimeline]*s.weights.Timeline +
		factors[escalation.FactorIntegration]*s.weights.Integration +
		factors[escalation.FactorRegulatory]*s.weights.Regulatory

	level := escalation.LevelHigh
	switch {
	case score < 0.3:
		level = escalation.LevelLow
	case score < 0.6:
		level = escalation.LevelMedium
	}

	var dominant []escalation.Factor
	for _, f := range factorOrder {
		if factors[f] > s.dominance {
			dominant = append(dominant, f)
		}
	}

	return escalation.ComplexityAssessment{
		Factors:         factors,
		Score:           score,
		Level:           level,
		DominantFactors: dominant,
	}
}
