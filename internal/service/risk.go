package service

import (
	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/escalation"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// technicalFocus is the response tag that marks an expert as technically
// focused for the disagreement adjustment.
const technicalFocus = "technical"

// RiskAssessor scores technical, implementation, and timeline risk for a
// decision.
type RiskAssessor struct {
	techVariance float64
}

// NewRiskAssessor builds an assessor from validated engine configuration.
func NewRiskAssessor(cfg config.Engine) *RiskAssessor {
	return &RiskAssessor{techVariance: cfg.TechnicalVariance}
}

// Assess returns the three-axis risk assessment. All axes are clamped to
// [0,1]; the overall score is their arithmetic mean.
func (a *RiskAssessor) Assess(dc decision.Context, responses []expert.Response) escalation.RiskAssessment {
	dc = dc.Normalized()

	technical := a.technicalRisk(dc, responses)
	implementation := a.implementationRisk(dc)
	timeline := dc.Timeline.RiskScore()

	overall := mean([]float64{technical, implementation, timeline})

	return escalation.RiskAssessment{
		Technical:          technical,
		Implementation:     implementation,
		Timeline:           timeline,
		Overall:            overall,
		Level:              escalation.RiskLevelFromScore(overall),
		MitigationRequired: overall > 0.6,
	}
}

func (a *RiskAssessor) technicalRisk(dc decision.Context, responses []expert.Response) float64 {
	risk := 0.3

	switch dc.TechnicalComplexity {
	case decision.ComplexityHigh:
		risk += 0.3
	case decision.ComplexityVeryHigh:
		risk += 0.5
	}

	// Disagreement between technically focused experts raises risk.
	var techConfidences []float64
	for _, r := range responses {
		if r.HasFocus(technicalFocus) {
			techConfidences = append(techConfidences, r.Clamped().Confidence)
		}
	}
	if len(techConfidences) >= 2 && variance(techConfidences) > a.techVariance {
		risk += 0.2
	}

	return clamp01(risk)
}

func (a *RiskAssessor) implementationRisk(dc decision.Context) float64 {
	risk := 0.2 + 0.1*float64(len(dc.Dependencies))
	if dc.Regulatory {
		risk += 0.3
	}
	return clamp01(risk)
}
