package service

import (
	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain/escalation"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// neutralConfidence is reported when no expert responses are available. The
// empty input is a degenerate case, not an error.
const neutralConfidence = 0.5

// ConfidenceAggregator combines expert confidences into one overall value
// with a disagreement penalty.
type ConfidenceAggregator struct {
	penalty           float64
	varianceThreshold float64
}

// NewConfidenceAggregator builds an aggregator from validated engine
// configuration.
func NewConfidenceAggregator(cfg config.Engine) *ConfidenceAggregator {
	return &ConfidenceAggregator{
		penalty:           cfg.DisagreementPenalty,
		varianceThreshold: cfg.DisagreementVariance,
	}
}

// Aggregate clamps each confidence to [0,1], averages them, and applies the
// disagreement penalty when two or more experts diverge beyond the variance
// threshold.
func (a *ConfidenceAggregator) Aggregate(responses []expert.Response) escalation.ConfidenceSummary {
	if len(responses) == 0 {
		return escalation.ConfidenceSummary{
			Overall:   neutralConfidence,
			Agreement: escalation.AgreementNoData,
		}
	}

	confidences := make([]float64, len(responses))
	for i, r := range responses {
		confidences[i] = r.Clamped().Confidence
	}

	overall := mean(confidences)
	v := variance(confidences)

	agreement := escalation.AgreementLow
	switch {
	case v < 0.05:
		agreement = escalation.AgreementStrong
	case v < 0.15:
		agreement = escalation.AgreementModerate
	}

	if len(confidences) >= 2 && v > a.varianceThreshold {
		overall *= a.penalty
	}

	return escalation.ConfidenceSummary{
		Overall:    overall,
		Variance:   v,
		Agreement:  agreement,
		Individual: confidences,
	}
}
