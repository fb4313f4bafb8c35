// Package experts provides the evaluator implementations behind the expert
// personas: a deterministic rule-based evaluator, a model-backed evaluator
// going through the LiteLLM proxy, and a human-in-the-loop relay.
package experts

import (
	"context"
	"fmt"
	"time"

	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// RuleBased derives expert input from the declared context fields alone.
// Given the same context it always produces the same response, which makes
// it the default evaluator for tests and air-gapped deployments.
type RuleBased struct {
	expertType expert.Type
}

// NewRuleBased creates a rule-based evaluator for the given expert persona.
func NewRuleBased(t expert.Type) *RuleBased {
	return &RuleBased{expertType: t}
}

// Type returns the expert persona this evaluator speaks for.
func (e *RuleBased) Type() expert.Type {
	return e.expertType
}

// Respond derives a short-form response from the context's impact,
// complexity, and timeline declarations.
func (e *RuleBased) Respond(ctx context.Context, dc decision.Context) (expert.Response, error) {
	if err := ctx.Err(); err != nil {
		return expert.Response{}, err
	}

	dc = dc.Normalized()
	relevance := expert.DomainRelevance(e.expertType, dc.DomainFocus)
	exposure := riskExposure(dc)

	return expert.Response{
		ExpertID:       "rule-" + string(e.expertType),
		ExpertType:     e.expertType,
		Recommendation: recommend(exposure),
		Confidence:     ruleConfidence(relevance, exposure),
		Rationale: fmt.Sprintf("Derived from declared context: exposure %.2f, domain relevance %.2f",
			exposure, relevance),
		FocusAreas: focusAreas(e.expertType),
		ProducedAt: time.Now().UTC(),
	}, nil
}

// Perspective derives a long-form perspective for consensus sessions.
func (e *RuleBased) Perspective(ctx context.Context, dc decision.Context) (expert.Perspective, error) {
	if err := ctx.Err(); err != nil {
		return expert.Perspective{}, err
	}

	dc = dc.Normalized()
	relevance := expert.DomainRelevance(e.expertType, dc.DomainFocus)
	exposure := riskExposure(dc)

	considerations := []string{
		fmt.Sprintf("%s technical complexity", dc.TechnicalComplexity),
		fmt.Sprintf("%d stakeholder group(s) affected", len(dc.Stakeholders)),
	}
	if len(dc.Dependencies) > 0 {
		considerations = append(considerations,
			fmt.Sprintf("%d external dependencies", len(dc.Dependencies)))
	}

	var riskNotes, concerns []string
	if dc.Regulatory {
		riskNotes = append(riskNotes, "regulatory requirements apply")
		concerns = append(concerns, "compliance")
	}
	if dc.Timeline == decision.UrgencyUrgent || dc.Timeline == decision.UrgencyTight {
		riskNotes = append(riskNotes, "compressed timeline")
		concerns = append(concerns, "delivery_risk")
	}
	if len(dc.Dependencies) > 2 {
		concerns = append(concerns, "integration")
	}

	return expert.Perspective{
		ExpertID:          "rule-" + string(e.expertType),
		ExpertType:        e.expertType,
		Recommendation:    recommend(exposure),
		Confidence:        ruleConfidence(relevance, exposure),
		KeyConsiderations: considerations,
		RiskNotes:         riskNotes,
		Concerns:          concerns,
	}, nil
}

// riskExposure condenses the declared context into one [0,1] exposure score:
// the worst declared impact, the technical complexity, and the timeline risk,
// averaged, with a regulatory surcharge.
func riskExposure(dc decision.Context) float64 {
	impact := dc.BusinessImpact.Score()
	if s := dc.FinancialImpact.Score(); s > impact {
		impact = s
	}
	if s := dc.CustomerImpact.Score(); s > impact {
		impact = s
	}

	exposure := (impact + dc.TechnicalComplexity.Score() + dc.Timeline.RiskScore()) / 3
	if dc.Regulatory {
		exposure += 0.1
	}
	if exposure > 1 {
		exposure = 1
	}
	return exposure
}

func recommend(exposure float64) string {
	switch {
	case exposure >= 0.75:
		return "escalate_for_review"
	case exposure >= 0.55:
		return "proceed_with_mitigations"
	default:
		return "proceed"
	}
}

// ruleConfidence rises with domain relevance and falls with exposure.
func ruleConfidence(relevance, exposure float64) float64 {
	c := 0.4 + 0.45*relevance - 0.2*exposure
	if c < 0.1 {
		return 0.1
	}
	if c > 0.95 {
		return 0.95
	}
	return c
}

// focusAreas tags the response so scoring can identify technically focused
// experts.
func focusAreas(t expert.Type) []string {
	switch t {
	case expert.DomainGuru, expert.SystemArchitect:
		return []string{"technical"}
	case expert.SecuritySpecialist:
		return []string{"technical", "compliance"}
	case expert.BusinessAnalyst:
		return []string{"business"}
	case expert.SeniorPartner:
		return []string{"strategy"}
	default:
		return nil
	}
}
