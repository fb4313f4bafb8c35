package service

import (
	"fmt"
	"strings"

	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/escalation"
)

// TierDecisionEngine turns the composite score and its supporting
// assessments into the final escalation decision.
type TierDecisionEngine struct {
	tiers config.TierThresholds
}

// NewTierDecisionEngine builds an engine from validated engine configuration.
func NewTierDecisionEngine(cfg config.Engine) *TierDecisionEngine {
	return &TierDecisionEngine{tiers: cfg.Tiers}
}

// Decide maps the composite score to a tier, applies risk-driven promotions,
// and assembles the expertise, time estimate, actions, and rationale.
// Promotions only ever move a decision toward more human involvement.
func (e *TierDecisionEngine) Decide(
	score escalation.CompositeScore,
	complexity escalation.ComplexityAssessment,
	risk escalation.RiskAssessment,
	dc decision.Context,
) escalation.Decision {
	dc = dc.Normalized()

	tier := escalation.TierSeniorPartner
	priority := escalation.PriorityHigh
	switch {
	case score.Value < e.tiers.JuniorCut:
		tier = escalation.TierAgentOnly
		priority = escalation.PriorityLow
	case score.Value < e.tiers.SeniorCut:
		tier = escalation.TierJuniorSpecialist
		priority = escalation.PriorityMedium
	}

	// Promotions chain: critical risk walks an agent-only decision all the
	// way up to the senior partner.
	if risk.Level.Elevated() && tier == escalation.TierAgentOnly {
		tier = escalation.TierJuniorSpecialist
		priority = escalation.PriorityMedium
	}
	if risk.Level == escalation.RiskCritical && tier == escalation.TierJuniorSpecialist {
		tier = escalation.TierSeniorPartner
		priority = escalation.PriorityHigh
	}

	escalated := complexity.Level == escalation.LevelHigh || risk.Level.Elevated()

	return escalation.Decision{
		Tier:               tier,
		Priority:           priority,
		RequiredExpertise:  e.requiredExpertise(tier, dc, complexity, risk),
		EstimatedTime:      escalation.ResolutionTime(tier, escalated),
		RecommendedActions: e.recommendedActions(tier, score, complexity, risk),
		Rationale:          e.rationale(tier, score, risk),
	}
}

// TierForConfidence is the lightweight confidence-only routing used when a
// full context is unavailable: high confidence stays autonomous, low
// confidence goes straight to a senior partner.
func (e *TierDecisionEngine) TierForConfidence(confidence float64) escalation.Tier {
	switch {
	case confidence >= e.tiers.AgentOnlyConfidence:
		return escalation.TierAgentOnly
	case confidence >= e.tiers.JuniorConfidence:
		return escalation.TierJuniorSpecialist
	default:
		return escalation.TierSeniorPartner
	}
}

func (e *TierDecisionEngine) requiredExpertise(
	tier escalation.Tier,
	dc decision.Context,
	complexity escalation.ComplexityAssessment,
	risk escalation.RiskAssessment,
) []string {
	if tier == escalation.TierAgentOnly {
		return nil
	}

	var expertise []string
	seen := map[string]struct{}{}
	add := func(tag string) {
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		expertise = append(expertise, tag)
	}

	decisionType := strings.ToLower(dc.Type)
	if strings.Contains(decisionType, "technical") {
		add(escalation.ExpertiseTechnical)
	}
	if strings.Contains(decisionType, "architecture") {
		add(escalation.ExpertiseArchitecture)
	}
	if strings.Contains(decisionType, "business") {
		add(escalation.ExpertiseBusiness)
	}
	if complexity.Dominant(escalation.FactorRegulatory) {
		add(escalation.ExpertiseCompliance)
	}
	if risk.Level.Elevated() {
		add(escalation.ExpertiseSeniorPartner)
	}
	if tier == escalation.TierSeniorPartner {
		add(escalation.ExpertiseSeniorPartner)
	}

	if len(expertise) == 0 {
		expertise = []string{escalation.ExpertiseTechnical}
	}
	return expertise
}

func (e *TierDecisionEngine) recommendedActions(
	tier escalation.Tier,
	score escalation.CompositeScore,
	complexity escalation.ComplexityAssessment,
	risk escalation.RiskAssessment,
) []string {
	drivers := map[escalation.Driver]bool{}
	for _, d := range score.PrimaryDrivers {
		drivers[d] = true
	}

	switch tier {
	case escalation.TierAgentOnly:
		return []string{
			"Proceed with agent recommendation",
			"Monitor implementation progress",
		}
	case escalation.TierJuniorSpecialist:
		actions := []string{"Engage junior specialist for review"}
		if drivers[escalation.DriverPoorConsensus] {
			actions = append(actions, "Facilitate consensus building session")
		}
		if drivers[escalation.DriverHighComplexity] {
			actions = append(actions, "Break down decision into smaller components")
		}
		if drivers[escalation.DriverHighRisk] {
			actions = append(actions, "Conduct risk mitigation planning")
		}
		return actions
	default:
		actions := []string{
			"Escalate to senior partner for strategic oversight",
			"Conduct comprehensive stakeholder alignment",
		}
		if risk.Level.Elevated() {
			actions = append(actions, "Implement enhanced risk management protocols")
		}
		if complexity.Level == escalation.LevelHigh {
			actions = append(actions, "Establish expert working group")
		}
		return actions
	}
}

func (e *TierDecisionEngine) rationale(
	tier escalation.Tier,
	score escalation.CompositeScore,
	risk escalation.RiskAssessment,
) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Composite escalation score: %.2f/1.0. ", score.Value)

	drivers := make([]string, len(score.PrimaryDrivers))
	for i, d := range score.PrimaryDrivers {
		drivers[i] = string(d)
	}

	switch tier {
	case escalation.TierAgentOnly:
		b.WriteString("Low complexity and risk enable autonomous agent execution.")
	case escalation.TierJuniorSpecialist:
		fmt.Fprintf(&b, "Moderate complexity or risk requires specialist review. Primary drivers: %s.",
			strings.Join(drivers, ", "))
	default:
		fmt.Fprintf(&b, "High complexity or risk requires senior strategic oversight. Risk level: %s. Primary drivers: %s.",
			risk.Level, strings.Join(drivers, ", "))
	}
	return b.String()
}
