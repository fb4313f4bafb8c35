// Package decision defines the immutable decision context that escalation
// scoring and consensus building operate on.
package decision

// Impact grades the blast radius of a decision along one axis (business,
// financial, customer).
type Impact string

const (
	ImpactVeryLow  Impact = "very_low"
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// Urgency captures the timeline pressure on a decision.
type Urgency string

const (
	UrgencyFlexible Urgency = "flexible"
	UrgencyNormal   Urgency = "normal"
	UrgencyTight    Urgency = "tight"
	UrgencyUrgent   Urgency = "urgent"
)

// Complexity grades the declared technical complexity of a decision.
type Complexity string

const (
	ComplexityLow      Complexity = "low"
	ComplexityMedium   Complexity = "medium"
	ComplexityHigh     Complexity = "high"
	ComplexityVeryHigh Complexity = "very_high"
)

// Context is the input to escalation scoring and consensus building. It is
// created per request and never mutated; scorers work on a Normalized copy.
type Context struct {
	Type                string     `json:"type"`
	Description         string     `json:"description,omitempty"`
	DomainFocus         []string   `json:"domain_focus,omitempty"`
	Stakeholders        []string   `json:"stakeholders,omitempty"`
	BusinessImpact      Impact     `json:"business_impact"`
	FinancialImpact     Impact     `json:"financial_impact,omitempty"`
	CustomerImpact      Impact     `json:"customer_impact,omitempty"`
	TechnicalComplexity Complexity `json:"technical_complexity"`
	Timeline            Urgency    `json:"timeline"`
	Dependencies        []string   `json:"dependencies,omitempty"`
	Regulatory          bool       `json:"regulatory_requirements"`
}

// Normalized returns a copy with missing enum fields defaulted so scorers
// never have to branch on empty values. Missing levels default to the
// medium/normal middle of each scale.
func (c Context) Normalized() Context {
	if c.Type == "" {
		c.Type = "general"
	}
	if c.BusinessImpact == "" {
		c.BusinessImpact = ImpactMedium
	}
	if c.FinancialImpact == "" {
		c.FinancialImpact = ImpactMedium
	}
	if c.CustomerImpact == "" {
		c.CustomerImpact = ImpactMedium
	}
	if c.TechnicalComplexity == "" {
		c.TechnicalComplexity = ComplexityMedium
	}
	if c.Timeline == "" {
		c.Timeline = UrgencyNormal
	}
	return c
}

var impactScores = map[Impact]float64{
	ImpactVeryLow:  0.1,
	ImpactLow:      0.3,
	ImpactMedium:   0.5,
	ImpactHigh:     0.8,
	ImpactCritical: 1.0,
}

var complexityScores = map[Complexity]float64{
	ComplexityLow:      0.3,
	ComplexityMedium:   0.5,
	ComplexityHigh:     0.8,
	ComplexityVeryHigh: 0.9,
}

// Score maps an impact level onto [0,1]. Unknown values score as medium.
func (i Impact) Score() float64 {
	if s, ok := impactScores[i]; ok {
		return s
	}
	return 0.5
}

// Score maps a complexity level onto [0,1]. Unknown values score as medium.
func (c Complexity) Score() float64 {
	if s, ok := complexityScores[c]; ok {
		return s
	}
	return 0.5
}

// PressureScore rates how much the timeline contributes to decision
// complexity.
func (u Urgency) PressureScore() float64 {
	switch u {
	case UrgencyUrgent:
		return 0.9
	case UrgencyTight:
		return 0.7
	case UrgencyFlexible:
		return 0.2
	default:
		return 0.4
	}
}

// RiskScore rates how much the timeline contributes to delivery risk. The
// scale is deliberately distinct from PressureScore: risk saturates lower.
func (u Urgency) RiskScore() float64 {
	switch u {
	case UrgencyUrgent:
		return 0.8
	case UrgencyTight:
		return 0.6
	case UrgencyFlexible:
		return 0.1
	default:
		return 0.3
	}
}
