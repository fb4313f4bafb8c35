// Package escalation defines the assessments produced by the scoring
// pipeline and the resulting escalation decision. The numeric thresholds and
// lookup tables here are fixed decision tables; tunable weights live in the
// engine configuration.
package escalation

import (
	"time"

	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// Tier is the level of human involvement a decision requires.
type Tier string

const (
	TierAgentOnly        Tier = "agent_only"
	TierJuniorSpecialist Tier = "junior_specialist"
	TierSeniorPartner    Tier = "senior_partner"
)

// Priority accompanies a tier on the outbound decision.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// RiskLevel buckets an overall risk score.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelFromScore buckets a [0,1] risk score into the five fixed levels.
func RiskLevelFromScore(score float64) RiskLevel {
	switch {
	case score < 0.2:
		return RiskVeryLow
	case score < 0.4:
		return RiskLow
	case score < 0.6:
		return RiskMedium
	case score < 0.8:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Elevated reports whether the level demands risk-driven tier promotion.
func (l RiskLevel) Elevated() bool {
	return l == RiskHigh || l == RiskCritical
}

// Factor names one of the six complexity dimensions.
type Factor string

const (
	FactorTechnical   Factor = "technical_complexity"
	FactorStakeholder Factor = "stakeholder_complexity"
	FactorBusiness    Factor = "business_impact"
	FactorTimeline    Factor = "timeline_pressure"
	FactorIntegration Factor = "integration_complexity"
	FactorRegulatory  Factor = "regulatory_requirements"
)

// Level buckets a weighted complexity score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ComplexityAssessment is the multi-factor complexity result for a decision.
type ComplexityAssessment struct {
	Factors         map[Factor]float64 `json:"factors"`
	Score           float64            `json:"score"`
	Level           Level              `json:"level"`
	DominantFactors []Factor           `json:"dominant_factors,omitempty"`
}

// Dominant reports whether f scored above the dominance threshold.
func (a ComplexityAssessment) Dominant(f Factor) bool {
	for _, d := range a.DominantFactors {
		if d == f {
			return true
		}
	}
	return false
}

// RiskAssessment is the three-axis risk result for a decision.
type RiskAssessment struct {
	Technical          float64   `json:"technical"`
	Implementation     float64   `json:"implementation"`
	Timeline           float64   `json:"timeline"`
	Overall            float64   `json:"overall"`
	Level              RiskLevel `json:"level"`
	MitigationRequired bool      `json:"mitigation_required"`
}

// Agreement describes how closely expert confidences align.
type Agreement string

const (
	AgreementStrong   Agreement = "strong_agreement"
	AgreementModerate Agreement = "moderate_agreement"
	AgreementLow      Agreement = "low_agreement"
	AgreementNoData   Agreement = "no_data"
)

// ConfidenceSummary aggregates expert confidences with the disagreement
// penalty already applied to Overall.
type ConfidenceSummary struct {
	Overall    float64   `json:"overall"`
	Variance   float64   `json:"variance"`
	Agreement  Agreement `json:"agreement"`
	Individual []float64 `json:"individual,omitempty"`
}

// ConsensusLevel grades agreement strength among experts.
type ConsensusLevel string

const (
	ConsensusStrong      ConsensusLevel = "strong_consensus"
	ConsensusModerate    ConsensusLevel = "moderate_consensus"
	ConsensusWeak        ConsensusLevel = "weak_consensus"
	ConsensusNone        ConsensusLevel = "no_consensus"
	ConsensusConflicting ConsensusLevel = "conflicting"
)

// ConsensusQuality scores how coherent the expert consensus is.
type ConsensusQuality struct {
	Score       float64        `json:"score"`
	Level       ConsensusLevel `json:"level"`
	Improvement float64        `json:"improvement,omitempty"`
}

// ConsensusSummary is the optional externally supplied consensus state from
// prior discussion rounds, used instead of deriving quality from responses.
type ConsensusSummary struct {
	Level       ConsensusLevel `json:"level"`
	Improvement float64        `json:"improvement,omitempty"`
}

// Driver tags a composite-score component that pushed the decision toward
// escalation.
type Driver string

const (
	DriverLowConfidence   Driver = "low_confidence"
	DriverHighComplexity  Driver = "high_complexity"
	DriverHighRisk        Driver = "high_risk"
	DriverPoorConsensus   Driver = "poor_consensus"
	DriverModerateFactors Driver = "moderate_factors"
)

// CompositeScore fuses inverted confidence, complexity, risk, and inverted
// consensus quality into the single escalation score.
type CompositeScore struct {
	Value          float64            `json:"value"`
	Components     map[string]float64 `json:"components"`
	PrimaryDrivers []Driver           `json:"primary_drivers"`
}

// Expertise tags name the kinds of human expertise a decision can require.
const (
	ExpertiseTechnical     = "technical_expert"
	ExpertiseArchitecture  = "architecture_expert"
	ExpertiseBusiness      = "business_expert"
	ExpertiseCompliance    = "compliance_expert"
	ExpertiseSeniorPartner = "senior_partner"
)

// Decision is the escalation outcome handed to the routing collaborator.
type Decision struct {
	Tier               Tier     `json:"tier"`
	Priority           Priority `json:"priority"`
	RequiredExpertise  []string `json:"required_expertise"`
	EstimatedTime      string   `json:"estimated_time"`
	RecommendedActions []string `json:"recommended_actions"`
	Rationale          string   `json:"rationale"`
}

// Escalated reports whether any human involvement is required.
func (d Decision) Escalated() bool {
	return d.Tier != TierAgentOnly
}

var baseResolutionTimes = map[Tier]string{
	TierAgentOnly:        "2-4 hours",
	TierJuniorSpecialist: "1-2 days",
	TierSeniorPartner:    "3-5 days",
}

var escalatedResolutionTimes = map[Tier]string{
	TierAgentOnly:        "4-8 hours",
	TierJuniorSpecialist: "2-3 days",
	TierSeniorPartner:    "5-7 days",
}

// ResolutionTime returns the estimated resolution window for a tier. The
// escalated variant applies when complexity is high or risk is elevated.
func ResolutionTime(t Tier, escalated bool) string {
	times := baseResolutionTimes
	if escalated {
		times = escalatedResolutionTimes
	}
	if est, ok := times[t]; ok {
		return est
	}
	return baseResolutionTimes[TierJuniorSpecialist]
}

// Record is one append-only history entry: the full input and every
// intermediate assessment alongside the final decision.
type Record struct {
	ID         string               `json:"id"`
	CreatedAt  time.Time            `json:"created_at"`
	Context    decision.Context     `json:"context"`
	Responses  []expert.Response    `json:"responses"`
	Confidence ConfidenceSummary    `json:"confidence"`
	Complexity ComplexityAssessment `json:"complexity"`
	Risk       RiskAssessment       `json:"risk"`
	Quality    ConsensusQuality     `json:"quality"`
	Composite  CompositeScore       `json:"composite"`
	Decision   Decision             `json:"decision"`
}
