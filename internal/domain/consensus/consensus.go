// Package consensus defines the session, phase, conflict, and mechanism
// types for multi-expert consensus building.
package consensus

import (
	"time"

	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// Mechanism is the algorithm used to derive one recommendation from several
// expert perspectives.
type Mechanism string

const (
	Unanimous         Mechanism = "unanimous"
	Majority          Mechanism = "majority"
	WeightedConsensus Mechanism = "weighted_consensus"
	ExpertHierarchy   Mechanism = "expert_hierarchy"
	DomainSpecialist  Mechanism = "domain_specialist"
)

// Mechanisms lists every supported mechanism.
var Mechanisms = []Mechanism{
	Unanimous,
	Majority,
	WeightedConsensus,
	ExpertHierarchy,
	DomainSpecialist,
}

// Valid reports whether m names a supported mechanism.
func (m Mechanism) Valid() bool {
	for _, known := range Mechanisms {
		if m == known {
			return true
		}
	}
	return false
}

// Phase names one step of the consensus state machine. Phases run in fixed
// order with no skipping.
type Phase string

const (
	PhaseExpertSelection        Phase = "expert_selection"
	PhaseInitialAnalysis        Phase = "initial_analysis"
	PhasePerspectiveSharing     Phase = "perspective_sharing"
	PhaseConflictIdentification Phase = "conflict_identification"
	PhaseConsensusBuilding      Phase = "consensus_building"
	PhaseFinalValidation        Phase = "final_validation"
)

// PhaseOrder is the fixed execution order of the consensus state machine.
var PhaseOrder = []Phase{
	PhaseExpertSelection,
	PhaseInitialAnalysis,
	PhasePerspectiveSharing,
	PhaseConflictIdentification,
	PhaseConsensusBuilding,
	PhaseFinalValidation,
}

// Strategy is a conflict-resolution approach.
type Strategy string

const (
	SeniorArbitration   Strategy = "senior_arbitration"
	EvidenceBased       Strategy = "evidence_based"
	StakeholderPriority Strategy = "stakeholder_priority"
	RiskMinimization    Strategy = "risk_minimization"
	CompromiseSolution  Strategy = "compromise_solution"
)

// Severity classifies disagreement between two expert perspectives.
type Severity string

const (
	SeverityNone    Severity = "none"
	SeverityMinimal Severity = "minimal"
	SeverityLow     Severity = "low"
	SeverityMedium  Severity = "medium"
	SeverityHigh    Severity = "high"
)

// Conflict records the disagreement between one unordered pair of expert
// perspectives.
type Conflict struct {
	Experts               [2]expert.Type `json:"experts"`
	RecommendationsDiffer bool           `json:"recommendations_differ"`
	ConfidenceGap         float64        `json:"confidence_gap"`
	ConfidenceGapExceeded bool           `json:"confidence_gap_exceeded"`
	ConcernDivergence     bool           `json:"concern_divergence"`
	ConflictingConcerns   []string       `json:"conflicting_concerns,omitempty"`
	AgreementAreas        []string       `json:"agreement_areas,omitempty"`
	Severity              Severity       `json:"severity"`
}

// Resolution records the outcome of applying a strategy to one conflict.
type Resolution struct {
	Conflict           Conflict `json:"conflict"`
	Method             string   `json:"method"`
	Description        string   `json:"description"`
	SuccessProbability float64  `json:"success_probability"`
	Resolved           bool     `json:"resolved"`
}

// ResolutionReport summarizes strategy application across every conflict.
type ResolutionReport struct {
	Strategy    Strategy     `json:"strategy"`
	Resolutions []Resolution `json:"resolutions"`
	Resolved    int          `json:"resolved"`
	SuccessRate float64      `json:"success_rate"`
}

// Effort grades the estimated work needed to reach consensus.
type Effort string

const (
	EffortMinimal     Effort = "minimal"
	EffortModerate    Effort = "moderate"
	EffortSignificant Effort = "significant"
)

// Feasibility estimates whether consensus is reachable under the selected
// mechanism's conflict tolerance.
type Feasibility struct {
	Feasible          bool    `json:"feasible"`
	Confidence        float64 `json:"confidence"`
	EstimatedEffort   Effort  `json:"estimated_effort"`
	ConflictIntensity float64 `json:"conflict_intensity"`
	Tolerance         float64 `json:"tolerance"`
}

// Indicators are the early consensus signals computed from the first round
// of perspectives.
type Indicators struct {
	AverageConfidence       float64 `json:"average_confidence"`
	ConfidenceVariance      float64 `json:"confidence_variance"`
	RecommendationDiversity float64 `json:"recommendation_diversity"`
	ConsensusLikelihood     float64 `json:"consensus_likelihood"`
}

// Insight is one cross-expert observation produced during perspective
// sharing.
type Insight struct {
	From      expert.Type `json:"from"`
	To        expert.Type `json:"to"`
	Note      string      `json:"note"`
	Relevance float64     `json:"relevance"`
}

// SharingResult summarizes the perspective-sharing phase.
type SharingResult struct {
	Insights          []Insight `json:"insights"`
	InsightsPerExpert float64   `json:"insights_per_expert"`
	Effectiveness     float64   `json:"effectiveness"`
}

// SelectionResult summarizes the expert-selection phase.
type SelectionResult struct {
	Mechanism    Mechanism     `json:"mechanism"`
	Participants []expert.Type `json:"participants"`
}

// ConflictReport summarizes the conflict-identification phase.
type ConflictReport struct {
	Conflicts       []Conflict  `json:"conflicts"`
	AgreementAreas  []string    `json:"agreement_areas,omitempty"`
	OverallSeverity Severity    `json:"overall_severity"`
	Strategy        Strategy    `json:"strategy"`
	Feasibility     Feasibility `json:"feasibility"`
}

// MechanismResult is the output of one consensus mechanism over a set of
// perspectives.
type MechanismResult struct {
	Mechanism      Mechanism          `json:"mechanism"`
	Success        bool               `json:"success"`
	Recommendation string             `json:"recommendation"`
	Strength       float64            `json:"strength"`
	Confidence     float64            `json:"confidence"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
	ExpertWeights  map[string]float64 `json:"expert_weights,omitempty"`
	LeadingExpert  expert.Type        `json:"leading_expert,omitempty"`
}

// QualityRating buckets a session quality score.
type QualityRating string

const (
	QualityExcellent  QualityRating = "excellent"
	QualityGood       QualityRating = "good"
	QualityAcceptable QualityRating = "acceptable"
	QualityPoor       QualityRating = "poor"
)

// QualityRatingFromScore buckets a [0,1] session quality score.
func QualityRatingFromScore(score float64) QualityRating {
	switch {
	case score >= 0.8:
		return QualityExcellent
	case score >= 0.6:
		return QualityGood
	case score >= 0.4:
		return QualityAcceptable
	default:
		return QualityPoor
	}
}

// QualityReport is the validated quality of a completed session.
type QualityReport struct {
	ConsensusStrength   float64       `json:"consensus_strength"`
	Participation       float64       `json:"participation"`
	ResolutionRate      float64       `json:"resolution_rate"`
	ConfidenceAlignment float64       `json:"confidence_alignment"`
	Overall             float64       `json:"overall"`
	Rating              QualityRating `json:"rating"`
}

// Efficiency measures how lean the consensus process was.
type Efficiency struct {
	Phase   float64 `json:"phase"`
	Expert  float64 `json:"expert"`
	Outcome float64 `json:"outcome"`
	Overall float64 `json:"overall"`
}

// Analysis is the frozen final consensus produced by the validation phase.
type Analysis struct {
	Mechanism         Mechanism        `json:"mechanism"`
	Strength          float64          `json:"strength"`
	AgreementAreas    []string         `json:"agreement_areas,omitempty"`
	DisagreementAreas []string         `json:"disagreement_areas,omitempty"`
	ConflictingPairs  [][2]expert.Type `json:"conflicting_pairs,omitempty"`
	Recommendation    string           `json:"recommendation"`
	Confidence        float64          `json:"confidence"`
	Strategy          Strategy         `json:"strategy,omitempty"`
}

// PhaseResult is one immutable entry in a session's phase history. Exactly
// one payload field is set, matching the phase.
type PhaseResult struct {
	Phase       Phase             `json:"phase"`
	CompletedAt time.Time         `json:"completed_at"`
	Selection   *SelectionResult  `json:"selection,omitempty"`
	Indicators  *Indicators       `json:"indicators,omitempty"`
	Sharing     *SharingResult    `json:"sharing,omitempty"`
	Conflicts   *ConflictReport   `json:"conflicts,omitempty"`
	Building    *BuildResult      `json:"building,omitempty"`
	Validation  *ValidationResult `json:"validation,omitempty"`
}

// BuildResult summarizes the consensus-building phase.
type BuildResult struct {
	Resolution ResolutionReport `json:"resolution"`
	Result     MechanismResult  `json:"result"`
	Quality    QualityReport    `json:"quality"`
	Success    bool             `json:"success"`
}

// ValidationResult summarizes the final-validation phase.
type ValidationResult struct {
	Analysis   Analysis      `json:"analysis"`
	Quality    QualityReport `json:"quality"`
	Efficiency Efficiency    `json:"efficiency"`
}

// Session is one consensus run: context, participants, perspectives, the
// ordered phase history, and the frozen final analysis. A session is mutated
// only by the orchestrator that owns it and becomes immutable once the
// final-validation phase completes.
type Session struct {
	ID           string               `json:"id"`
	CreatedAt    time.Time            `json:"created_at"`
	CompletedAt  time.Time            `json:"completed_at,omitzero"`
	Context      decision.Context     `json:"context"`
	Mechanism    Mechanism            `json:"mechanism"`
	Participants []expert.Type        `json:"participants"`
	Perspectives []expert.Perspective `json:"perspectives"`
	Phases       []PhaseResult        `json:"phases"`
	Analysis     *Analysis            `json:"analysis,omitempty"`
	Quality      *QualityReport       `json:"quality,omitempty"`
	Efficiency   *Efficiency          `json:"efficiency,omitempty"`
}

// Completed reports whether the session reached final validation.
func (s *Session) Completed() bool {
	return s.Analysis != nil
}
