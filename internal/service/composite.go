package service

import (
	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain/escalation"
)

// Component names in the composite breakdown.
const (
	componentConfidence = "confidence"
	componentComplexity = "complexity"
	componentRisk       = "risk"
	componentConsensus  = "consensus"
)

// CompositeScorer folds the four assessments into one escalation pressure
// score in [0,1]. Higher means more escalation pressure.
type CompositeScorer struct {
	weights         config.CompositeWeights
	driverThreshold float64
}

// NewCompositeScorer builds a scorer from validated engine configuration.
func NewCompositeScorer(cfg config.Engine) *CompositeScorer {
	return &CompositeScorer{
		weights:         cfg.CompositeWeights,
		driverThreshold: cfg.DriverThreshold,
	}
}

// Score combines the component scores. Confidence and consensus quality are
// inverted first so that every component contributes in the same direction.
func (s *CompositeScorer) Score(
	confidence escalation.ConfidenceSummary,
	complexity escalation.ComplexityAssessment,
	risk escalation.RiskAssessment,
	quality escalation.ConsensusQuality,
) escalation.CompositeScore {
	components := map[string]float64{
		componentConfidence: 1 - confidence.Overall,
		componentComplexity: complexity.Score,
		componentRisk:       risk.Overall,
		componentConsensus:  1 - quality.Score,
	}

	value := components[componentConfidence]*s.weights.Confidence +
		components[componentComplexity]*s.weights.Complexity +
		components[componentRisk]*s.weights.Risk +
		components[componentConsensus]*s.weights.Consensus

	var drivers []escalation.Driver
	if components[componentConfidence] > s.driverThreshold {
		drivers = append(drivers, escalation.DriverLowConfidence)
	}
	if components[componentComplexity] > s.driverThreshold {
		drivers = append(drivers, escalation.DriverHighComplexity)
	}
	if components[componentRisk] > s.driverThreshold {
		drivers = append(drivers, escalation.DriverHighRisk)
	}
	if components[componentConsensus] > s.driverThreshold {
		drivers = append(drivers, escalation.DriverPoorConsensus)
	}
	if len(drivers) == 0 {
		drivers = []escalation.Driver{escalation.DriverModerateFactors}
	}

	return escalation.CompositeScore{
		Value:          value,
		Components:     components,
		PrimaryDrivers: drivers,
	}
}
