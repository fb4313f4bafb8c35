package service

import (
	"fmt"
	"slices"
	"strings"

	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain/consensus"
	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

const noPerspectives = "No expert perspectives available"

// ConsensusBuilder selects the consensus mechanism for a decision context,
// assembles a compatible expert panel, and derives one recommendation from a
// set of perspectives.
type ConsensusBuilder struct {
	cfg config.Consensus
}

// NewConsensusBuilder builds a builder from validated consensus
// configuration.
func NewConsensusBuilder(cfg config.Consensus) *ConsensusBuilder {
	return &ConsensusBuilder{cfg: cfg}
}

// SelectMechanism picks the mechanism from the decision characteristics.
// Critical high-complexity decisions demand unanimity; broad or deep domain
// spread weights expertise; otherwise majority is the workhorse.
func (b *ConsensusBuilder) SelectMechanism(dc decision.Context) consensus.Mechanism {
	dc = dc.Normalized()

	highComplexity := dc.TechnicalComplexity == decision.ComplexityHigh ||
		dc.TechnicalComplexity == decision.ComplexityVeryHigh

	switch {
	case dc.BusinessImpact == decision.ImpactCritical && highComplexity:
		return consensus.Unanimous
	case len(dc.DomainFocus) > 3 || dc.TechnicalComplexity == decision.ComplexityVeryHigh:
		return consensus.WeightedConsensus
	case len(dc.Stakeholders) > 3:
		return consensus.Majority
	case strings.Contains(strings.ToLower(dc.Type), "strategic"):
		return consensus.ExpertHierarchy
	case len(dc.DomainFocus) == 1:
		return consensus.DomainSpecialist
	default:
		return consensus.Majority
	}
}

// Params returns the configured parameters for a mechanism, falling back to
// the majority parameters for unknown names.
func (b *ConsensusBuilder) Params(m consensus.Mechanism) config.MechanismParams {
	if p, ok := b.cfg.Mechanisms.ByName(string(m)); ok {
		return p
	}
	return b.cfg.Mechanisms.Majority
}

// SelectExperts normalizes a candidate panel for the mechanism: duplicates
// removed in first-seen order, compatible experts appended until the minimum
// is met, any remaining type as a last resort, then capped at the maximum.
func (b *ConsensusBuilder) SelectExperts(candidates []expert.Type, m consensus.Mechanism) []expert.Type {
	params := b.Params(m)

	var panel []expert.Type
	seen := map[expert.Type]struct{}{}
	add := func(t expert.Type) bool {
		if _, ok := seen[t]; ok {
			return false
		}
		seen[t] = struct{}{}
		panel = append(panel, t)
		return true
	}

	for _, t := range candidates {
		if expert.Known(t) {
			add(t)
		}
	}

	for len(panel) < params.MinExperts {
		grew := false
		for _, t := range panel {
			for _, compatible := range expert.CompatibleWith(t) {
				if add(compatible) {
					grew = true
					break
				}
			}
			if len(panel) >= params.MinExperts {
				break
			}
		}
		if len(panel) >= params.MinExperts {
			break
		}
		for _, t := range expert.Seniority {
			if add(t) {
				grew = true
				break
			}
		}
		if !grew {
			break
		}
	}

	if len(panel) > params.MaxExperts {
		panel = panel[:params.MaxExperts]
	}
	return panel
}

// Indicators computes the early consensus signals from the first round of
// perspectives.
func (b *ConsensusBuilder) Indicators(perspectives []expert.Perspective) consensus.Indicators {
	if len(perspectives) == 0 {
		return consensus.Indicators{}
	}

	confidences := make([]float64, len(perspectives))
	unique := map[string]struct{}{}
	for i, p := range perspectives {
		confidences[i] = p.Clamped().Confidence
		unique[p.Recommendation] = struct{}{}
	}

	avg := mean(confidences)
	diversity := float64(len(unique)) / float64(len(perspectives))

	return consensus.Indicators{
		AverageConfidence:       avg,
		ConfidenceVariance:      variance(confidences),
		RecommendationDiversity: diversity,
		ConsensusLikelihood:     avg*0.4 + (1-diversity)*0.6,
	}
}

// Share generates the pairwise cross-expert insights for the
// perspective-sharing phase. Compatible pairs score a fixed high relevance;
// everyone else scores by confidence proximity with a floor.
func (b *ConsensusBuilder) Share(perspectives []expert.Perspective) consensus.SharingResult {
	var insights []consensus.Insight
	for i, to := range perspectives {
		for j, from := range perspectives {
			if i == j {
				continue
			}
			insights = append(insights, consensus.Insight{
				From:      from.ExpertType,
				To:        to.ExpertType,
				Note:      insightNote(from),
				Relevance: perspectiveRelevance(to, from),
			})
		}
	}

	result := consensus.SharingResult{Insights: insights}
	if n := len(perspectives); n > 0 {
		result.InsightsPerExpert = float64(len(insights)) / float64(n)
		result.Effectiveness = min(1.0, float64(len(insights))/float64(n*2))
	}
	return result
}

func insightNote(from expert.Perspective) string {
	addition := "additional considerations"
	if len(from.KeyConsiderations) > 0 {
		addition = from.KeyConsiderations[0]
	}
	return fmt.Sprintf("%s perspective adds %s", from.ExpertType, addition)
}

func perspectiveRelevance(to, from expert.Perspective) float64 {
	if expert.Compatible(to.ExpertType, from.ExpertType) {
		return 0.8
	}
	diff := to.Clamped().Confidence - from.Clamped().Confidence
	if diff < 0 {
		diff = -diff
	}
	return max(0.3, 1.0-diff)
}

// Build derives the consensus outcome for the mechanism. Unknown mechanisms
// fall back to majority.
func (b *ConsensusBuilder) Build(
	m consensus.Mechanism,
	perspectives []expert.Perspective,
	dc decision.Context,
	resolution consensus.ResolutionReport,
) consensus.MechanismResult {
	if len(perspectives) == 0 {
		return consensus.MechanismResult{
			Mechanism:      m,
			Recommendation: noPerspectives,
		}
	}

	clamped := make([]expert.Perspective, len(perspectives))
	for i, p := range perspectives {
		clamped[i] = p.Clamped()
	}

	switch m {
	case consensus.Unanimous:
		return buildUnanimous(clamped, resolution)
	case consensus.WeightedConsensus:
		return buildWeighted(clamped, dc)
	case consensus.ExpertHierarchy:
		return buildHierarchical(clamped)
	case consensus.DomainSpecialist:
		return buildSpecialist(clamped, dc)
	default:
		return buildMajority(m, clamped, resolution)
	}
}

func buildUnanimous(perspectives []expert.Perspective, resolution consensus.ResolutionReport) consensus.MechanismResult {
	unique := map[string]struct{}{}
	for _, p := range perspectives {
		unique[p.Recommendation] = struct{}{}
	}

	if len(unique) == 1 {
		return consensus.MechanismResult{
			Mechanism:      consensus.Unanimous,
			Success:        true,
			Recommendation: perspectives[0].Recommendation,
			Strength:       1.0,
			Confidence:     1.0,
		}
	}

	strength := 0.6
	if resolution.SuccessRate > 0.8 {
		strength = 0.8
	}
	return consensus.MechanismResult{
		Mechanism:      consensus.Unanimous,
		Success:        resolution.SuccessRate > 0.9,
		Recommendation: fmt.Sprintf("Synthesized approach incorporating %d expert perspectives", len(unique)),
		Strength:       strength,
		Confidence:     strength,
	}
}

func buildMajority(m consensus.Mechanism, perspectives []expert.Perspective, resolution consensus.ResolutionReport) consensus.MechanismResult {
	votes := map[string]int{}
	var best string
	for _, p := range perspectives {
		votes[p.Recommendation]++
		if best == "" || votes[p.Recommendation] > votes[best] {
			best = p.Recommendation
		}
	}

	total := len(perspectives)
	metadata := map[string]any{"vote_distribution": votes}

	if float64(votes[best]) > float64(total)/2 {
		strength := float64(votes[best]) / float64(total)
		return consensus.MechanismResult{
			Mechanism:      m,
			Success:        true,
			Recommendation: best,
			Strength:       strength,
			Confidence:     strength,
			Metadata:       metadata,
		}
	}

	return consensus.MechanismResult{
		Mechanism:      m,
		Success:        resolution.SuccessRate > 0.7,
		Recommendation: fmt.Sprintf("Balanced approach considering %d perspectives", len(votes)),
		Strength:       0.6,
		Confidence:     0.6,
		Metadata:       metadata,
	}
}

func buildWeighted(perspectives []expert.Perspective, dc decision.Context) consensus.MechanismResult {
	weights := map[string]float64{}
	total := 0.0
	for _, p := range perspectives {
		w := expert.DomainRelevance(p.ExpertType, dc.DomainFocus)
		weights[string(p.ExpertType)] = w
		total += w
	}
	if total > 0 {
		for k := range weights {
			weights[k] /= total
		}
	}

	weightedConfidence := 0.0
	var leading expert.Perspective
	bestScore := -1.0
	for _, p := range perspectives {
		score := weights[string(p.ExpertType)] * p.Confidence
		weightedConfidence += score
		if score > bestScore {
			bestScore = score
			leading = p
		}
	}

	return consensus.MechanismResult{
		Mechanism:      consensus.WeightedConsensus,
		Success:        weightedConfidence > 0.7,
		Recommendation: leading.Recommendation,
		Strength:       weightedConfidence,
		Confidence:     weightedConfidence,
		ExpertWeights:  weights,
		LeadingExpert:  leading.ExpertType,
	}
}

func buildHierarchical(perspectives []expert.Perspective) consensus.MechanismResult {
	ordered := slices.Clone(perspectives)
	slices.SortStableFunc(ordered, func(a, b expert.Perspective) int {
		return expert.Rank(a.ExpertType) - expert.Rank(b.ExpertType)
	})

	senior := ordered[0]
	return consensus.MechanismResult{
		Mechanism:      consensus.ExpertHierarchy,
		Success:        senior.Confidence > 0.7,
		Recommendation: senior.Recommendation,
		Strength:       senior.Confidence,
		Confidence:     senior.Confidence,
		LeadingExpert:  senior.ExpertType,
	}
}

func buildSpecialist(perspectives []expert.Perspective, dc decision.Context) consensus.MechanismResult {
	var specialist *expert.Perspective
	for _, domain := range dc.DomainFocus {
		t, ok := expert.SpecialistFor(domain)
		if !ok {
			continue
		}
		for i := range perspectives {
			if perspectives[i].ExpertType == t {
				specialist = &perspectives[i]
				break
			}
		}
		if specialist != nil {
			break
		}
	}

	threshold := 0.8
	if specialist == nil {
		// No recognized specialist participated; defer to the most
		// confident expert with a lower success bar.
		threshold = 0.7
		best := &perspectives[0]
		for i := 1; i < len(perspectives); i++ {
			if perspectives[i].Confidence > best.Confidence {
				best = &perspectives[i]
			}
		}
		specialist = best
	}

	return consensus.MechanismResult{
		Mechanism:      consensus.DomainSpecialist,
		Success:        specialist.Confidence > threshold,
		Recommendation: specialist.Recommendation,
		Strength:       specialist.Confidence,
		Confidence:     specialist.Confidence,
		LeadingExpert:  specialist.ExpertType,
		Metadata: map[string]any{
			"domain_relevance": expert.DomainRelevance(specialist.ExpertType, dc.DomainFocus),
		},
	}
}

// Quality validates a consensus outcome against participation, conflict
// resolution, and confidence alignment.
func (b *ConsensusBuilder) Quality(
	result consensus.MechanismResult,
	perspectives []expert.Perspective,
	participants []expert.Type,
	resolution consensus.ResolutionReport,
) consensus.QualityReport {
	participation := float64(len(perspectives)) / float64(max(len(participants), 1))

	confidences := make([]float64, len(perspectives))
	for i, p := range perspectives {
		confidences[i] = p.Clamped().Confidence
	}
	alignment := 1.0
	if len(confidences) >= 2 {
		alignment = max(0.0, 1.0-variance(confidences))
	}

	overall := (result.Strength + participation + resolution.SuccessRate + alignment) / 4

	return consensus.QualityReport{
		ConsensusStrength:   result.Strength,
		Participation:       participation,
		ResolutionRate:      resolution.SuccessRate,
		ConfidenceAlignment: alignment,
		Overall:             overall,
		Rating:              consensus.QualityRatingFromScore(overall),
	}
}

// ProcessEfficiency measures how lean a completed session was: phase count
// against the ideal, panel size against the ideal of three, and the achieved
// consensus strength.
func (b *ConsensusBuilder) ProcessEfficiency(phases, experts int, strength float64) consensus.Efficiency {
	phase := 1.0
	if phases > 0 {
		phase = min(1.0, 5.0/float64(phases))
	}
	eff := consensus.Efficiency{
		Phase:   phase,
		Expert:  min(1.0, float64(experts)/3.0),
		Outcome: strength,
	}
	eff.Overall = (eff.Phase + eff.Expert + eff.Outcome) / 3
	return eff
}
