package service

import (
	"fmt"

	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain/consensus"
	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// ConflictDetector compares expert perspectives pairwise and grades the
// disagreements it finds.
type ConflictDetector struct {
	confidenceGap float64
}

// NewConflictDetector builds a detector from validated consensus
// configuration.
func NewConflictDetector(cfg config.Consensus) *ConflictDetector {
	return &ConflictDetector{confidenceGap: cfg.ConfidenceGap}
}

// Detect runs pairwise conflict analysis over the perspectives in input
// order. It returns the conflicting pairs plus the agreement areas collected
// from non-conflicting pairs, deduplicated in first-seen order.
func (d *ConflictDetector) Detect(perspectives []expert.Perspective) ([]consensus.Conflict, []string) {
	var conflicts []consensus.Conflict
	var agreements []string
	seen := map[string]struct{}{}

	for i := range perspectives {
		for j := i + 1; j < len(perspectives); j++ {
			c, conflicting := d.Analyze(perspectives[i], perspectives[j])
			if conflicting {
				conflicts = append(conflicts, c)
				continue
			}
			for _, area := range c.AgreementAreas {
				if _, ok := seen[area]; ok {
					continue
				}
				seen[area] = struct{}{}
				agreements = append(agreements, area)
			}
		}
	}
	return conflicts, agreements
}

// Analyze compares one unordered pair of perspectives. The returned bool
// reports whether the pair is in conflict: differing recommendations or a
// confidence gap above the configured threshold.
func (d *ConflictDetector) Analyze(a, b expert.Perspective) (consensus.Conflict, bool) {
	a, b = a.Clamped(), b.Clamped()

	recsDiffer := a.Recommendation != b.Recommendation
	gap := a.Confidence - b.Confidence
	if gap < 0 {
		gap = -gap
	}
	gapExceeded := gap > d.confidenceGap

	common, divergent := splitConcerns(a.Concerns, b.Concerns)

	c := consensus.Conflict{
		Experts:               [2]expert.Type{a.ExpertType, b.ExpertType},
		RecommendationsDiffer: recsDiffer,
		ConfidenceGap:         gap,
		ConfidenceGapExceeded: gapExceeded,
		ConcernDivergence:     len(divergent) > len(common),
		ConflictingConcerns:   divergent,
		AgreementAreas:        common,
		Severity:              pairSeverity(recsDiffer, gapExceeded, len(divergent)),
	}
	return c, recsDiffer || gapExceeded
}

// splitConcerns partitions two concern lists into the shared concerns and
// the symmetric difference, both in stable first-list-then-second order.
func splitConcerns(a, b []string) (common, divergent []string) {
	inA := map[string]struct{}{}
	for _, c := range a {
		inA[c] = struct{}{}
	}
	inB := map[string]struct{}{}
	for _, c := range b {
		inB[c] = struct{}{}
	}

	emitted := map[string]struct{}{}
	for _, c := range a {
		if _, ok := emitted[c]; ok {
			continue
		}
		emitted[c] = struct{}{}
		if _, ok := inB[c]; ok {
			common = append(common, c)
		} else {
			divergent = append(divergent, c)
		}
	}
	for _, c := range b {
		if _, ok := emitted[c]; ok {
			continue
		}
		emitted[c] = struct{}{}
		divergent = append(divergent, c)
	}
	return common, divergent
}

func pairSeverity(recsDiffer, gapExceeded bool, divergentConcerns int) consensus.Severity {
	points := 0
	if recsDiffer {
		points += 3
	}
	if gapExceeded {
		points += 2
	}
	if divergentConcerns > 2 {
		points++
	}

	switch {
	case points >= 5:
		return consensus.SeverityHigh
	case points >= 3:
		return consensus.SeverityMedium
	case points >= 1:
		return consensus.SeverityLow
	default:
		return consensus.SeverityMinimal
	}
}

// OverallSeverity grades the whole conflict set.
func OverallSeverity(conflicts []consensus.Conflict) consensus.Severity {
	if len(conflicts) == 0 {
		return consensus.SeverityNone
	}

	counts := map[consensus.Severity]int{}
	for _, c := range conflicts {
		counts[c.Severity]++
	}

	switch {
	case counts[consensus.SeverityHigh] > 0:
		return consensus.SeverityHigh
	case float64(counts[consensus.SeverityMedium]) > float64(len(conflicts))/2:
		return consensus.SeverityMedium
	case counts[consensus.SeverityLow] > 0:
		return consensus.SeverityLow
	default:
		return consensus.SeverityMinimal
	}
}

// ConflictResolver picks a resolution strategy for a conflict set and
// applies it conflict by conflict.
type ConflictResolver struct{}

// NewConflictResolver returns a resolver. It is stateless.
func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{}
}

// SelectStrategy picks the strategy from conflict severity and the decision
// context. Business impact dominates, then complexity; a conflict-free set
// always resolves by compromise.
func (r *ConflictResolver) SelectStrategy(conflicts []consensus.Conflict, dc decision.Context) consensus.Strategy {
	if len(conflicts) == 0 {
		return consensus.CompromiseSolution
	}
	dc = dc.Normalized()

	highSeverity := 0
	for _, c := range conflicts {
		if c.Severity == consensus.SeverityHigh {
			highSeverity++
		}
	}

	switch {
	case highSeverity > 0 && dc.BusinessImpact == decision.ImpactCritical:
		return consensus.SeniorArbitration
	case highSeverity > 0:
		return consensus.EvidenceBased
	case dc.BusinessImpact == decision.ImpactHigh || dc.BusinessImpact == decision.ImpactCritical:
		return consensus.StakeholderPriority
	case dc.TechnicalComplexity == decision.ComplexityHigh || dc.TechnicalComplexity == decision.ComplexityVeryHigh:
		return consensus.RiskMinimization
	default:
		return consensus.CompromiseSolution
	}
}

// Feasibility estimates whether the selected mechanism can still reach
// consensus given the conflicts, using the mechanism's conflict tolerance.
func (r *ConflictResolver) Feasibility(conflicts []consensus.Conflict, params config.MechanismParams) consensus.Feasibility {
	if len(conflicts) == 0 {
		return consensus.Feasibility{
			Feasible:        true,
			Confidence:      1.0,
			EstimatedEffort: consensus.EffortMinimal,
			Tolerance:       params.ConflictTolerance,
		}
	}

	high := 0
	for _, c := range conflicts {
		if c.Severity == consensus.SeverityHigh {
			high++
		}
	}
	intensity := float64(high*3+len(conflicts)) / float64(len(conflicts)*3)

	effort := consensus.EffortSignificant
	switch {
	case intensity < 0.2:
		effort = consensus.EffortMinimal
	case intensity < 0.5:
		effort = consensus.EffortModerate
	}

	return consensus.Feasibility{
		Feasible:          intensity <= params.ConflictTolerance,
		Confidence:        max(0.1, 1.0-intensity),
		EstimatedEffort:   effort,
		ConflictIntensity: intensity,
		Tolerance:         params.ConflictTolerance,
	}
}

// Resolve applies the strategy to every conflict and reports the per-conflict
// outcomes with the overall success rate. An empty conflict set is a full
// success.
func (r *ConflictResolver) Resolve(conflicts []consensus.Conflict, strategy consensus.Strategy) consensus.ResolutionReport {
	report := consensus.ResolutionReport{Strategy: strategy, SuccessRate: 1.0}

	for _, c := range conflicts {
		res := resolveOne(c, strategy)
		report.Resolutions = append(report.Resolutions, res)
		if res.Resolved {
			report.Resolved++
		}
	}
	if len(conflicts) > 0 {
		report.SuccessRate = float64(report.Resolved) / float64(len(conflicts))
	}
	return report
}

func resolveOne(c consensus.Conflict, strategy consensus.Strategy) consensus.Resolution {
	var method, description string
	var probability float64

	switch strategy {
	case consensus.SeniorArbitration:
		method = "senior_partner_decision"
		description = "Senior partner arbitration applied"
		probability = 0.9
		if c.Severity == consensus.SeverityHigh {
			probability = 0.8
		}
	case consensus.EvidenceBased:
		method = "additional_evidence_required"
		description = "Request additional evidence and analysis"
		probability = 0.8
		if c.Severity == consensus.SeverityHigh {
			probability = 0.7
		}
	case consensus.CompromiseSolution:
		method = "hybrid_approach_development"
		description = "Develop compromise solution incorporating both perspectives"
		probability = 0.7
	default:
		method = "general_resolution"
		description = fmt.Sprintf("Apply %s approach", strategy)
		probability = 0.75
	}

	return consensus.Resolution{
		Conflict:           c,
		Method:             method,
		Description:        description,
		SuccessProbability: probability,
		Resolved:           probability > 0.6,
	}
}
