// Package expert defines expert identities, the responses they return for
// escalation scoring, and the perspectives they contribute to consensus
// sessions.
package expert

import "time"

// Type identifies an expert role. Roles are fixed; individual experts are
// identified separately by ExpertID.
type Type string

const (
	SeniorPartner      Type = "senior_partner"
	SystemArchitect    Type = "system_architect"
	BusinessAnalyst    Type = "business_analyst"
	SecuritySpecialist Type = "security_specialist"
	DomainGuru         Type = "domain_guru"
)

// Seniority lists every expert type in descending seniority. Hierarchical
// consensus defers to the earliest participating entry.
var Seniority = []Type{
	SeniorPartner,
	SystemArchitect,
	BusinessAnalyst,
	SecuritySpecialist,
	DomainGuru,
}

// Rank returns the seniority index of t; unknown types rank last.
func Rank(t Type) int {
	for i, s := range Seniority {
		if s == t {
			return i
		}
	}
	return len(Seniority)
}

// Known reports whether t is a recognized expert type.
func Known(t Type) bool {
	return Rank(t) < len(Seniority)
}

// Response is one expert's already-produced evaluation of a decision.
// The engine treats it as read-only input.
type Response struct {
	ExpertID       string    `json:"expert_id"`
	ExpertType     Type      `json:"expert_type"`
	Recommendation string    `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
	Rationale      string    `json:"rationale,omitempty"`
	FocusAreas     []string  `json:"focus_areas,omitempty"`
	ProducedAt     time.Time `json:"produced_at,omitzero"`
}

// Clamped returns a copy with confidence forced into [0,1]. Every aggregation
// path clamps before use.
func (r Response) Clamped() Response {
	if r.Confidence < 0 {
		r.Confidence = 0
	} else if r.Confidence > 1 {
		r.Confidence = 1
	}
	return r
}

// HasFocus reports whether the response carries the given focus-area tag.
func (r Response) HasFocus(area string) bool {
	for _, f := range r.FocusAreas {
		if f == area {
			return true
		}
	}
	return false
}

// Perspective is one expert's structured analysis inside a consensus session.
type Perspective struct {
	ExpertID           string   `json:"expert_id"`
	ExpertType         Type     `json:"expert_type"`
	Recommendation     string   `json:"recommendation"`
	Confidence         float64  `json:"confidence"`
	KeyConsiderations  []string `json:"key_considerations,omitempty"`
	RiskNotes          []string `json:"risk_notes,omitempty"`
	SupportingEvidence []string `json:"supporting_evidence,omitempty"`
	Concerns           []string `json:"concerns,omitempty"`
	CollaborationNotes string   `json:"collaboration_notes,omitempty"`
	Fallback           bool     `json:"fallback,omitempty"`
}

// Clamped returns a copy with confidence forced into [0,1].
func (p Perspective) Clamped() Perspective {
	if p.Confidence < 0 {
		p.Confidence = 0
	} else if p.Confidence > 1 {
		p.Confidence = 1
	}
	return p
}

// domainWeights rates each expert type's relevance per decision domain.
// Unlisted domains carry the neutral 0.5 weight.
var domainWeights = map[Type]map[string]float64{
	DomainGuru: {
		"technical_implementation": 1.0,
		"performance_optimization": 1.0,
		"code_quality":             1.0,
		"system_architecture":      0.7,
		"business_analysis":        0.3,
		"security_compliance":      0.6,
		"strategic_planning":       0.2,
	},
	SystemArchitect: {
		"technical_implementation": 0.8,
		"performance_optimization": 0.8,
		"system_architecture":      1.0,
		"scalability_design":       1.0,
		"integration_strategy":     1.0,
		"business_analysis":        0.6,
		"security_compliance":      0.7,
		"strategic_planning":       0.5,
	},
	BusinessAnalyst: {
		"business_analysis":        1.0,
		"stakeholder_management":   1.0,
		"process_optimization":     1.0,
		"requirements_analysis":    1.0,
		"technical_implementation": 0.4,
		"system_architecture":      0.5,
		"security_compliance":      0.6,
		"strategic_planning":       0.8,
	},
	SecuritySpecialist: {
		"security_compliance":      1.0,
		"risk_assessment":          1.0,
		"threat_analysis":          1.0,
		"compliance_review":        1.0,
		"technical_implementation": 0.7,
		"system_architecture":      0.8,
		"business_analysis":        0.6,
		"strategic_planning":       0.7,
	},
	SeniorPartner: {
		"strategic_planning":       1.0,
		"organizational_impact":    1.0,
		"executive_oversight":      1.0,
		"stakeholder_alignment":    1.0,
		"business_analysis":        0.9,
		"system_architecture":      0.6,
		"technical_implementation": 0.4,
		"security_compliance":      0.8,
	},
}

// DomainWeight returns the relevance of expert type t to a single decision
// domain, defaulting to 0.5 for unknown pairs.
func DomainWeight(t Type, domain string) float64 {
	if w, ok := domainWeights[t][domain]; ok {
		return w
	}
	return 0.5
}

// DomainRelevance averages t's weight across all decision domains, capped at
// 1.0. An empty domain list yields the neutral 0.5.
func DomainRelevance(t Type, domains []string) float64 {
	if len(domains) == 0 {
		return 0.5
	}
	total := 0.0
	for _, d := range domains {
		total += DomainWeight(t, d)
	}
	avg := total / float64(len(domains))
	if avg > 1.0 {
		return 1.0
	}
	return avg
}

// compatibility pairs expert types that collaborate well; expert selection
// fills a session from these before falling back to arbitrary types.
var compatibility = map[Type][]Type{
	DomainGuru: {
		SystemArchitect,
		SecuritySpecialist,
	},
	SystemArchitect: {
		DomainGuru,
		BusinessAnalyst,
		SecuritySpecialist,
		SeniorPartner,
	},
	BusinessAnalyst: {
		SystemArchitect,
		SeniorPartner,
		SecuritySpecialist,
	},
	SecuritySpecialist: {
		SystemArchitect,
		BusinessAnalyst,
		SeniorPartner,
		DomainGuru,
	},
	SeniorPartner: {
		SystemArchitect,
		BusinessAnalyst,
		SecuritySpecialist,
	},
}

// CompatibleWith lists the expert types that pair well with t.
func CompatibleWith(t Type) []Type {
	return compatibility[t]
}

// Compatible reports whether a and b are listed as an effective pairing.
func Compatible(a, b Type) bool {
	for _, c := range compatibility[a] {
		if c == b {
			return true
		}
	}
	return false
}

// specialists maps a decision domain to its go-to specialist type for the
// domain-specialist consensus mechanism.
var specialists = map[string]Type{
	"technical_implementation": DomainGuru,
	"system_architecture":      SystemArchitect,
	"business_analysis":        BusinessAnalyst,
	"security_compliance":      SecuritySpecialist,
	"strategic_planning":       SeniorPartner,
}

// SpecialistFor returns the specialist type for a decision domain, if the
// domain is recognized.
func SpecialistFor(domain string) (Type, bool) {
	t, ok := specialists[domain]
	return t, ok
}
