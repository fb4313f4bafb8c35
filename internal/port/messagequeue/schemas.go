package messagequeue

// DecisionEvaluatedPayload is the schema for decisions.evaluated messages.
type DecisionEvaluatedPayload struct {
	EscalationID   string   `json:"escalation_id"`
	DecisionType   string   `json:"decision_type"`
	Tier           string   `json:"tier"`
	Priority       string   `json:"priority"`
	CompositeScore float64  `json:"composite_score"`
	RiskLevel      string   `json:"risk_level"`
	PrimaryDrivers []string `json:"primary_drivers"`
}

// DecisionInconclusivePayload is the schema for decisions.inconclusive messages.
type DecisionInconclusivePayload struct {
	DecisionType string `json:"decision_type"`
	Reason       string `json:"reason"`
}

// ConsensusPhasePayload is the schema for consensus.phase messages.
type ConsensusPhasePayload struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"`
}

// ConsensusCompletedPayload is the schema for consensus.completed messages.
type ConsensusCompletedPayload struct {
	SessionID      string  `json:"session_id"`
	Mechanism      string  `json:"mechanism"`
	Success        bool    `json:"success"`
	Strength       float64 `json:"strength"`
	Recommendation string  `json:"recommendation"`
	QualityRating  string  `json:"quality_rating"`
}

// ExpertInputPayload is the schema for experts.input messages.
type ExpertInputPayload struct {
	EscalationID   string  `json:"escalation_id"`
	ExpertID       string  `json:"expert_id"`
	ExpertType     string  `json:"expert_type"`
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
}
