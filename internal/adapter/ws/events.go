package ws

// Event type constants for WebSocket messages.
const (
	// EventEscalationEvaluated carries a completed escalation record.
	EventEscalationEvaluated = "escalation.evaluated"
	// EventConsensusPhase carries a finished phase of a consensus session.
	EventConsensusPhase = "consensus.phase"
	// EventConsensusCompleted carries the final state of a consensus session.
	EventConsensusCompleted = "consensus.completed"
)
