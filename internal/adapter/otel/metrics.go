package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "counsel"

// Metrics holds all counsel metric instruments.
type Metrics struct {
	EscalationsEvaluated    metric.Int64Counter
	EvaluationsInconclusive metric.Int64Counter
	ExpertTimeouts          metric.Int64Counter
	EscalationScore         metric.Float64Histogram
	SessionsCompleted       metric.Int64Counter
	SessionStrength         metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.EscalationsEvaluated, err = meter.Int64Counter("counsel.escalations.evaluated",
		metric.WithDescription("Number of decisions evaluated, by tier"))
	if err != nil {
		return nil, err
	}

	m.EvaluationsInconclusive, err = meter.Int64Counter("counsel.escalations.inconclusive",
		metric.WithDescription("Number of evaluations cancelled before completion"))
	if err != nil {
		return nil, err
	}

	m.ExpertTimeouts, err = meter.Int64Counter("counsel.experts.timeouts",
		metric.WithDescription("Number of expert evaluators replaced by fallback input"))
	if err != nil {
		return nil, err
	}

	m.EscalationScore, err = meter.Float64Histogram("counsel.escalations.composite_score",
		metric.WithDescription("Composite escalation score distribution"))
	if err != nil {
		return nil, err
	}

	m.SessionsCompleted, err = meter.Int64Counter("counsel.sessions.completed",
		metric.WithDescription("Number of consensus sessions completed, by mechanism"))
	if err != nil {
		return nil, err
	}

	m.SessionStrength, err = meter.Float64Histogram("counsel.sessions.strength",
		metric.WithDescription("Consensus strength distribution"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
