package http

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorumlabs/counsel/internal/adapter/experts"
	"github.com/quorumlabs/counsel/internal/adapter/litellm"
	"github.com/quorumlabs/counsel/internal/adapter/ws"
	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/escalation"
	"github.com/quorumlabs/counsel/internal/domain/expert"
	"github.com/quorumlabs/counsel/internal/port/evaluator"
	"github.com/quorumlabs/counsel/internal/port/messagequeue"
	"github.com/quorumlabs/counsel/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Escalations *service.EscalationService
	Sessions    *service.SessionOrchestrator
	Analytics   *service.AnalyticsService
	Evaluators  map[expert.Type]evaluator.Evaluator
	Inbox       *experts.Inbox
	Hub         *ws.Hub

	// Health probes; any of these may be nil, in which case the component
	// is left out of the health report.
	Pool    *pgxpool.Pool
	Queue   messagequeue.Queue
	LiteLLM *litellm.Client
}

// Health handles GET /health. It reports per-component status and returns
// 503 when the database is unreachable; a disconnected queue or LLM proxy
// degrades the report but keeps the engine serving.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}
	status := http.StatusOK
	overall := "ok"

	if h.Pool != nil {
		if err := h.Pool.Ping(r.Context()); err != nil {
			components["postgres"] = "down"
			overall = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			components["postgres"] = "up"
		}
	}

	if h.Queue != nil {
		if h.Queue.IsConnected() {
			components["nats"] = "up"
		} else {
			components["nats"] = "down"
			if overall == "ok" {
				overall = "degraded"
			}
		}
	}

	if h.LiteLLM != nil {
		healthy, err := h.LiteLLM.Health(r.Context())
		if healthy && err == nil {
			components["litellm"] = "up"
		} else {
			components["litellm"] = "down"
			if overall == "ok" {
				overall = "degraded"
			}
		}
	}

	writeJSON(w, status, map[string]any{
		"status":     overall,
		"components": components,
		"ws_clients": h.Hub.ConnectionCount(),
	})
}

// escalationRequest is the body of POST /api/v1/escalations. Responses may be
// supplied directly, or the engine gathers them by running the named expert
// evaluators (all registered evaluators when Experts is empty).
type escalationRequest struct {
	Context    decision.Context             `json:"context"`
	Responses  []expert.Response            `json:"responses,omitempty"`
	Consensus  *escalation.ConsensusSummary `json:"consensus,omitempty"`
	UseExperts bool                         `json:"use_experts,omitempty"`
	Experts    []expert.Type                `json:"experts,omitempty"`
}

// CreateEscalation handles POST /api/v1/escalations
func (h *Handlers) CreateEscalation(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[escalationRequest](w, r)
	if !ok {
		return
	}

	if req.UseExperts || (len(req.Responses) == 0 && len(req.Experts) > 0) {
		evaluators, err := h.selectEvaluators(req.Experts)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := h.Escalations.EvaluateWithExperts(r.Context(), req.Context, evaluators, req.Consensus)
		if err != nil {
			writeDomainError(w, err, "escalation not found")
			return
		}
		writeJSON(w, http.StatusCreated, rec)
		return
	}

	rec, err := h.Escalations.Evaluate(r.Context(), service.EvaluationRequest{
		Context:   req.Context,
		Responses: req.Responses,
		Consensus: req.Consensus,
	})
	if err != nil {
		writeDomainError(w, err, "escalation not found")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// selectEvaluators resolves the requested expert types against the registered
// evaluators. An empty request selects every registered evaluator.
func (h *Handlers) selectEvaluators(types []expert.Type) ([]evaluator.Evaluator, error) {
	if len(types) == 0 {
		evaluators := make([]evaluator.Evaluator, 0, len(h.Evaluators))
		for _, t := range expert.Seniority {
			if ev, ok := h.Evaluators[t]; ok {
				evaluators = append(evaluators, ev)
			}
		}
		return evaluators, nil
	}

	evaluators := make([]evaluator.Evaluator, 0, len(types))
	for _, t := range types {
		ev, ok := h.Evaluators[t]
		if !ok {
			return nil, errors.New("unknown expert type: " + string(t))
		}
		evaluators = append(evaluators, ev)
	}
	return evaluators, nil
}

// ListEscalations handles GET /api/v1/escalations
func (h *Handlers) ListEscalations(w http.ResponseWriter, r *http.Request) {
	records, err := h.Escalations.History(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetEscalation handles GET /api/v1/escalations/{id}
func (h *Handlers) GetEscalation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Escalations.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "escalation not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// EscalationAnalytics handles GET /api/v1/escalations/analytics
func (h *Handlers) EscalationAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.Analytics.Escalations(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// CreateSession handles POST /api/v1/consensus/sessions
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.SessionRequest](w, r)
	if !ok {
		return
	}

	for _, t := range req.Candidates {
		if !expert.Known(t) {
			writeError(w, http.StatusBadRequest, "unknown expert type: "+string(t))
			return
		}
	}

	session, err := h.Sessions.Run(r.Context(), req, h.Evaluators)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// ListSessions handles GET /api/v1/consensus/sessions
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Sessions.List(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// GetSession handles GET /api/v1/consensus/sessions/{id}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.Sessions.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// ConsensusAnalytics handles GET /api/v1/consensus/analytics
func (h *Handlers) ConsensusAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.Analytics.Consensus(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// SubmitExpertInput handles POST /api/v1/expert-inputs/{id}. It delivers a
// human expert's response to the evaluation waiting on request {id}.
func (h *Handlers) SubmitExpertInput(w http.ResponseWriter, r *http.Request) {
	resp, ok := readJSON[expert.Response](w, r)
	if !ok {
		return
	}
	if resp.Recommendation == "" {
		writeError(w, http.StatusBadRequest, "recommendation is required")
		return
	}

	id := urlParam(r, "id")
	if err := h.Inbox.Submit(r.Context(), id, resp); err != nil {
		if errors.Is(err, experts.ErrUnknownRequest) {
			writeError(w, http.StatusNotFound, "no pending request with that id")
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "request_id": id})
}
