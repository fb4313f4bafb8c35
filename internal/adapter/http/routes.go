package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.Hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Escalations
		r.Post("/escalations", h.CreateEscalation)
		r.Get("/escalations", h.ListEscalations)
		r.Get("/escalations/analytics", h.EscalationAnalytics)
		r.Get("/escalations/{id}", h.GetEscalation)

		// Consensus sessions
		r.Post("/consensus/sessions", h.CreateSession)
		r.Get("/consensus/sessions", h.ListSessions)
		r.Get("/consensus/sessions/{id}", h.GetSession)
		r.Get("/consensus/analytics", h.ConsensusAnalytics)

		// Human expert inputs
		r.Post("/expert-inputs/{id}", h.SubmitExpertInput)
	})
}
