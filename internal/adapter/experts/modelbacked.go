package experts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quorumlabs/counsel/internal/adapter/litellm"
	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// personas holds the system prompt per expert type.
var personas = map[expert.Type]string{
	expert.DomainGuru:         "You are a hands-on technical expert. Judge feasibility, code quality, and performance implications.",
	expert.SystemArchitect:    "You are a system architect. Judge structural fit, scalability, and integration strategy.",
	expert.BusinessAnalyst:    "You are a business analyst. Judge business value, stakeholder impact, and process fit.",
	expert.SecuritySpecialist: "You are a security and compliance specialist. Judge risk, threat exposure, and regulatory obligations.",
	expert.SeniorPartner:      "You are a senior partner with executive oversight. Judge strategic alignment and organizational impact.",
}

// ModelBacked asks a chat model, through the LiteLLM proxy, to speak for an
// expert persona. Unparseable model output degrades to a neutral answer
// instead of an error so one misbehaving model never sinks an evaluation.
type ModelBacked struct {
	expertType expert.Type
	client     *litellm.Client
	model      string
	maxTokens  int
}

// NewModelBacked creates a model-backed evaluator for the given persona.
func NewModelBacked(t expert.Type, client *litellm.Client, cfg config.LiteLLM) *ModelBacked {
	return &ModelBacked{
		expertType: t,
		client:     client,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
	}
}

// Type returns the expert persona this evaluator speaks for.
func (e *ModelBacked) Type() expert.Type {
	return e.expertType
}

// modelResponse is the JSON shape the model is asked to produce for a
// short-form response.
type modelResponse struct {
	Recommendation string   `json:"recommendation"`
	Confidence     float64  `json:"confidence"`
	Rationale      string   `json:"rationale"`
	FocusAreas     []string `json:"focus_areas"`
}

// modelPerspective is the JSON shape for a long-form perspective.
type modelPerspective struct {
	Recommendation     string   `json:"recommendation"`
	Confidence         float64  `json:"confidence"`
	KeyConsiderations  []string `json:"key_considerations"`
	RiskNotes          []string `json:"risk_notes"`
	SupportingEvidence []string `json:"supporting_evidence"`
	Concerns           []string `json:"concerns"`
}

// Respond asks the model for a short-form response.
func (e *ModelBacked) Respond(ctx context.Context, dc decision.Context) (expert.Response, error) {
	content, err := e.complete(ctx, dc,
		`Reply with a single JSON object: {"recommendation": string, "confidence": number 0..1, "rationale": string, "focus_areas": [string]}.`)
	if err != nil {
		return expert.Response{}, err
	}

	var parsed modelResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		slog.Warn("model response unparseable, using neutral answer",
			"expert_type", e.expertType, "error", err, "content", truncate(content, 200))
		parsed = modelResponse{
			Recommendation: "proceed",
			Confidence:     0.5,
			Rationale:      "model output could not be parsed",
		}
	}

	return expert.Response{
		ExpertID:       "model-" + string(e.expertType),
		ExpertType:     e.expertType,
		Recommendation: parsed.Recommendation,
		Confidence:     parsed.Confidence,
		Rationale:      parsed.Rationale,
		FocusAreas:     parsed.FocusAreas,
		ProducedAt:     time.Now().UTC(),
	}.Clamped(), nil
}

// Perspective asks the model for a long-form perspective.
func (e *ModelBacked) Perspective(ctx context.Context, dc decision.Context) (expert.Perspective, error) {
	content, err := e.complete(ctx, dc,
		`Reply with a single JSON object: {"recommendation": string, "confidence": number 0..1, "key_considerations": [string], "risk_notes": [string], "supporting_evidence": [string], "concerns": [string]}.`)
	if err != nil {
		return expert.Perspective{}, err
	}

	var parsed modelPerspective
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		slog.Warn("model perspective unparseable, using neutral answer",
			"expert_type", e.expertType, "error", err, "content", truncate(content, 200))
		parsed = modelPerspective{
			Recommendation: "proceed",
			Confidence:     0.5,
		}
	}

	return expert.Perspective{
		ExpertID:           "model-" + string(e.expertType),
		ExpertType:         e.expertType,
		Recommendation:     parsed.Recommendation,
		Confidence:         parsed.Confidence,
		KeyConsiderations:  parsed.KeyConsiderations,
		RiskNotes:          parsed.RiskNotes,
		SupportingEvidence: parsed.SupportingEvidence,
		Concerns:           parsed.Concerns,
	}.Clamped(), nil
}

func (e *ModelBacked) complete(ctx context.Context, dc decision.Context, format string) (string, error) {
	contextJSON, err := json.Marshal(dc.Normalized())
	if err != nil {
		return "", fmt.Errorf("marshal decision context: %w", err)
	}

	persona := personas[e.expertType]
	if persona == "" {
		persona = "You are a domain expert evaluating a decision."
	}

	return e.client.ChatCompletion(ctx, litellm.ChatRequest{
		Model: e.model,
		Messages: []litellm.ChatMessage{
			{Role: "system", Content: persona + " " + format},
			{Role: "user", Content: "Evaluate this decision context:\n" + string(contextJSON)},
		},
		Temperature: 0.1,
		MaxTokens:   e.maxTokens,
	})
}

// extractJSON pulls a JSON object out of model output that may carry markdown
// fences or surrounding prose.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}

	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
