package experts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quorumlabs/counsel/internal/adapter/litellm"
	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// completionServer returns a test server that answers every chat completion
// with the given content string.
func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newModelBacked(t *testing.T, srv *httptest.Server, et expert.Type) *ModelBacked {
	t.Helper()
	return NewModelBacked(et, litellm.NewClient(srv.URL, ""), config.LiteLLM{
		Model:     "openai/gpt-4o-mini",
		MaxTokens: 512,
	})
}

func TestModelBacked_Respond(t *testing.T) {
	srv := completionServer(t, `{"recommendation":"adopt","confidence":0.82,"rationale":"fits the platform","focus_areas":["technical"]}`)
	e := newModelBacked(t, srv, expert.DomainGuru)

	resp, err := e.Respond(context.Background(), decision.Context{Type: "technical_migration"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if resp.Recommendation != "adopt" {
		t.Errorf("Recommendation = %q", resp.Recommendation)
	}
	if !almostEqual(resp.Confidence, 0.82) {
		t.Errorf("Confidence = %v", resp.Confidence)
	}
	if !resp.HasFocus("technical") {
		t.Errorf("FocusAreas = %v", resp.FocusAreas)
	}
	if resp.ExpertID != "model-domain_guru" {
		t.Errorf("ExpertID = %q", resp.ExpertID)
	}
}

func TestModelBacked_RespondFencedJSON(t *testing.T) {
	srv := completionServer(t, "```json\n{\"recommendation\":\"defer\",\"confidence\":0.6,\"rationale\":\"\",\"focus_areas\":null}\n```")
	e := newModelBacked(t, srv, expert.BusinessAnalyst)

	resp, err := e.Respond(context.Background(), decision.Context{})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if resp.Recommendation != "defer" {
		t.Errorf("Recommendation = %q", resp.Recommendation)
	}
}

func TestModelBacked_RespondClampsConfidence(t *testing.T) {
	srv := completionServer(t, `{"recommendation":"adopt","confidence":1.7}`)
	e := newModelBacked(t, srv, expert.SystemArchitect)

	resp, err := e.Respond(context.Background(), decision.Context{})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !almostEqual(resp.Confidence, 1.0) {
		t.Errorf("Confidence = %v, want clamped to 1.0", resp.Confidence)
	}
}

func TestModelBacked_RespondUnparseableFallsBackNeutral(t *testing.T) {
	srv := completionServer(t, "I cannot answer in JSON, sorry.")
	e := newModelBacked(t, srv, expert.SeniorPartner)

	resp, err := e.Respond(context.Background(), decision.Context{})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if resp.Recommendation != "proceed" {
		t.Errorf("Recommendation = %q, want neutral proceed", resp.Recommendation)
	}
	if !almostEqual(resp.Confidence, 0.5) {
		t.Errorf("Confidence = %v, want neutral 0.5", resp.Confidence)
	}
}

func TestModelBacked_Perspective(t *testing.T) {
	srv := completionServer(t, `{"recommendation":"adopt","confidence":0.75,"key_considerations":["cache pressure"],"risk_notes":["cold start"],"supporting_evidence":["benchmark"],"concerns":["latency"]}`)
	e := newModelBacked(t, srv, expert.DomainGuru)

	p, err := e.Perspective(context.Background(), decision.Context{Type: "technical_migration"})
	if err != nil {
		t.Fatalf("Perspective: %v", err)
	}
	if p.Recommendation != "adopt" || !almostEqual(p.Confidence, 0.75) {
		t.Errorf("got %q/%v", p.Recommendation, p.Confidence)
	}
	if len(p.KeyConsiderations) != 1 || len(p.Concerns) != 1 {
		t.Errorf("considerations %v concerns %v", p.KeyConsiderations, p.Concerns)
	}
}

func TestModelBacked_PerspectiveUnparseableFallsBackNeutral(t *testing.T) {
	srv := completionServer(t, "no json here")
	e := newModelBacked(t, srv, expert.SecuritySpecialist)

	p, err := e.Perspective(context.Background(), decision.Context{})
	if err != nil {
		t.Fatalf("Perspective: %v", err)
	}
	if p.Recommendation != "proceed" || !almostEqual(p.Confidence, 0.5) {
		t.Errorf("got %q/%v, want neutral proceed/0.5", p.Recommendation, p.Confidence)
	}
}

func TestModelBacked_ProxyErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	e := newModelBacked(t, srv, expert.DomainGuru)

	if _, err := e.Respond(context.Background(), decision.Context{}); err == nil {
		t.Error("expected error from failing proxy")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"here you go: {\"a\":1} hope it helps", `{"a":1}`},
		{"no braces at all", "no braces at all"},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
