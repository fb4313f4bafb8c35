package experts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
)

// requestID watches the inbox until one pending request shows up and returns
// its id.
func requestID(t *testing.T, in *Inbox) string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		in.mu.Lock()
		for id := range in.pending {
			in.mu.Unlock()
			return id
		}
		in.mu.Unlock()

		select {
		case <-deadline:
			t.Fatal("no pending request appeared")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHuman_RespondDeliversSubmittedInput(t *testing.T) {
	in := NewInbox(nil)
	e := NewHuman(expert.SeniorPartner, in)

	type result struct {
		resp expert.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := e.Respond(context.Background(), decision.Context{Type: "vendor_selection"})
		done <- result{resp, err}
	}()

	id := requestID(t, in)
	if err := in.Submit(context.Background(), id, expert.Response{
		Recommendation: "approve",
		Confidence:     1.3, // clamped on delivery
		Rationale:      "board already aligned",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := <-done
	if got.err != nil {
		t.Fatalf("Respond: %v", got.err)
	}
	if got.resp.Recommendation != "approve" {
		t.Errorf("Recommendation = %q", got.resp.Recommendation)
	}
	if got.resp.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want clamped 1.0", got.resp.Confidence)
	}
	if got.resp.ExpertType != expert.SeniorPartner {
		t.Errorf("ExpertType = %q", got.resp.ExpertType)
	}
	if got.resp.ExpertID != "human-senior_partner" {
		t.Errorf("ExpertID = %q", got.resp.ExpertID)
	}
	if got.resp.ProducedAt.IsZero() {
		t.Error("ProducedAt not set")
	}
}

func TestHuman_RespondTimesOutWithContext(t *testing.T) {
	in := NewInbox(nil)
	e := NewHuman(expert.BusinessAnalyst, in)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Respond(ctx, decision.Context{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}

	// The abandoned request must not linger.
	in.mu.Lock()
	pending := len(in.pending)
	in.mu.Unlock()
	if pending != 0 {
		t.Errorf("%d pending requests left after timeout", pending)
	}
}

func TestInbox_SubmitUnknownRequest(t *testing.T) {
	in := NewInbox(nil)

	err := in.Submit(context.Background(), "nope", expert.Response{Recommendation: "approve"})
	if !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("err = %v, want ErrUnknownRequest", err)
	}
}

func TestHuman_PerspectiveLiftsResponse(t *testing.T) {
	in := NewInbox(nil)
	e := NewHuman(expert.SecuritySpecialist, in)

	type result struct {
		p   expert.Perspective
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := e.Perspective(context.Background(), decision.Context{})
		done <- result{p, err}
	}()

	id := requestID(t, in)
	if err := in.Submit(context.Background(), id, expert.Response{
		Recommendation: "reject",
		Confidence:     0.9,
		Rationale:      "unresolved audit findings",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := <-done
	if got.err != nil {
		t.Fatalf("Perspective: %v", got.err)
	}
	if got.p.Recommendation != "reject" || got.p.Confidence != 0.9 {
		t.Errorf("got %q/%v", got.p.Recommendation, got.p.Confidence)
	}
	if len(got.p.KeyConsiderations) != 1 || got.p.KeyConsiderations[0] != "unresolved audit findings" {
		t.Errorf("KeyConsiderations = %v", got.p.KeyConsiderations)
	}
}
