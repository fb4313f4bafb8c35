package experts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quorumlabs/counsel/internal/domain/decision"
	"github.com/quorumlabs/counsel/internal/domain/expert"
	"github.com/quorumlabs/counsel/internal/port/messagequeue"
)

// ErrUnknownRequest is returned when input arrives for a request that is not
// pending (already answered, timed out, or never issued).
var ErrUnknownRequest = errors.New("no pending expert input request with that id")

// Inbox routes human expert input submitted over HTTP to the evaluator
// waiting for it. One inbox is shared by all human evaluators.
type Inbox struct {
	mu      sync.Mutex
	pending map[string]chan expert.Response
	queue   messagequeue.Queue
}

// NewInbox creates an inbox. queue may be nil; when set, accepted input is
// published on the experts.input subject.
func NewInbox(queue messagequeue.Queue) *Inbox {
	return &Inbox{
		pending: make(map[string]chan expert.Response),
		queue:   queue,
	}
}

// Submit delivers human input for a pending request. The response is clamped
// before delivery.
func (in *Inbox) Submit(ctx context.Context, requestID string, resp expert.Response) error {
	in.mu.Lock()
	ch, ok := in.pending[requestID]
	if ok {
		delete(in.pending, requestID)
	}
	in.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, requestID)
	}

	ch <- resp.Clamped()

	if in.queue != nil {
		payload, err := json.Marshal(messagequeue.ExpertInputPayload{
			EscalationID:   requestID,
			ExpertID:       resp.ExpertID,
			ExpertType:     string(resp.ExpertType),
			Recommendation: resp.Recommendation,
			Confidence:     resp.Clamped().Confidence,
		})
		if err == nil {
			if perr := in.queue.Publish(ctx, messagequeue.SubjectExpertInput, payload); perr != nil {
				slog.Error("publish expert input", "request_id", requestID, "error", perr)
			}
		}
	}
	return nil
}

// open registers a pending request and returns its delivery channel.
func (in *Inbox) open(requestID string) chan expert.Response {
	ch := make(chan expert.Response, 1)
	in.mu.Lock()
	in.pending[requestID] = ch
	in.mu.Unlock()
	return ch
}

// close abandons a pending request, if it is still pending.
func (in *Inbox) close(requestID string) {
	in.mu.Lock()
	delete(in.pending, requestID)
	in.mu.Unlock()
}

// Human relays a decision to a human expert and waits for their input to
// arrive through the inbox. The caller's per-expert timeout bounds the wait;
// expiry surfaces as a context error, which the services turn into a
// low-confidence fallback.
type Human struct {
	expertType expert.Type
	inbox      *Inbox
}

// NewHuman creates a human-in-the-loop evaluator for the given persona.
func NewHuman(t expert.Type, inbox *Inbox) *Human {
	return &Human{expertType: t, inbox: inbox}
}

// Type returns the expert persona this evaluator speaks for.
func (e *Human) Type() expert.Type {
	return e.expertType
}

// Respond blocks until human input arrives for this request or ctx expires.
func (e *Human) Respond(ctx context.Context, dc decision.Context) (expert.Response, error) {
	requestID := uuid.NewString()
	ch := e.inbox.open(requestID)
	defer e.inbox.close(requestID)

	slog.Info("waiting for human expert input",
		"request_id", requestID,
		"expert_type", e.expertType,
		"decision_type", dc.Normalized().Type,
	)

	select {
	case resp := <-ch:
		resp.ExpertType = e.expertType
		if resp.ExpertID == "" {
			resp.ExpertID = "human-" + string(e.expertType)
		}
		if resp.ProducedAt.IsZero() {
			resp.ProducedAt = time.Now().UTC()
		}
		return resp, nil
	case <-ctx.Done():
		return expert.Response{}, ctx.Err()
	}
}

// Perspective waits like Respond and lifts the submitted response into a
// perspective.
func (e *Human) Perspective(ctx context.Context, dc decision.Context) (expert.Perspective, error) {
	resp, err := e.Respond(ctx, dc)
	if err != nil {
		return expert.Perspective{}, err
	}

	p := expert.Perspective{
		ExpertID:       resp.ExpertID,
		ExpertType:     e.expertType,
		Recommendation: resp.Recommendation,
		Confidence:     resp.Confidence,
	}
	if resp.Rationale != "" {
		p.KeyConsiderations = []string{resp.Rationale}
	}
	return p, nil
}
