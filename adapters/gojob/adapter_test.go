package gojob

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-marketplace/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

func TestEventMessageMappingRoundTrip(t *testing.T) {
	occurredAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	original := core.MarketEvent{
		ID:         "evt-1",
		Name:       "market.purchase.completed",
		AssetID:    42,
		Actor:      "bob",
		Height:     77,
		OccurredAt: occurredAt,
		Payload:    map[string]any{"amount": uint64(500), "seller": "alice"},
	}

	converted := EventToExecutionMessage(original, "", "drop")
	if converted == nil {
		t.Fatalf("expected converted message")
	}
	if converted.JobID != JobIDEventProject {
		t.Fatalf("expected default job id, got %q", converted.JobID)
	}
	if converted.IdempotencyKey != "evt-1" {
		t.Fatalf("expected event id as idempotency key, got %q", converted.IdempotencyKey)
	}

	roundTrip, err := EventFromExecutionMessage(converted)
	if err != nil {
		t.Fatalf("from execution message: %v", err)
	}
	if roundTrip.ID != original.ID || roundTrip.Name != original.Name {
		t.Fatalf("expected event identity to survive mapping, got %#v", roundTrip)
	}
	if roundTrip.AssetID != 42 || roundTrip.Height != 77 {
		t.Fatalf("expected numeric fields to survive mapping, got %#v", roundTrip)
	}
	if !roundTrip.OccurredAt.Equal(occurredAt) {
		t.Fatalf("expected occurred_at %s, got %s", occurredAt, roundTrip.OccurredAt)
	}
	if roundTrip.Payload["seller"] != "alice" {
		t.Fatalf("expected payload to survive mapping")
	}
}

func TestEventFromExecutionMessage_ToleratesJSONNumerics(t *testing.T) {
	msg := &job.ExecutionMessage{
		JobID:          JobIDEventProject,
		IdempotencyKey: "evt-json",
		Parameters: map[string]any{
			"event_name": "market.listing.created",
			"asset_id":   float64(7),
			"height":     "19",
		},
	}

	event, err := EventFromExecutionMessage(msg)
	if err != nil {
		t.Fatalf("from execution message: %v", err)
	}
	if event.ID != "evt-json" {
		t.Fatalf("expected idempotency key fallback, got %q", event.ID)
	}
	if event.AssetID != 7 || event.Height != 19 {
		t.Fatalf("expected widened numerics to decode, got %#v", event)
	}
}

func TestEventFromExecutionMessage_RequiresEventID(t *testing.T) {
	if _, err := EventFromExecutionMessage(nil); err == nil {
		t.Fatalf("expected nil message error")
	}
	if _, err := EventFromExecutionMessage(&job.ExecutionMessage{JobID: JobIDEventProject}); err == nil {
		t.Fatalf("expected missing event id error")
	}
}

func TestQueueProjectorEnqueuesEvents(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	projector, err := NewQueueProjector(enqueuer, QueueProjectorConfig{JobID: JobIDOutboxDispatch})
	if err != nil {
		t.Fatalf("new queue projector: %v", err)
	}

	event := core.MarketEvent{ID: "evt-2", Name: "market.listing.created", AssetID: 3, Actor: "alice"}
	if err := projector.Handle(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDOutboxDispatch {
		t.Fatalf("expected mapped go-job message")
	}
	if enqueuer.last.IdempotencyKey != "evt-2" {
		t.Fatalf("expected idempotency key, got %q", enqueuer.last.IdempotencyKey)
	}

	if err := projector.Handle(context.Background(), core.MarketEvent{Name: "missing.id"}); err == nil {
		t.Fatalf("expected blank event id to be rejected")
	}
}

func TestEventDequeuerAndDeliveryAck(t *testing.T) {
	ctx := context.Background()
	raw := &stubQueueDelivery{
		msg: EventToExecutionMessage(core.MarketEvent{ID: "evt-3", Name: "market.fee.updated"}, "", ""),
	}
	dequeuer := NewEventDequeuer(&stubQueueDequeuer{delivery: raw}, RetryPolicy{})

	delivery, err := dequeuer.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	event, err := delivery.Event()
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if event.ID != "evt-3" || event.Name != "market.fee.updated" {
		t.Fatalf("expected decoded event, got %#v", event)
	}
	if err := delivery.Ack(ctx); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !raw.acked {
		t.Fatalf("expected ack on underlying delivery")
	}
}

func TestNackRetryPolicyBoundaries(t *testing.T) {
	ctx := context.Background()
	raw := &stubQueueDelivery{
		msg: EventToExecutionMessage(core.MarketEvent{ID: "evt-4", Name: "market.purchase.completed"}, "", ""),
	}
	delivery := NewEventDelivery(raw, RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	})

	if err := delivery.Nack(ctx, queue.NackOptions{
		Delay:   30 * time.Second,
		Requeue: true,
		Reason:  "transient",
	}, 1); err != nil {
		t.Fatalf("nack attempt 1: %v", err)
	}
	if raw.nackOpts.Delay != 10*time.Second {
		t.Fatalf("expected delay to be bounded, got %s", raw.nackOpts.Delay)
	}
	if !raw.nackOpts.Requeue {
		t.Fatalf("expected message to be requeued before max attempts")
	}

	if err := delivery.Nack(ctx, queue.NackOptions{
		Delay:   time.Second,
		Requeue: true,
		Reason:  "still failing",
	}, 3); err != nil {
		t.Fatalf("nack max attempt: %v", err)
	}
	if raw.nackOpts.Requeue {
		t.Fatalf("expected no requeue once max attempts is reached")
	}
	if !raw.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter on max attempts")
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nackOpts = opts
	return nil
}
