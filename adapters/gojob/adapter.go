package gojob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-marketplace/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	JobIDEventProject   = "market.event.project"
	JobIDOutboxDispatch = "market.outbox.dispatch"
	JobIDActivityPrune  = "market.activity.prune"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// EventToExecutionMessage maps a market event onto a go-job message. The
// event id doubles as the idempotency key so redelivered outbox rows
// collapse queue-side.
func EventToExecutionMessage(event core.MarketEvent, jobID string, dedupPolicy string) *job.ExecutionMessage {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		jobID = JobIDEventProject
	}
	return &job.ExecutionMessage{
		JobID: jobID,
		Parameters: map[string]any{
			"event_id":    strings.TrimSpace(event.ID),
			"event_name":  strings.TrimSpace(event.Name),
			"asset_id":    event.AssetID,
			"actor":       strings.TrimSpace(event.Actor),
			"height":      event.Height,
			"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339Nano),
			"payload":     copyAnyMap(event.Payload),
		},
		IdempotencyKey: strings.TrimSpace(event.ID),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(dedupPolicy)),
	}
}

// EventFromExecutionMessage rebuilds a market event from a queue message,
// tolerating the numeric widening JSON transports apply to parameters.
func EventFromExecutionMessage(msg *job.ExecutionMessage) (core.MarketEvent, error) {
	if msg == nil {
		return core.MarketEvent{}, fmt.Errorf("gojob: execution message is required")
	}
	params := msg.Parameters
	event := core.MarketEvent{
		ID:      paramString(params, "event_id"),
		Name:    paramString(params, "event_name"),
		AssetID: paramUint(params, "asset_id"),
		Actor:   paramString(params, "actor"),
		Height:  paramUint(params, "height"),
		Payload: paramMap(params, "payload"),
	}
	if event.ID == "" {
		event.ID = strings.TrimSpace(msg.IdempotencyKey)
	}
	if event.ID == "" {
		return core.MarketEvent{}, fmt.Errorf("gojob: execution message carries no event id")
	}
	if raw := paramString(params, "occurred_at"); raw != "" {
		occurredAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return core.MarketEvent{}, fmt.Errorf("gojob: invalid occurred_at %q: %w", raw, err)
		}
		event.OccurredAt = occurredAt
	}
	return event, nil
}

type QueueProjectorConfig struct {
	JobID       string
	DedupPolicy string
}

// QueueProjector forwards dispatched market events onto a job queue so
// heavier projections run outside the dispatch loop.
type QueueProjector struct {
	enqueuer queue.Enqueuer
	config   QueueProjectorConfig
}

func NewQueueProjector(enqueuer queue.Enqueuer, config QueueProjectorConfig) (*QueueProjector, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("gojob: enqueuer is required")
	}
	return &QueueProjector{enqueuer: enqueuer, config: config}, nil
}

func (p *QueueProjector) Handle(ctx context.Context, event core.MarketEvent) error {
	if p == nil || p.enqueuer == nil {
		return fmt.Errorf("gojob: queue projector is not configured")
	}
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("gojob: event id is required")
	}
	return p.enqueuer.Enqueue(ctx, EventToExecutionMessage(event, p.config.JobID, p.config.DedupPolicy))
}

// EventDelivery wraps a queue delivery with event decoding and bounded
// nack semantics.
type EventDelivery struct {
	delivery queue.Delivery
	policy   RetryPolicy
}

func NewEventDelivery(delivery queue.Delivery, policy RetryPolicy) *EventDelivery {
	return &EventDelivery{delivery: delivery, policy: policy}
}

func (d *EventDelivery) Event() (core.MarketEvent, error) {
	if d == nil || d.delivery == nil {
		return core.MarketEvent{}, fmt.Errorf("gojob: delivery is not configured")
	}
	return EventFromExecutionMessage(d.delivery.Message())
}

func (d *EventDelivery) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *EventDelivery) Nack(ctx context.Context, opts queue.NackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Nack(ctx, d.policy.Normalize(opts, attempt))
}

type EventDequeuer struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
}

func NewEventDequeuer(dequeuer queue.Dequeuer, policy RetryPolicy) *EventDequeuer {
	return &EventDequeuer{dequeuer: dequeuer, policy: policy}
}

func (a *EventDequeuer) Dequeue(ctx context.Context) (*EventDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	return NewEventDelivery(delivery, a.policy), nil
}

// LoggingWorkerHook reports queue worker lifecycle transitions through the
// marketplace logger.
type LoggingWorkerHook struct {
	logger glog.Logger
}

func NewLoggingWorkerHook(logger glog.Logger) *LoggingWorkerHook {
	return &LoggingWorkerHook{logger: glog.Ensure(logger)}
}

func (h *LoggingWorkerHook) OnStart(ctx context.Context, event worker.Event) {
	h.log(ctx, "job started", event, false)
}

func (h *LoggingWorkerHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.log(ctx, "job succeeded", event, false)
}

func (h *LoggingWorkerHook) OnFailure(ctx context.Context, event worker.Event) {
	h.log(ctx, "job failed", event, true)
}

func (h *LoggingWorkerHook) OnRetry(ctx context.Context, event worker.Event) {
	h.log(ctx, "job retrying", event, false)
}

func (h *LoggingWorkerHook) log(ctx context.Context, message string, event worker.Event, failed bool) {
	if h == nil || h.logger == nil {
		return
	}
	logger := h.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	fields := map[string]any{
		"attempt": event.Attempt,
	}
	msg := event.Message
	if msg == nil && event.Delivery != nil {
		msg = event.Delivery.Message()
	}
	if msg != nil {
		fields["job_id"] = msg.JobID
		fields["idempotency_key"] = msg.IdempotencyKey
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	if fieldsLogger, ok := logger.(glog.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(fields)
	}
	if failed {
		logger.Error(message)
		return
	}
	logger.Info(message)
}

func paramString(params map[string]any, key string) string {
	if len(params) == 0 {
		return ""
	}
	raw, ok := params[key]
	if !ok {
		return ""
	}
	value, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func paramUint(params map[string]any, key string) uint64 {
	if len(params) == 0 {
		return 0
	}
	raw, ok := params[key]
	if !ok {
		return 0
	}
	switch typed := raw.(type) {
	case uint64:
		return typed
	case int:
		if typed < 0 {
			return 0
		}
		return uint64(typed)
	case int64:
		if typed < 0 {
			return 0
		}
		return uint64(typed)
	case float64:
		if typed < 0 {
			return 0
		}
		return uint64(typed)
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

func paramMap(params map[string]any, key string) map[string]any {
	if len(params) == 0 {
		return map[string]any{}
	}
	raw, ok := params[key]
	if !ok {
		return map[string]any{}
	}
	value, ok := raw.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return copyAnyMap(value)
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.MarketEventHandler = (*QueueProjector)(nil)
	_ worker.Hook             = (*LoggingWorkerHook)(nil)
)
