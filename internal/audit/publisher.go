package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agriproof/pkg/requestcontext"
)

// Publisher is the emit side handed to domain services.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Queue decouples emission from delivery: Emit enqueues without blocking the
// request path and the Worker drains to the configured sinks. Registry
// operations must not fail because an audit sink is slow or down, so a full
// queue drops the event and logs it instead of applying backpressure.
type Queue struct {
	ch     chan Event
	logger *slog.Logger
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(buffer int, logger *slog.Logger) *Queue {
	if buffer <= 0 {
		buffer = 256
	}
	return &Queue{ch: make(chan Event, buffer), logger: logger}
}

// Emit stamps the event and enqueues it. Never blocks.
func (q *Queue) Emit(ctx context.Context, event Event) error {
	event = stamp(ctx, event)
	select {
	case q.ch <- event:
		return nil
	default:
		if q.logger != nil {
			q.logger.WarnContext(ctx, "audit queue full, dropping event",
				"action", event.Action,
				"actor", event.Actor.Short(),
			)
		}
		return nil
	}
}

// Events exposes the inbox for the worker.
func (q *Queue) Events() <-chan Event { return q.ch }

// StorePublisher appends synchronously to a single sink. Used in tests and in
// deployments without a worker loop.
type StorePublisher struct {
	sink Sink
}

func NewStorePublisher(sink Sink) *StorePublisher {
	return &StorePublisher{sink: sink}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	return p.sink.Append(ctx, stamp(ctx, event))
}

// stamp fills derived fields: ID, category, timestamp, request correlation.
func stamp(ctx context.Context, event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return event
}
