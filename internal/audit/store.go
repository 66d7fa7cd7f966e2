package audit

import (
	"context"
	"sync"

	id "agriproof/pkg/domain"
)

// Sink receives audit events. Stores, the Kafka publisher, and fan-out
// composites all satisfy it.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a queryable sink. The in-memory implementation backs tests and the
// offline deployment; durable history belongs to the Kafka topic.
type Store interface {
	Sink
	ListByActor(ctx context.Context, actor id.Address) ([]Event, error)
}

// InMemoryStore is an append-only in-memory event log.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actor id.Address) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.Actor == actor {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a snapshot of every recorded event. Test helper.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}

// MultiSink fans an event out to every sink, returning the first failure but
// still attempting the rest.
type MultiSink []Sink

func (m MultiSink) Append(ctx context.Context, event Event) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Append(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
