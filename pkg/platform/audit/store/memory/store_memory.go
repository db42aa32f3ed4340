package memory

import (
	"context"
	"sync"

	id "beacon/pkg/domain"
	audit "beacon/pkg/platform/audit"
)

// Store is an in-memory audit store for tests and single-process deployments.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *Store) ListBySignal(_ context.Context, signalID id.SignalID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, e := range s.events {
		if e.SignalID == signalID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]audit.Event, limit)
	copy(out, s.events[len(s.events)-limit:])
	return out, nil
}
