package store

import (
	"context"
	"sync"

	"beacon/internal/ingest"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemorySignalStore holds safety signals in process memory.
type InMemorySignalStore struct {
	mu      sync.RWMutex
	signals map[id.SignalID]*ingest.SafetySignal
}

func NewInMemorySignalStore() *InMemorySignalStore {
	return &InMemorySignalStore{signals: make(map[id.SignalID]*ingest.SafetySignal)}
}

func (s *InMemorySignalStore) Save(_ context.Context, signal *ingest.SafetySignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.signals[signal.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	cp := *signal
	s.signals[signal.ID] = &cp
	return nil
}

func (s *InMemorySignalStore) FindByID(_ context.Context, signalID id.SignalID) (*ingest.SafetySignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	signal, ok := s.signals[signalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *signal
	return &cp, nil
}

func (s *InMemorySignalStore) Update(_ context.Context, signal *ingest.SafetySignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.signals[signal.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *signal
	s.signals[signal.ID] = &cp
	return nil
}

func (s *InMemorySignalStore) Delete(_ context.Context, signalID id.SignalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.signals[signalID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.signals, signalID)
	return nil
}

// InMemoryOfflineQueue holds offline queue entries in process memory.
type InMemoryOfflineQueue struct {
	mu      sync.Mutex
	entries map[id.SignalID]*ingest.OfflineQueueEntry
}

func NewInMemoryOfflineQueue() *InMemoryOfflineQueue {
	return &InMemoryOfflineQueue{entries: make(map[id.SignalID]*ingest.OfflineQueueEntry)}
}

func (q *InMemoryOfflineQueue) Enqueue(_ context.Context, entry *ingest.OfflineQueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cp := *entry
	q.entries[entry.SignalID] = &cp
	return nil
}

func (q *InMemoryOfflineQueue) ListByChild(_ context.Context, childID id.ChildID) ([]*ingest.OfflineQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*ingest.OfflineQueueEntry
	for _, e := range q.entries {
		if e.ChildID == childID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Remove deletes an entry. Removing an absent entry is a no-op so queue
// processing stays idempotent under repeated calls.
func (q *InMemoryOfflineQueue) Remove(_ context.Context, signalID id.SignalID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.entries, signalID)
	return nil
}
