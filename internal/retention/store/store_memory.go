package store

import (
	"context"
	"sync"

	"beacon/internal/retention"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemoryRetentionStore keeps retention statuses in process memory.
type InMemoryRetentionStore struct {
	mu       sync.RWMutex
	statuses map[id.SignalID]*retention.SignalRetentionStatus
}

func NewInMemoryRetentionStore() *InMemoryRetentionStore {
	return &InMemoryRetentionStore{statuses: make(map[id.SignalID]*retention.SignalRetentionStatus)}
}

func (s *InMemoryRetentionStore) Create(_ context.Context, status *retention.SignalRetentionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.statuses[status.SignalID]; exists {
		return sentinel.ErrAlreadyExists
	}
	cp := *status
	s.statuses[status.SignalID] = &cp
	return nil
}

func (s *InMemoryRetentionStore) FindBySignal(_ context.Context, signalID id.SignalID) (*retention.SignalRetentionStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.statuses[signalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *status
	return &cp, nil
}

func (s *InMemoryRetentionStore) Update(_ context.Context, status *retention.SignalRetentionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.statuses[status.SignalID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *status
	s.statuses[status.SignalID] = &cp
	return nil
}

// ListDeletable returns statuses whose minimum retention has elapsed and that
// carry no legal hold. The sweep worker deletes these.
func (s *InMemoryRetentionStore) ListDeletable(_ context.Context, now int64) ([]*retention.SignalRetentionStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*retention.SignalRetentionStatus
	for _, status := range s.statuses {
		if status.LegalHold {
			continue
		}
		if status.MinimumRetainUntil.Unix() > now {
			continue
		}
		cp := *status
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryRetentionStore) Delete(_ context.Context, signalID id.SignalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.statuses[signalID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.statuses, signalID)
	return nil
}
