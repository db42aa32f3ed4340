package store

import (
	"context"
	"sync"
	"time"

	"beacon/internal/blackout"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemoryBlackoutStore keeps blackout windows in process memory.
type InMemoryBlackoutStore struct {
	mu        sync.RWMutex
	blackouts map[id.BlackoutID]*blackout.Blackout
}

func NewInMemoryBlackoutStore() *InMemoryBlackoutStore {
	return &InMemoryBlackoutStore{blackouts: make(map[id.BlackoutID]*blackout.Blackout)}
}

func (s *InMemoryBlackoutStore) Create(_ context.Context, b *blackout.Blackout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blackouts[b.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	cp := *b
	s.blackouts[b.ID] = &cp
	return nil
}

func (s *InMemoryBlackoutStore) FindByID(_ context.Context, blackoutID id.BlackoutID) (*blackout.Blackout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blackouts[blackoutID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// FindActiveByFamily returns the family's active blackout, preferring the one
// that ends last when several overlap.
func (s *InMemoryBlackoutStore) FindActiveByFamily(_ context.Context, familyID id.FamilyID) (*blackout.Blackout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *blackout.Blackout
	for _, b := range s.blackouts {
		if b.FamilyID != familyID || !b.Active {
			continue
		}
		if latest == nil || b.EndTime.After(latest.EndTime) {
			latest = b
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// FindActiveBySignal returns the active blackout anchored to the signal.
func (s *InMemoryBlackoutStore) FindActiveBySignal(_ context.Context, signalID id.SignalID) (*blackout.Blackout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.blackouts {
		if b.SignalID == signalID && b.Active {
			cp := *b
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryBlackoutStore) Update(_ context.Context, b *blackout.Blackout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blackouts[b.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *b
	s.blackouts[b.ID] = &cp
	return nil
}

// ListDue returns active blackouts whose end time has passed.
func (s *InMemoryBlackoutStore) ListDue(_ context.Context, now time.Time) ([]*blackout.Blackout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*blackout.Blackout
	for _, b := range s.blackouts {
		if b.Active && !b.EndTime.After(now) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListUncompleted returns expired blackouts whose completion steps have not
// been recorded.
func (s *InMemoryBlackoutStore) ListUncompleted(_ context.Context) ([]*blackout.Blackout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*blackout.Blackout
	for _, b := range s.blackouts {
		if !b.Active && !b.Completed {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}
