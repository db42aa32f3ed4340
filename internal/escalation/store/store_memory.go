package store

import (
	"context"
	"sort"
	"sync"

	"beacon/internal/escalation"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemoryEscalationStore keeps escalations in process memory.
type InMemoryEscalationStore struct {
	mu          sync.RWMutex
	escalations map[id.EscalationID]*escalation.SignalEscalation
}

func NewInMemoryEscalationStore() *InMemoryEscalationStore {
	return &InMemoryEscalationStore{escalations: make(map[id.EscalationID]*escalation.SignalEscalation)}
}

func (s *InMemoryEscalationStore) Create(_ context.Context, esc *escalation.SignalEscalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.escalations[esc.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	cp := *esc
	s.escalations[esc.ID] = &cp
	return nil
}

func (s *InMemoryEscalationStore) FindByID(_ context.Context, escalationID id.EscalationID) (*escalation.SignalEscalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	esc, ok := s.escalations[escalationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *esc
	return &cp, nil
}

func (s *InMemoryEscalationStore) Update(_ context.Context, esc *escalation.SignalEscalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.escalations[esc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *esc
	s.escalations[esc.ID] = &cp
	return nil
}

func (s *InMemoryEscalationStore) ListBySignal(_ context.Context, signalID id.SignalID) ([]*escalation.SignalEscalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*escalation.SignalEscalation
	for _, esc := range s.escalations {
		if esc.SignalID == signalID {
			cp := *esc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
