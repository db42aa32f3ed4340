package store

import (
	"context"
	"sync"

	"beacon/internal/privacygap"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemoryPrivacyGapStore keeps privacy gaps and masked records in process
// memory.
type InMemoryPrivacyGapStore struct {
	mu     sync.RWMutex
	gaps   map[id.SignalID]*privacygap.SignalPrivacyGap
	masked []*privacygap.MaskedDataRecord
}

func NewInMemoryPrivacyGapStore() *InMemoryPrivacyGapStore {
	return &InMemoryPrivacyGapStore{gaps: make(map[id.SignalID]*privacygap.SignalPrivacyGap)}
}

func (s *InMemoryPrivacyGapStore) CreateGap(_ context.Context, gap *privacygap.SignalPrivacyGap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.gaps[gap.SignalID]; exists {
		return sentinel.ErrAlreadyExists
	}
	cp := *gap
	s.gaps[gap.SignalID] = &cp
	return nil
}

func (s *InMemoryPrivacyGapStore) FindGapBySignal(_ context.Context, signalID id.SignalID) (*privacygap.SignalPrivacyGap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gap, ok := s.gaps[signalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *gap
	return &cp, nil
}

// MarkApplied flips the gap to applied and writes the masked record in one
// step. Returns ErrAlreadyExists when the gap was applied before, so the
// caller's idempotency does not depend on a separate read.
func (s *InMemoryPrivacyGapStore) MarkApplied(_ context.Context, gap *privacygap.SignalPrivacyGap, record *privacygap.MaskedDataRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.gaps[gap.SignalID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Applied {
		return sentinel.ErrAlreadyExists
	}
	stored.Applied = true
	stored.AppliedAt = gap.AppliedAt

	cp := *record
	s.masked = append(s.masked, &cp)
	return nil
}

func (s *InMemoryPrivacyGapStore) ListMaskedByChild(_ context.Context, childID id.ChildID) ([]*privacygap.MaskedDataRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*privacygap.MaskedDataRecord
	for _, r := range s.masked {
		if r.ChildID == childID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryPrivacyGapStore) ListAppliedGapsByChild(_ context.Context, childID id.ChildID) ([]*privacygap.SignalPrivacyGap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*privacygap.SignalPrivacyGap
	for _, gap := range s.gaps {
		if gap.ChildID == childID && gap.Applied {
			cp := *gap
			out = append(out, &cp)
		}
	}
	return out, nil
}
