package store

import (
	"context"
	"sync"
	"time"

	"beacon/internal/suppression"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemorySuppressionStore keeps suppressions in process memory.
type InMemorySuppressionStore struct {
	mu           sync.RWMutex
	suppressions map[id.SuppressionID]*suppression.NotificationSuppression
}

func NewInMemorySuppressionStore() *InMemorySuppressionStore {
	return &InMemorySuppressionStore{suppressions: make(map[id.SuppressionID]*suppression.NotificationSuppression)}
}

func (s *InMemorySuppressionStore) Create(_ context.Context, sup *suppression.NotificationSuppression) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.suppressions[sup.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	cp := *sup
	s.suppressions[sup.ID] = &cp
	return nil
}

// ListActiveByFamily returns the family's suppressions that are active and
// unexpired at the given instant.
func (s *InMemorySuppressionStore) ListActiveByFamily(_ context.Context, familyID id.FamilyID, now time.Time) ([]*suppression.NotificationSuppression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*suppression.NotificationSuppression
	for _, sup := range s.suppressions {
		if sup.FamilyID != familyID || !sup.InEffectAt(now) {
			continue
		}
		cp := *sup
		out = append(out, &cp)
	}
	return out, nil
}

// ExtendBySignal moves the expiry of the signal's active suppressions forward
// to until. Suppressions already expiring later are left alone.
func (s *InMemorySuppressionStore) ExtendBySignal(_ context.Context, signalID id.SignalID, until time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, sup := range s.suppressions {
		if sup.SignalID == signalID && sup.Active && until.After(sup.ExpiresAt) {
			sup.ExpiresAt = until
			n++
		}
	}
	return n, nil
}

func (s *InMemorySuppressionStore) DeactivateBySignal(_ context.Context, signalID id.SignalID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, sup := range s.suppressions {
		if sup.SignalID == signalID && sup.Active {
			sup.Active = false
			n++
		}
	}
	return n, nil
}
