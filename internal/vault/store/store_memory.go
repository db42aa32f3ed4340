package store

import (
	"context"
	"sync"

	"beacon/internal/vault"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemoryVaultStore holds isolated signals in process memory. Each instance
// is its own namespace; tests construct one per isolation boundary.
type InMemoryVaultStore struct {
	mu      sync.RWMutex
	records map[id.SignalID]*vault.IsolatedSignal
}

func NewInMemoryVaultStore() *InMemoryVaultStore {
	return &InMemoryVaultStore{records: make(map[id.SignalID]*vault.IsolatedSignal)}
}

func (s *InMemoryVaultStore) Create(_ context.Context, record *vault.IsolatedSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.SignalID]; exists {
		return sentinel.ErrAlreadyExists
	}
	cp := *record
	cp.EncryptedPayload = append([]byte(nil), record.EncryptedPayload...)
	s.records[record.SignalID] = &cp
	return nil
}

func (s *InMemoryVaultStore) FindBySignal(_ context.Context, signalID id.SignalID) (*vault.IsolatedSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[signalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *record
	cp.EncryptedPayload = append([]byte(nil), record.EncryptedPayload...)
	return &cp, nil
}

func (s *InMemoryVaultStore) Delete(_ context.Context, signalID id.SignalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[signalID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, signalID)
	return nil
}
