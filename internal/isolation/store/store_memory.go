package store

import (
	"context"
	"sync"

	"beacon/internal/isolation"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemoryKeyStore holds key records in process memory. Used by tests and
// single-node deployments; the postgres store is the production path.
type InMemoryKeyStore struct {
	mu       sync.RWMutex
	byID     map[id.KeyID]*isolation.SignalEncryptionKey
	bySignal map[id.SignalID]id.KeyID
}

func NewInMemoryKeyStore() *InMemoryKeyStore {
	return &InMemoryKeyStore{
		byID:     make(map[id.KeyID]*isolation.SignalEncryptionKey),
		bySignal: make(map[id.SignalID]id.KeyID),
	}
}

func (s *InMemoryKeyStore) Save(_ context.Context, key *isolation.SignalEncryptionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySignal[key.SignalID]; exists {
		return sentinel.ErrAlreadyExists
	}
	cp := *key
	s.byID[key.ID] = &cp
	s.bySignal[key.SignalID] = key.ID
	return nil
}

func (s *InMemoryKeyStore) FindByID(_ context.Context, keyID id.KeyID) (*isolation.SignalEncryptionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byID[keyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *key
	return &cp, nil
}

func (s *InMemoryKeyStore) FindBySignal(_ context.Context, signalID id.SignalID) (*isolation.SignalEncryptionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keyID, ok := s.bySignal[signalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[keyID]
	return &cp, nil
}

func (s *InMemoryKeyStore) Delete(_ context.Context, keyID id.KeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[keyID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.bySignal, key.SignalID)
	delete(s.byID, keyID)
	return nil
}
