package store

import (
	"context"
	"sync"

	"beacon/internal/legal"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemoryLegalRequestStore keeps legal requests in process memory.
type InMemoryLegalRequestStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*legal.LegalRequest
}

func NewInMemoryLegalRequestStore() *InMemoryLegalRequestStore {
	return &InMemoryLegalRequestStore{requests: make(map[id.RequestID]*legal.LegalRequest)}
}

func (s *InMemoryLegalRequestStore) Create(_ context.Context, req *legal.LegalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	s.requests[req.ID] = copyRequest(req)
	return nil
}

func (s *InMemoryLegalRequestStore) FindByID(_ context.Context, requestID id.RequestID) (*legal.LegalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRequest(req), nil
}

func (s *InMemoryLegalRequestStore) Update(_ context.Context, req *legal.LegalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[req.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.requests[req.ID] = copyRequest(req)
	return nil
}

func copyRequest(req *legal.LegalRequest) *legal.LegalRequest {
	cp := *req
	cp.SignalIDs = append([]id.SignalID(nil), req.SignalIDs...)
	return &cp
}
