package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"beacon/internal/gapfill"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// InMemoryPatternStore keeps learned activity patterns in process memory.
type InMemoryPatternStore struct {
	mu       sync.RWMutex
	patterns map[id.ChildID]*gapfill.ActivityPattern
}

func NewInMemoryPatternStore() *InMemoryPatternStore {
	return &InMemoryPatternStore{patterns: make(map[id.ChildID]*gapfill.ActivityPattern)}
}

func (s *InMemoryPatternStore) Save(_ context.Context, pattern *gapfill.ActivityPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *pattern
	cp.Categories = append([]gapfill.WeightedCategory(nil), pattern.Categories...)
	s.patterns[pattern.ChildID] = &cp
	return nil
}

func (s *InMemoryPatternStore) FindByChild(_ context.Context, childID id.ChildID) (*gapfill.ActivityPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern, ok := s.patterns[childID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *pattern
	cp.Categories = append([]gapfill.WeightedCategory(nil), pattern.Categories...)
	return &cp, nil
}

// InMemoryActivityStore keeps timeline entries in process memory.
type InMemoryActivityStore struct {
	mu      sync.RWMutex
	entries []*gapfill.ActivityEntry
}

func NewInMemoryActivityStore() *InMemoryActivityStore {
	return &InMemoryActivityStore{}
}

func (s *InMemoryActivityStore) Append(_ context.Context, entries []*gapfill.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		cp := *e
		s.entries = append(s.entries, &cp)
	}
	return nil
}

func (s *InMemoryActivityStore) ListByChild(_ context.Context, childID id.ChildID, from, to time.Time) ([]*gapfill.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*gapfill.ActivityEntry
	for _, e := range s.entries {
		if e.ChildID != childID {
			continue
		}
		if e.EndTime.Before(from) || e.StartTime.After(to) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}
