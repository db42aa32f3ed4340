// Package service implements activity gap filling. Entries are synthesized
// from the child's learned pattern so the blackout window reads as an
// ordinary stretch of the timeline.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"beacon/internal/gapfill"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/sentinel"
)

// Session length jitter keeps synthetic entries off a metronome: each one is
// the typical length scaled by a factor in [0.7, 1.3).
const (
	jitterFloor = 0.7
	jitterSpan  = 0.6

	quietIdleBias = 0.8
)

// PatternStore persists learned activity patterns.
type PatternStore interface {
	Save(ctx context.Context, pattern *gapfill.ActivityPattern) error
	FindByChild(ctx context.Context, childID id.ChildID) (*gapfill.ActivityPattern, error)
}

// ActivityStore persists timeline entries.
type ActivityStore interface {
	Append(ctx context.Context, entries []*gapfill.ActivityEntry) error
	ListByChild(ctx context.Context, childID id.ChildID, from, to time.Time) ([]*gapfill.ActivityEntry, error)
}

// PrivacyGapChecker reports whether an instant falls inside an applied
// privacy gap for the child.
type PrivacyGapChecker interface {
	IsPrivacyGapped(ctx context.Context, childID id.ChildID, at time.Time) (bool, error)
}

type Service struct {
	patterns    PatternStore
	activities  ActivityStore
	privacyGaps PrivacyGapChecker
	logger      *slog.Logger
	rng         *rand.Rand
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPrivacyGapChecker masks real activity inside applied privacy gaps on
// the family-facing read path.
func WithPrivacyGapChecker(checker PrivacyGapChecker) Option {
	return func(s *Service) {
		s.privacyGaps = checker
	}
}

// WithRand overrides the random source, used by tests for determinism.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		s.rng = rng
	}
}

func New(patterns PatternStore, activities ActivityStore, opts ...Option) (*Service, error) {
	if patterns == nil {
		return nil, errors.New("pattern store is required")
	}
	if activities == nil {
		return nil, errors.New("activity store is required")
	}

	svc := &Service{
		patterns:   patterns,
		activities: activities,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SavePattern stores or replaces a child's learned pattern.
func (s *Service) SavePattern(ctx context.Context, pattern *gapfill.ActivityPattern) error {
	if pattern == nil || pattern.ChildID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "pattern with child_id is required")
	}
	if len(pattern.Categories) == 0 || pattern.TypicalSessionMinutes <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "pattern must have categories and a session length")
	}
	if err := s.patterns.Save(ctx, pattern); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save pattern")
	}
	return nil
}

// FillActivityGap synthesizes entries covering [start, end) and appends them
// to the timeline. A child with no learned pattern gets the default pattern.
// Quiet hours lean heavily toward idle; outside them categories follow the
// pattern weights.
func (s *Service) FillActivityGap(ctx context.Context, childID id.ChildID, start, end time.Time) ([]*gapfill.ActivityEntry, error) {
	if childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "gap end must be after start")
	}

	pattern, err := s.patterns.FindByChild(ctx, childID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pattern")
		}
		pattern = gapfill.DefaultPattern(childID)
	}

	var entries []*gapfill.ActivityEntry
	cursor := start
	for cursor.Before(end) {
		duration := s.sessionDuration(pattern)
		if remaining := end.Sub(cursor); duration > remaining {
			duration = remaining
		}

		entries = append(entries, &gapfill.ActivityEntry{
			ChildID:   childID,
			Category:  s.pickCategory(pattern, cursor),
			StartTime: cursor,
			EndTime:   cursor.Add(duration),
			Synthetic: true,
		})
		cursor = cursor.Add(duration)
	}

	if err := s.activities.Append(ctx, entries); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append synthetic entries")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "activity gap filled", "child_id", childID, "entries", len(entries))
	}
	return entries, nil
}

// GetFamilyTimeline returns the timeline in its family-facing shape. The
// projection type has no synthetic field, so real and synthetic entries are
// indistinguishable to the caller.
func (s *Service) GetFamilyTimeline(ctx context.Context, childID id.ChildID, from, to time.Time) ([]gapfill.FamilyActivityEntry, error) {
	if childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	entries, err := s.activities.ListByChild(ctx, childID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list timeline")
	}

	// Real entries inside an applied privacy gap never reach the family;
	// only the synthetic cover for the window does.
	if s.privacyGaps != nil {
		kept := make([]*gapfill.ActivityEntry, 0, len(entries))
		for _, e := range entries {
			if e.Synthetic {
				kept = append(kept, e)
				continue
			}
			gapped, err := s.privacyGaps.IsPrivacyGapped(ctx, childID, e.StartTime)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check privacy gap")
			}
			if !gapped {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	return gapfill.FamilyView(entries), nil
}

func (s *Service) sessionDuration(pattern *gapfill.ActivityPattern) time.Duration {
	typical := time.Duration(pattern.TypicalSessionMinutes) * time.Minute
	factor := jitterFloor + jitterSpan*s.rng.Float64()
	return time.Duration(float64(typical) * factor)
}

func (s *Service) pickCategory(pattern *gapfill.ActivityPattern, at time.Time) string {
	if pattern.InQuietHours(at) && s.rng.Float64() < quietIdleBias {
		return "idle"
	}

	total := 0
	for _, c := range pattern.Categories {
		total += c.Weight
	}
	if total <= 0 {
		return "idle"
	}
	pick := s.rng.Intn(total)
	for _, c := range pattern.Categories {
		pick -= c.Weight
		if pick < 0 {
			return c.Category
		}
	}
	return pattern.Categories[len(pattern.Categories)-1].Category
}
