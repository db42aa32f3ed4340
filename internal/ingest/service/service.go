// Package service implements signal ingest: the sole constructor of safety
// signals, the strict status state machine, and offline queue promotion.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"beacon/internal/ingest"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/sentinel"
)

// SignalStore persists safety signals.
type SignalStore interface {
	Save(ctx context.Context, signal *ingest.SafetySignal) error
	FindByID(ctx context.Context, signalID id.SignalID) (*ingest.SafetySignal, error)
	Update(ctx context.Context, signal *ingest.SafetySignal) error
	Delete(ctx context.Context, signalID id.SignalID) error
}

// OfflineQueue persists entries for signals created without connectivity.
type OfflineQueue interface {
	Enqueue(ctx context.Context, entry *ingest.OfflineQueueEntry) error
	ListByChild(ctx context.Context, childID id.ChildID) ([]*ingest.OfflineQueueEntry, error)
	Remove(ctx context.Context, signalID id.SignalID) error
}

type Service struct {
	signals SignalStore
	queue   OfflineQueue
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(signals SignalStore, queue OfflineQueue, opts ...Option) (*Service, error) {
	if signals == nil {
		return nil, errors.New("signal store is required")
	}
	if queue == nil {
		return nil, errors.New("offline queue is required")
	}

	svc := &Service{
		signals: signals,
		queue:   queue,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateParams carries the inputs for signal creation.
type CreateParams struct {
	ChildID       id.ChildID
	TriggerMethod id.TriggerMethod
	DeviceID      id.DeviceID
	UserAgent     string
	IsOffline     bool
}

// CreateSafetySignal is the sole constructor of SafetySignal records. When
// the device is offline the signal starts queued and an offline queue entry
// is written in the same operation.
func (s *Service) CreateSafetySignal(ctx context.Context, params CreateParams) (*ingest.SafetySignal, error) {
	if params.ChildID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	if params.TriggerMethod == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "trigger_method is required")
	}

	status := id.SignalPending
	if params.IsOffline {
		status = id.SignalQueued
	}

	signal := &ingest.SafetySignal{
		ID:            id.NewSignalID(),
		ChildID:       params.ChildID,
		TriggerMethod: params.TriggerMethod,
		Platform:      ingest.DetectPlatform(params.UserAgent),
		Status:        status,
		TriggeredAt:   s.now(),
		DeviceID:      params.DeviceID,
		IsOffline:     params.IsOffline,
	}

	if err := s.signals.Save(ctx, signal); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save safety signal")
	}

	if params.IsOffline {
		entry := &ingest.OfflineQueueEntry{
			SignalID:   signal.ID,
			ChildID:    signal.ChildID,
			EnqueuedAt: s.now(),
		}
		if err := s.queue.Enqueue(ctx, entry); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue offline signal")
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "safety signal created",
			"signal_id", signal.ID,
			"status", signal.Status,
			"offline", signal.IsOffline,
		)
	}

	return signal, nil
}

// GetSignal loads a signal by ID.
func (s *Service) GetSignal(ctx context.Context, signalID id.SignalID) (*ingest.SafetySignal, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	signal, err := s.signals.FindByID(ctx, signalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "signal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load signal")
	}
	return signal, nil
}

// TransitionStatus moves a signal to the next lifecycle status.
//
// Invalid transitions return (nil, nil) rather than an error: callers retry
// delivery paths at least once, and a retried transition that already
// happened must stay a harmless no-op.
func (s *Service) TransitionStatus(ctx context.Context, signalID id.SignalID, next id.SignalStatus) (*ingest.SafetySignal, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if !next.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid signal status")
	}

	signal, err := s.GetSignal(ctx, signalID)
	if err != nil {
		return nil, err
	}

	if !signal.Status.CanTransitionTo(next) {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "rejected signal transition",
				"signal_id", signalID,
				"from", signal.Status,
				"to", next,
			)
		}
		return nil, nil
	}

	signal.Status = next
	if next == id.SignalDelivered {
		deliveredAt := s.now()
		signal.DeliveredAt = &deliveredAt
	}

	if err := s.signals.Update(ctx, signal); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update signal status")
	}
	return signal, nil
}

// ProcessOfflineQueue promotes a child's queued signals to pending once
// connectivity returns and removes their queue entries. Idempotent: entries
// already promoted or removed are no-ops on repeat calls.
func (s *Service) ProcessOfflineQueue(ctx context.Context, childID id.ChildID) (int, error) {
	if childID.IsNil() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}

	entries, err := s.queue.ListByChild(ctx, childID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list offline queue")
	}

	processed := 0
	for _, entry := range entries {
		promoted, err := s.TransitionStatus(ctx, entry.SignalID, id.SignalPending)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				// Signal purged while queued; drop the stale entry.
				_ = s.queue.Remove(ctx, entry.SignalID)
				continue
			}
			return processed, err
		}
		if err := s.queue.Remove(ctx, entry.SignalID); err != nil {
			return processed, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove queue entry")
		}
		if promoted != nil {
			processed++
		}
	}

	if s.logger != nil && processed > 0 {
		s.logger.InfoContext(ctx, "offline queue processed", "child_id", childID, "promoted", processed)
	}
	return processed, nil
}

// DeleteSignal removes a signal record outright. Only the retention sweep
// calls this, after the deletion gate has cleared the signal.
func (s *Service) DeleteSignal(ctx context.Context, signalID id.SignalID) error {
	if signalID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if err := s.signals.Delete(ctx, signalID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "signal not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete signal")
	}
	return nil
}
