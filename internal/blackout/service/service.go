// Package service implements blackout window management. A blackout starts
// when a crisis signal is isolated and holds the family-facing product silent
// until responders decide otherwise.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"beacon/internal/blackout"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	audit "beacon/pkg/platform/audit"
	"beacon/pkg/platform/sentinel"
)

// DefaultDuration is the blackout window applied when no override is
// configured.
const DefaultDuration = 48 * time.Hour

// BlackoutStore persists blackout windows.
type BlackoutStore interface {
	Create(ctx context.Context, b *blackout.Blackout) error
	FindByID(ctx context.Context, blackoutID id.BlackoutID) (*blackout.Blackout, error)
	FindActiveByFamily(ctx context.Context, familyID id.FamilyID) (*blackout.Blackout, error)
	FindActiveBySignal(ctx context.Context, signalID id.SignalID) (*blackout.Blackout, error)
	Update(ctx context.Context, b *blackout.Blackout) error
	ListDue(ctx context.Context, now time.Time) ([]*blackout.Blackout, error)
	ListUncompleted(ctx context.Context) ([]*blackout.Blackout, error)
}

// AuditPublisher records blackout lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SuppressionExtender pushes the suppressions anchored to a signal forward so
// their lifetime keeps matching the blackout they guard.
type SuppressionExtender interface {
	ExtendForSignal(ctx context.Context, signalID id.SignalID, until time.Time) (int, error)
}

type Service struct {
	store        BlackoutStore
	auditor      AuditPublisher
	suppressions SuppressionExtender
	logger       *slog.Logger
	duration     time.Duration
	now          func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

// WithSuppressionExtender keeps notification suppressions in lockstep with
// window extensions.
func WithSuppressionExtender(extender SuppressionExtender) Option {
	return func(s *Service) {
		s.suppressions = extender
	}
}

// WithDuration overrides the default 48 hour window.
func WithDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.duration = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store BlackoutStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("blackout store is required")
	}

	svc := &Service{store: store, duration: DefaultDuration, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateBlackout opens a window for the family anchored to the signal that
// triggered it.
func (s *Service) CreateBlackout(ctx context.Context, familyID id.FamilyID, signalID id.SignalID) (*blackout.Blackout, error) {
	if familyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "family_id is required")
	}
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}

	now := s.now()
	b := &blackout.Blackout{
		ID:        id.NewBlackoutID(),
		FamilyID:  familyID,
		SignalID:  signalID,
		StartTime: now,
		EndTime:   now.Add(s.duration),
		Active:    true,
		CreatedAt: now,
	}

	if err := s.store.Create(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create blackout")
	}

	s.emit(ctx, audit.Event{
		SignalID: signalID,
		Action:   string(audit.EventBlackoutCreated),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "blackout created", "blackout_id", b.ID, "signal_id", signalID, "ends_at", b.EndTime)
	}
	return b, nil
}

// GetActiveBlackout returns the family's current window.
//
// Errors: CodeNoActiveBlackout when the family has none.
func (s *Service) GetActiveBlackout(ctx context.Context, familyID id.FamilyID) (*blackout.Blackout, error) {
	if familyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "family_id is required")
	}
	b, err := s.store.FindActiveByFamily(ctx, familyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNoActiveBlackout, "No active blackout found for family")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load blackout")
	}
	return b, nil
}

// IsBlackoutActive reports whether the family is currently inside a window.
func (s *Service) IsBlackoutActive(ctx context.Context, familyID id.FamilyID) (bool, error) {
	b, err := s.GetActiveBlackout(ctx, familyID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNoActiveBlackout) {
			return false, nil
		}
		return false, err
	}
	return b.IsActiveAt(s.now()), nil
}

// ExtendBlackoutPeriod pushes the family's active window forward by the given
// number of hours. Extensions compound: extending by h1 then h2 ends exactly
// h1+h2 later than the original end.
//
// Errors: CodeInvalidInput on non-positive hours; CodeNoActiveBlackout when
// the family has no active window.
func (s *Service) ExtendBlackoutPeriod(ctx context.Context, familyID id.FamilyID, additionalHours int) (*blackout.Blackout, error) {
	if additionalHours <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "additional hours must be positive")
	}

	b, err := s.GetActiveBlackout(ctx, familyID)
	if err != nil {
		return nil, err
	}

	b.EndTime = b.EndTime.Add(time.Duration(additionalHours) * time.Hour)
	b.Extended++

	if err := s.store.Update(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to extend blackout")
	}
	if err := s.extendSuppressions(ctx, b); err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		SignalID: b.SignalID,
		Action:   string(audit.EventBlackoutExtended),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "blackout extended", "blackout_id", b.ID, "additional_hours", additionalHours, "ends_at", b.EndTime)
	}
	return b, nil
}

// ExtendBlackoutForSignal extends the window anchored to a signal. Crisis
// partner referrals extend this way because partners know the signal, never
// the family.
func (s *Service) ExtendBlackoutForSignal(ctx context.Context, signalID id.SignalID, additionalHours int) (*blackout.Blackout, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if additionalHours <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "additional hours must be positive")
	}

	b, err := s.store.FindActiveBySignal(ctx, signalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNoActiveBlackout, "No active blackout found for signal")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load blackout")
	}

	b.EndTime = b.EndTime.Add(time.Duration(additionalHours) * time.Hour)
	b.Extended++
	if err := s.store.Update(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to extend blackout")
	}
	if err := s.extendSuppressions(ctx, b); err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		SignalID: b.SignalID,
		Action:   string(audit.EventBlackoutExtended),
	})
	return b, nil
}

// extendSuppressions pushes the signal's suppressions to the new end time. A
// failure is surfaced to the caller: a retried extension only lengthens the
// window further, which is the safe direction.
func (s *Service) extendSuppressions(ctx context.Context, b *blackout.Blackout) error {
	if s.suppressions == nil {
		return nil
	}
	if _, err := s.suppressions.ExtendForSignal(ctx, b.SignalID, b.EndTime); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to extend suppressions with blackout")
	}
	return nil
}

// ExpireDue deactivates every window whose end time has passed and returns
// all expired windows whose post-blackout steps have not completed yet. A
// window stays in the returned set across sweeps until MarkCompleted is
// called, so a transient completion failure is retried rather than lost.
func (s *Service) ExpireDue(ctx context.Context) ([]*blackout.Blackout, error) {
	due, err := s.store.ListDue(ctx, s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list due blackouts")
	}

	for _, b := range due {
		b.Active = false
		if err := s.store.Update(ctx, b); err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "failed to expire blackout", "blackout_id", b.ID, "error", err)
			}
			continue
		}
		s.emit(ctx, audit.Event{
			SignalID: b.SignalID,
			Action:   string(audit.EventBlackoutExpired),
		})
	}

	pending, err := s.store.ListUncompleted(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list uncompleted blackouts")
	}
	return pending, nil
}

// MarkCompleted records that the post-blackout steps finished. Idempotent:
// completing a completed window is a no-op.
func (s *Service) MarkCompleted(ctx context.Context, blackoutID id.BlackoutID) error {
	b, err := s.store.FindByID(ctx, blackoutID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "blackout not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load blackout")
	}
	if b.Completed {
		return nil
	}

	now := s.now()
	b.Completed = true
	b.CompletedAt = &now
	if err := s.store.Update(ctx, b); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark blackout completed")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
