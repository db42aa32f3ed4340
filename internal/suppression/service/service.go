// Package service implements notification and audit trail suppression. When
// in doubt it suppresses: a notification that slips out during a crisis can
// put a child at risk, a notification held too long cannot.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"beacon/internal/suppression"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	pstrings "beacon/pkg/platform/strings"
)

// SuppressionStore persists active suppressions.
type SuppressionStore interface {
	Create(ctx context.Context, sup *suppression.NotificationSuppression) error
	ListActiveByFamily(ctx context.Context, familyID id.FamilyID, now time.Time) ([]*suppression.NotificationSuppression, error)
	ExtendBySignal(ctx context.Context, signalID id.SignalID, until time.Time) (int, error)
	DeactivateBySignal(ctx context.Context, signalID id.SignalID) (int, error)
}

type Service struct {
	store  SuppressionStore
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store SuppressionStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("suppression store is required")
	}

	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateSuppression registers a filter on the family's outbound surface.
//
// Errors: CodeInvalidInput on missing family, unknown type, or an expiry that
// is not in the future.
func (s *Service) CreateSuppression(ctx context.Context, familyID id.FamilyID, signalID id.SignalID, supType id.SuppressionType, expiresAt time.Time) (*suppression.NotificationSuppression, error) {
	if familyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "family_id is required")
	}
	if !supType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid suppression type")
	}
	now := s.now()
	if !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "expiry must be in the future")
	}

	sup := &suppression.NotificationSuppression{
		ID:        id.NewSuppressionID(),
		FamilyID:  familyID,
		SignalID:  signalID,
		Type:      supType,
		ExpiresAt: expiresAt,
		Active:    true,
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, sup); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create suppression")
	}
	return sup, nil
}

// ShouldSuppressNotification decides whether a notification must be held. An
// active "all" suppression holds everything for the family; "signal_related"
// holds only notifications derived from a signal.
func (s *Service) ShouldSuppressNotification(ctx context.Context, n suppression.Notification) (bool, error) {
	active, err := s.store.ListActiveByFamily(ctx, n.FamilyID, s.now())
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load suppressions")
	}

	for _, sup := range active {
		switch sup.Type {
		case id.SuppressAll:
			return true, nil
		case id.SuppressSignalRelated:
			if n.SignalRelated {
				return true, nil
			}
		}
	}
	return false, nil
}

// FilterNotificationRecipients strips every recipient while any "all"
// suppression is in effect. Partial delivery is not a thing: either the
// family surface is silent or it is not.
func (s *Service) FilterNotificationRecipients(ctx context.Context, familyID id.FamilyID, recipients []string) ([]string, error) {
	active, err := s.store.ListActiveByFamily(ctx, familyID, s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load suppressions")
	}

	for _, sup := range active {
		if sup.Type == id.SuppressAll {
			if s.logger != nil {
				s.logger.InfoContext(ctx, "recipients filtered by suppression", "dropped", len(recipients))
			}
			return []string{}, nil
		}
	}
	return pstrings.DedupeAndTrim(recipients), nil
}

// SuppressAuditEntry returns nil when the family-visible audit entry must not
// be written. The compliance audit log never flows through here.
func (s *Service) SuppressAuditEntry(ctx context.Context, entry *suppression.AuditTrailEntry) (*suppression.AuditTrailEntry, error) {
	if entry == nil {
		return nil, nil
	}
	active, err := s.store.ListActiveByFamily(ctx, entry.FamilyID, s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load suppressions")
	}

	for _, sup := range active {
		switch sup.Type {
		case id.SuppressAll, id.SuppressAuditEntries:
			return nil, nil
		case id.SuppressSignalRelated:
			if entry.SignalRelated {
				return nil, nil
			}
		}
	}
	return entry, nil
}

// ExtendForSignal pushes every active suppression anchored to the signal
// forward to at least the given expiry. The blackout controller calls this on
// extension so a suppression never lapses inside the window it guards.
func (s *Service) ExtendForSignal(ctx context.Context, signalID id.SignalID, until time.Time) (int, error) {
	if signalID.IsNil() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	n, err := s.store.ExtendBySignal(ctx, signalID, until)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to extend suppressions")
	}
	if n > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "suppressions extended", "signal_id", signalID, "count", n, "until", until)
	}
	return n, nil
}

// DeactivateForSignal lifts every suppression anchored to the signal. The
// blackout completion worker calls this when the window closes.
func (s *Service) DeactivateForSignal(ctx context.Context, signalID id.SignalID) (int, error) {
	if signalID.IsNil() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	n, err := s.store.DeactivateBySignal(ctx, signalID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate suppressions")
	}
	if n > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "suppressions deactivated", "signal_id", signalID, "count", n)
	}
	return n, nil
}
