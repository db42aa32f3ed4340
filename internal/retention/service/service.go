// Package service implements the retention policy engine: jurisdiction-aware
// minimum retention periods and legal holds that gate every signal deletion.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"beacon/internal/retention"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	audit "beacon/pkg/platform/audit"
	"beacon/pkg/platform/sentinel"
)

// RetentionStore persists per-signal retention statuses.
type RetentionStore interface {
	Create(ctx context.Context, status *retention.SignalRetentionStatus) error
	FindBySignal(ctx context.Context, signalID id.SignalID) (*retention.SignalRetentionStatus, error)
	Update(ctx context.Context, status *retention.SignalRetentionStatus) error
	ListDeletable(ctx context.Context, now int64) ([]*retention.SignalRetentionStatus, error)
	Delete(ctx context.Context, signalID id.SignalID) error
}

// AuditPublisher emits audit events for legal hold changes. Hold placement and
// removal are compliance events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   RetentionStore
	auditor AuditPublisher
	logger  *slog.Logger
	now     func() time.Time
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

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store RetentionStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("retention store is required")
	}

	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// GetRetentionPolicy resolves the policy for a jurisdiction. Unknown
// jurisdictions get the conservative default, never an error.
func (s *Service) GetRetentionPolicy(jurisdiction id.Jurisdiction) retention.Policy {
	return retention.PolicyFor(jurisdiction)
}

// CreateRetentionStatus starts the retention clock for a signal. The minimum
// retain-until date is the start date plus the jurisdiction's minimum
// retention period.
//
// Errors: CodeConflict when the signal already has a status.
func (s *Service) CreateRetentionStatus(ctx context.Context, signalID id.SignalID, jurisdiction id.Jurisdiction) (*retention.SignalRetentionStatus, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if jurisdiction == "" {
		jurisdiction = id.JurisdictionDefault
	}

	policy := retention.PolicyFor(jurisdiction)
	start := s.now()
	status := &retention.SignalRetentionStatus{
		SignalID:           signalID,
		Jurisdiction:       jurisdiction,
		RetentionStartDate: start,
		MinimumRetainUntil: start.AddDate(0, 0, policy.MinimumRetentionDays),
	}

	if err := s.store.Create(ctx, status); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "signal already has a retention status")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create retention status")
	}
	return status, nil
}

// GetRetentionStatus loads a signal's retention status.
func (s *Service) GetRetentionStatus(ctx context.Context, signalID id.SignalID) (*retention.SignalRetentionStatus, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	status, err := s.store.FindBySignal(ctx, signalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "retention status not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load retention status")
	}
	return status, nil
}

// CanDeleteSignal is the deletion gate. The checks run in strict order: a
// signal with no retention status is blocked, a legal hold blocks regardless
// of elapsed time, and an unexpired retention period blocks with the days
// remaining. Only a held-free signal past its minimum retain-until date may
// be deleted.
func (s *Service) CanDeleteSignal(ctx context.Context, signalID id.SignalID) (bool, string, error) {
	if signalID.IsNil() {
		return false, "", dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}

	status, err := s.store.FindBySignal(ctx, signalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, "No retention status found for signal", nil
		}
		return false, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load retention status")
	}

	if status.LegalHold {
		reason := "Legal hold active"
		if status.LegalHoldReason != nil {
			reason = fmt.Sprintf("Legal hold active: %s", *status.LegalHoldReason)
		}
		return false, reason, nil
	}

	now := s.now()
	if now.Before(status.MinimumRetainUntil) {
		remaining := int(status.MinimumRetainUntil.Sub(now).Hours()/24) + 1
		return false, fmt.Sprintf("Retention period has not elapsed: %d days remaining", remaining), nil
	}

	return true, "", nil
}

// PlaceLegalHold puts a signal under legal hold. Holds are exclusive: placing
// a second hold on an already-held signal is a conflict, not an update.
//
// Errors: CodeInvalidInput on missing reason or operator; CodeNotFound when
// the signal has no retention status; CodeLegalHold when a hold already exists.
func (s *Service) PlaceLegalHold(ctx context.Context, signalID id.SignalID, reason string, placedBy id.OperatorID) (*retention.SignalRetentionStatus, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "legal hold reason is required")
	}
	if placedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "operator_id is required")
	}

	status, err := s.GetRetentionStatus(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if status.LegalHold {
		return nil, dErrors.New(dErrors.CodeLegalHold, "signal is already under legal hold")
	}

	now := s.now()
	status.LegalHold = true
	status.LegalHoldReason = &reason
	status.HoldPlacedAt = &now
	status.HoldPlacedBy = &placedBy

	if err := s.store.Update(ctx, status); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to place legal hold")
	}

	if err := s.emit(ctx, audit.Event{
		SignalID:   signalID,
		Action:     string(audit.EventLegalHoldPlaced),
		OperatorID: placedBy,
		Reason:     reason,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "legal hold audit failed")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "legal hold placed", "signal_id", signalID, "placed_by", placedBy)
	}
	return status, nil
}

// RemoveLegalHold lifts a hold. The authorization identity is mandatory and
// the removal is a compliance audit event; if the audit write fails the hold
// stays in place.
//
// Errors: CodeInvalidInput on missing authorization; CodeNotFound when the
// signal has no retention status; CodeInvalidTransition when no hold is
// active.
func (s *Service) RemoveLegalHold(ctx context.Context, signalID id.SignalID, authorizationID id.OperatorID) (*retention.SignalRetentionStatus, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if authorizationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "authorization_id is required")
	}

	status, err := s.GetRetentionStatus(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if !status.LegalHold {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "signal is not under legal hold")
	}

	// The audit record is written before the hold is lifted so a persistence
	// failure leaves the hold active.
	if err := s.emit(ctx, audit.Event{
		SignalID:   signalID,
		Action:     string(audit.EventLegalHoldRemoved),
		OperatorID: authorizationID,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "legal hold audit failed")
	}

	status.LegalHold = false
	status.LegalHoldReason = nil
	status.HoldPlacedAt = nil
	status.HoldPlacedBy = nil

	if err := s.store.Update(ctx, status); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove legal hold")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "legal hold removed", "signal_id", signalID, "authorized_by", authorizationID)
	}
	return status, nil
}

// ListDeletableSignals returns statuses eligible for deletion right now. The
// retention sweep worker is the only caller.
func (s *Service) ListDeletableSignals(ctx context.Context) ([]*retention.SignalRetentionStatus, error) {
	statuses, err := s.store.ListDeletable(ctx, s.now().Unix())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deletable signals")
	}
	return statuses, nil
}

// DeleteRetentionStatus removes the status record itself once the signal and
// its key are gone.
func (s *Service) DeleteRetentionStatus(ctx context.Context, signalID id.SignalID) error {
	if err := s.store.Delete(ctx, signalID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "retention status not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete retention status")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, event)
}
