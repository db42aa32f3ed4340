// Package service implements permanent privacy gaps over crisis windows.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"beacon/internal/privacygap"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	audit "beacon/pkg/platform/audit"
	"beacon/pkg/platform/sentinel"
)

// PrivacyGapStore persists gaps and the masked records they produce.
type PrivacyGapStore interface {
	CreateGap(ctx context.Context, gap *privacygap.SignalPrivacyGap) error
	FindGapBySignal(ctx context.Context, signalID id.SignalID) (*privacygap.SignalPrivacyGap, error)
	MarkApplied(ctx context.Context, gap *privacygap.SignalPrivacyGap, record *privacygap.MaskedDataRecord) error
	ListMaskedByChild(ctx context.Context, childID id.ChildID) ([]*privacygap.MaskedDataRecord, error)
	ListAppliedGapsByChild(ctx context.Context, childID id.ChildID) ([]*privacygap.SignalPrivacyGap, error)
}

// AuditPublisher records gap applications.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   PrivacyGapStore
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

func New(store PrivacyGapStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("privacy gap store is required")
	}

	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateSignalPrivacyGap registers the window to be masked once the signal's
// blackout completes. One gap per signal.
func (s *Service) CreateSignalPrivacyGap(ctx context.Context, signalID id.SignalID, childID id.ChildID, start, end time.Time) (*privacygap.SignalPrivacyGap, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "gap end must be after start")
	}

	gap := &privacygap.SignalPrivacyGap{
		SignalID:  signalID,
		ChildID:   childID,
		StartTime: start,
		EndTime:   end,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateGap(ctx, gap); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "signal already has a privacy gap")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create privacy gap")
	}
	return gap, nil
}

// ApplyPostBlackoutPrivacyGap makes the gap durable: it writes exactly one
// masked data record for the window and flips the gap to applied. Calling it
// again for the same signal is a no-op, no second record appears.
func (s *Service) ApplyPostBlackoutPrivacyGap(ctx context.Context, signalID id.SignalID) (*privacygap.SignalPrivacyGap, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}

	gap, err := s.store.FindGapBySignal(ctx, signalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no privacy gap for signal")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load privacy gap")
	}
	if gap.Applied {
		return gap, nil
	}

	now := s.now()
	gap.Applied = true
	gap.AppliedAt = &now
	record := &privacygap.MaskedDataRecord{
		ChildID:     gap.ChildID,
		PeriodStart: gap.StartTime,
		PeriodEnd:   gap.EndTime,
		Reason:      privacygap.MaskReasonBlackout,
		CreatedAt:   now,
	}

	if err := s.store.MarkApplied(ctx, gap, record); err != nil {
		// A concurrent apply got there first; the gap is applied either way.
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return s.store.FindGapBySignal(ctx, signalID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply privacy gap")
	}

	s.emit(ctx, audit.Event{
		SignalID: signalID,
		Action:   string(audit.EventPrivacyGapMasked),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "privacy gap applied", "signal_id", signalID)
	}
	return gap, nil
}

// IsPrivacyGapped reports whether the instant falls inside any applied gap
// for the child.
func (s *Service) IsPrivacyGapped(ctx context.Context, childID id.ChildID, at time.Time) (bool, error) {
	if childID.IsNil() {
		return false, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	gaps, err := s.store.ListAppliedGapsByChild(ctx, childID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list privacy gaps")
	}
	for _, gap := range gaps {
		if gap.Covers(at) {
			return true, nil
		}
	}
	return false, nil
}

// ListMaskedRecords returns the child's masked data tombstones.
func (s *Service) ListMaskedRecords(ctx context.Context, childID id.ChildID) ([]*privacygap.MaskedDataRecord, error) {
	records, err := s.store.ListMaskedByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list masked records")
	}
	return records, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
