// Package service records crisis partner escalations against isolated
// signals and seals them when the partner's involvement concludes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"beacon/internal/escalation"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	audit "beacon/pkg/platform/audit"
	"beacon/pkg/platform/sentinel"
)

// ReferralExtensionHours is added to the signal's blackout when a partner
// refers the case to law enforcement. Investigations need the family surface
// silent for longer than the default window.
const ReferralExtensionHours = 24

// EscalationStore persists escalations.
type EscalationStore interface {
	Create(ctx context.Context, esc *escalation.SignalEscalation) error
	FindByID(ctx context.Context, escalationID id.EscalationID) (*escalation.SignalEscalation, error)
	Update(ctx context.Context, esc *escalation.SignalEscalation) error
	ListBySignal(ctx context.Context, signalID id.SignalID) ([]*escalation.SignalEscalation, error)
}

// PartnerDirectory resolves crisis partners. The pipeline only reads it;
// partner onboarding lives elsewhere.
type PartnerDirectory interface {
	GetPartner(ctx context.Context, partnerID id.PartnerID) (*escalation.CrisisPartner, error)
}

// BlackoutExtender pushes a signal's blackout window forward.
type BlackoutExtender interface {
	ExtendBlackoutForSignal(ctx context.Context, signalID id.SignalID, additionalHours int) error
}

// AuditPublisher records escalation events. Both recording and sealing are
// compliance events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store    EscalationStore
	partners PartnerDirectory
	extender BlackoutExtender
	auditor  AuditPublisher
	logger   *slog.Logger
	now      func() time.Time
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

// WithBlackoutExtender wires the blackout extension used for law enforcement
// referrals.
func WithBlackoutExtender(extender BlackoutExtender) Option {
	return func(s *Service) {
		s.extender = extender
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store EscalationStore, partners PartnerDirectory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("escalation store is required")
	}
	if partners == nil {
		return nil, errors.New("partner directory is required")
	}

	svc := &Service{store: store, partners: partners, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RecordParams describes one escalation action. Signal, partner, type, and
// jurisdiction are all mandatory.
type RecordParams struct {
	SignalID     id.SignalID
	PartnerID    id.PartnerID
	Type         id.EscalationType
	Jurisdiction id.Jurisdiction
	Details      string
}

// RecordEscalation writes one escalation action. Every call produces a new
// escalation with its own ID, repeated identical inputs included. A law
// enforcement referral also extends the signal's blackout window.
//
// Errors: CodeInvalidInput when any field is missing or the type is unknown;
// CodeNotFound when the partner is not in the directory; CodeForbidden when
// the partner is inactive.
func (s *Service) RecordEscalation(ctx context.Context, params RecordParams) (*escalation.SignalEscalation, error) {
	if params.SignalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if params.PartnerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner_id is required")
	}
	if !params.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid escalation type")
	}
	if params.Jurisdiction == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "jurisdiction is required")
	}
	if params.Details == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "details are required")
	}

	partner, err := s.partners.GetPartner(ctx, params.PartnerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "crisis partner not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve crisis partner")
	}
	if !partner.Active {
		return nil, dErrors.New(dErrors.CodeForbidden, "crisis partner is not active")
	}

	esc := &escalation.SignalEscalation{
		ID:           id.NewEscalationID(),
		SignalID:     params.SignalID,
		PartnerID:    params.PartnerID,
		Type:         params.Type,
		Jurisdiction: params.Jurisdiction,
		Details:      params.Details,
		CreatedAt:    s.now(),
	}
	if err := s.store.Create(ctx, esc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record escalation")
	}

	if err := s.emit(ctx, audit.Event{
		SignalID:   params.SignalID,
		Action:     string(audit.EventEscalationRecorded),
		OperatorID: partnerOperator(params.PartnerID),
		Reason:     string(params.Type),
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "escalation audit failed")
	}

	if params.Type == id.EscalationLawEnforcementReferral && s.extender != nil {
		if err := s.extender.ExtendBlackoutForSignal(ctx, params.SignalID, ReferralExtensionHours); err != nil {
			// The referral stands even when no window is left to extend.
			if s.logger != nil {
				s.logger.WarnContext(ctx, "referral could not extend blackout", "signal_id", params.SignalID, "error", err)
			}
		}
	}

	return esc, nil
}

// GetEscalation loads one escalation.
func (s *Service) GetEscalation(ctx context.Context, escalationID id.EscalationID) (*escalation.SignalEscalation, error) {
	if escalationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "escalation_id is required")
	}
	esc, err := s.store.FindByID(ctx, escalationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "escalation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load escalation")
	}
	return esc, nil
}

// ListEscalations returns a signal's escalations in recording order.
func (s *Service) ListEscalations(ctx context.Context, signalID id.SignalID) ([]*escalation.SignalEscalation, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	escalations, err := s.store.ListBySignal(ctx, signalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list escalations")
	}
	return escalations, nil
}

// SealEscalation closes an escalation permanently. Sealing is one-way; there
// is no unseal.
//
// Errors: CodeAlreadySealed with message "Escalation already sealed" on a
// repeat seal; CodeNotFound when the escalation does not exist.
func (s *Service) SealEscalation(ctx context.Context, escalationID id.EscalationID, sealedBy id.OperatorID) (*escalation.SignalEscalation, error) {
	if sealedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "operator_id is required")
	}

	esc, err := s.GetEscalation(ctx, escalationID)
	if err != nil {
		return nil, err
	}
	if esc.Sealed {
		return nil, dErrors.New(dErrors.CodeAlreadySealed, "Escalation already sealed")
	}

	now := s.now()
	esc.Sealed = true
	esc.SealedAt = &now

	if err := s.emit(ctx, audit.Event{
		SignalID:   esc.SignalID,
		Action:     string(audit.EventEscalationSealed),
		OperatorID: sealedBy,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "seal audit failed")
	}

	if err := s.store.Update(ctx, esc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal escalation")
	}
	return esc, nil
}

func partnerOperator(partnerID id.PartnerID) id.OperatorID {
	return id.OperatorID("partner:" + string(partnerID))
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, event)
}
