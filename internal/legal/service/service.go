// Package service implements the legal request workflow. Every status change
// is a compliance audit event; a fulfillment that cannot be authorized is
// refused with a structured result, never silently dropped.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"beacon/internal/legal"
	"beacon/internal/vault"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	audit "beacon/pkg/platform/audit"
	"beacon/pkg/platform/sentinel"
)

// RefusalNotApproved is returned in FulfillmentResult.Error when fulfillment
// is attempted on a request that has not been approved.
const RefusalNotApproved = "Request must be approved before fulfillment"

// LegalRequestStore persists legal requests.
type LegalRequestStore interface {
	Create(ctx context.Context, req *legal.LegalRequest) error
	FindByID(ctx context.Context, requestID id.RequestID) (*legal.LegalRequest, error)
	Update(ctx context.Context, req *legal.LegalRequest) error
}

// VaultReader loads isolated signal records for disclosure.
type VaultReader interface {
	GetIsolatedSignal(ctx context.Context, signalID id.SignalID) (*vault.IsolatedSignal, error)
}

// PayloadDecryptor opens an isolated signal's ciphertext under a recorded
// authorization identity.
type PayloadDecryptor interface {
	Decrypt(ctx context.Context, signalID id.SignalID, ciphertext []byte, authorizationID id.OperatorID) ([]byte, error)
}

// AuditPublisher records request lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store     LegalRequestStore
	vault     VaultReader
	decryptor PayloadDecryptor
	auditor   AuditPublisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
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

// WithDisclosure wires the vault and decryptor used to assemble fulfillment
// bundles. Without it, fulfillment marks the request but discloses nothing.
func WithDisclosure(vaultReader VaultReader, decryptor PayloadDecryptor) Option {
	return func(s *Service) {
		s.vault = vaultReader
		s.decryptor = decryptor
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store LegalRequestStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("legal request store is required")
	}

	svc := &Service{
		store:  store,
		tracer: otel.Tracer("beacon/legal"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// LogParams identifies the legal instrument behind a request. Every field is
// mandatory: a request that cannot name its agency, jurisdiction, and
// document is not reviewable.
type LogParams struct {
	Type              id.LegalRequestType
	RequestingAgency  string
	Jurisdiction      id.Jurisdiction
	DocumentReference string
	SignalIDs         []id.SignalID
	LoggedBy          id.OperatorID
}

// LogLegalRequest records an incoming request. It enters review immediately;
// nothing is disclosed at intake.
//
// Errors: CodeInvalidInput on unknown type, missing agency, jurisdiction,
// document reference, or operator, or an empty signal list.
func (s *Service) LogLegalRequest(ctx context.Context, params LogParams) (*legal.LegalRequest, error) {
	if !params.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid request type")
	}
	if params.RequestingAgency == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "requesting_agency is required")
	}
	if params.Jurisdiction == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "jurisdiction is required")
	}
	if params.DocumentReference == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "document_reference is required")
	}
	if len(params.SignalIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one signal_id is required")
	}
	for _, signalID := range params.SignalIDs {
		if signalID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id cannot be empty")
		}
	}
	if params.LoggedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "operator_id is required")
	}

	req := &legal.LegalRequest{
		ID:                id.NewRequestID(),
		Type:              params.Type,
		RequestingAgency:  params.RequestingAgency,
		Jurisdiction:      params.Jurisdiction,
		DocumentReference: params.DocumentReference,
		SignalIDs:         append([]id.SignalID(nil), params.SignalIDs...),
		Status:            id.LegalStatusPendingReview,
		LoggedBy:          params.LoggedBy,
		LoggedAt:          s.now(),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to log legal request")
	}

	if err := s.emit(ctx, audit.Event{
		Action:     string(audit.EventLegalRequestLogged),
		OperatorID: params.LoggedBy,
		Reason:     string(params.Type),
		RequestID:  string(req.ID),
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "legal request audit failed")
	}
	return req, nil
}

// GetLegalRequest loads one request.
func (s *Service) GetLegalRequest(ctx context.Context, requestID id.RequestID) (*legal.LegalRequest, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request_id is required")
	}
	req, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "legal request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load legal request")
	}
	return req, nil
}

// ApproveLegalRequest moves a pending request to approved.
//
// Errors: CodeInvalidTransition when the request is not pending review.
func (s *Service) ApproveLegalRequest(ctx context.Context, requestID id.RequestID, reviewedBy id.OperatorID) (*legal.LegalRequest, error) {
	return s.review(ctx, requestID, reviewedBy, id.LegalStatusApproved, nil)
}

// DenyLegalRequest moves a pending request to denied with a reason.
//
// Errors: CodeInvalidInput on missing reason; CodeInvalidTransition when the
// request is not pending review.
func (s *Service) DenyLegalRequest(ctx context.Context, requestID id.RequestID, reviewedBy id.OperatorID, reason string) (*legal.LegalRequest, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "denial reason is required")
	}
	return s.review(ctx, requestID, reviewedBy, id.LegalStatusDenied, &reason)
}

func (s *Service) review(ctx context.Context, requestID id.RequestID, reviewedBy id.OperatorID, target id.LegalRequestStatus, reason *string) (*legal.LegalRequest, error) {
	if reviewedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "operator_id is required")
	}

	req, err := s.GetLegalRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != id.LegalStatusPendingReview {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "request is not pending legal review")
	}

	now := s.now()
	req.Status = target
	req.ReviewedBy = &reviewedBy
	req.ReviewedAt = &now
	req.DenialReason = reason

	if err := s.store.Update(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update legal request")
	}

	action := audit.EventLegalRequestApproved
	if target == id.LegalStatusDenied {
		action = audit.EventLegalRequestDenied
	}
	event := audit.Event{
		Action:     string(action),
		OperatorID: reviewedBy,
		RequestID:  string(req.ID),
	}
	if reason != nil {
		event.Reason = *reason
	}
	if err := s.emit(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "legal request audit failed")
	}
	return req, nil
}

// FulfillLegalRequest discloses the decrypted payloads for an approved
// request. A request in any other status gets a refused result and stays
// exactly as it was; the refusal itself is recorded on the security log.
func (s *Service) FulfillLegalRequest(ctx context.Context, requestID id.RequestID, fulfilledBy id.OperatorID) (*legal.FulfillmentResult, error) {
	ctx, span := s.tracer.Start(ctx, "legal.FulfillLegalRequest")
	defer span.End()

	if fulfilledBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "operator_id is required")
	}

	req, err := s.GetLegalRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.Status != id.LegalStatusApproved {
		s.emitBestEffort(ctx, audit.Event{
			Action:     string(audit.EventFulfillmentRefused),
			OperatorID: fulfilledBy,
			Reason:     RefusalNotApproved,
			Decision:   string(req.Status),
			RequestID:  string(req.ID),
		})
		return &legal.FulfillmentResult{
			Success: false,
			Error:   RefusalNotApproved,
			Request: req,
		}, nil
	}

	disclosures, err := s.assembleDisclosures(ctx, req, fulfilledBy)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req.Status = id.LegalStatusFulfilled
	req.FulfilledBy = &fulfilledBy
	req.FulfilledAt = &now

	if err := s.emit(ctx, audit.Event{
		Action:     string(audit.EventLegalRequestFulfilled),
		OperatorID: fulfilledBy,
		RequestID:  string(req.ID),
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "fulfillment audit failed")
	}

	if err := s.store.Update(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update legal request")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "legal request fulfilled", "request_id", req.ID, "signals", len(req.SignalIDs))
	}
	return &legal.FulfillmentResult{
		Success:     true,
		Request:     req,
		Disclosures: disclosures,
	}, nil
}

// assembleDisclosures decrypts each named signal under the fulfiller's
// authorization. A signal whose record or key is gone is disclosed as
// missing.
func (s *Service) assembleDisclosures(ctx context.Context, req *legal.LegalRequest, fulfilledBy id.OperatorID) ([]legal.Disclosure, error) {
	if s.vault == nil || s.decryptor == nil {
		return nil, nil
	}

	disclosures := make([]legal.Disclosure, 0, len(req.SignalIDs))
	for _, signalID := range req.SignalIDs {
		record, err := s.vault.GetIsolatedSignal(ctx, signalID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				disclosures = append(disclosures, legal.Disclosure{SignalID: signalID, Missing: true})
				continue
			}
			return nil, err
		}

		payload, err := s.decryptor.Decrypt(ctx, signalID, record.EncryptedPayload, fulfilledBy)
		if err != nil {
			return nil, err
		}
		if payload == nil {
			disclosures = append(disclosures, legal.Disclosure{SignalID: signalID, Missing: true})
			continue
		}
		disclosures = append(disclosures, legal.Disclosure{SignalID: signalID, Payload: payload})
	}
	return disclosures, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, event)
}

func (s *Service) emitBestEffort(ctx context.Context, event audit.Event) {
	if err := s.emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
