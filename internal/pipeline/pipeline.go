// Package pipeline composes the crisis signal flow: a raised signal is keyed,
// encrypted, vaulted, put under retention, and its family surface is
// blacked out, all in one pass.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"beacon/internal/blackout"
	blkservice "beacon/internal/blackout/service"
	"beacon/internal/ingest"
	ingestservice "beacon/internal/ingest/service"
	isoservice "beacon/internal/isolation/service"
	"beacon/internal/platform/metrics"
	pgservice "beacon/internal/privacygap/service"
	retservice "beacon/internal/retention/service"
	supservice "beacon/internal/suppression/service"
	vaultservice "beacon/internal/vault/service"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// Service runs the end-to-end isolation flow. It owns no state of its own;
// every step is one of the feature services, in a fixed order.
type Service struct {
	signals      *ingestservice.Service
	keys         *isoservice.Service
	vault        *vaultservice.Service
	retention    *retservice.Service
	blackouts    *blkservice.Service
	suppressions *supservice.Service
	privacyGaps  *pgservice.Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(
	signals *ingestservice.Service,
	keys *isoservice.Service,
	vaultSvc *vaultservice.Service,
	retentionSvc *retservice.Service,
	blackouts *blkservice.Service,
	suppressions *supservice.Service,
	privacyGaps *pgservice.Service,
	opts ...Option,
) (*Service, error) {
	if signals == nil || keys == nil || vaultSvc == nil || retentionSvc == nil ||
		blackouts == nil || suppressions == nil || privacyGaps == nil {
		return nil, errors.New("all pipeline services are required")
	}

	svc := &Service{
		signals:      signals,
		keys:         keys,
		vault:        vaultSvc,
		retention:    retentionSvc,
		blackouts:    blackouts,
		suppressions: suppressions,
		privacyGaps:  privacyGaps,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IsolateParams carries everything the flow needs about the raised signal.
type IsolateParams struct {
	ChildID       id.ChildID
	FamilyID      id.FamilyID
	TriggerMethod id.TriggerMethod
	DeviceID      id.DeviceID
	UserAgent     string
	IsOffline     bool
	Message       string
	Jurisdiction  id.Jurisdiction
}

// IsolateResult is what the flow produced. The family identifier appears here
// for blackout bookkeeping only; nothing stored alongside the payload carries
// it.
type IsolateResult struct {
	Signal   *ingest.SafetySignal
	KeyID    id.KeyID
	Blackout *blackout.Blackout
}

// signalPayload is the encrypted contents of the vault record. Family
// identifiers are deliberately absent.
type signalPayload struct {
	Trigger  id.TriggerMethod `json:"trigger"`
	Platform id.Platform      `json:"platform"`
	Message  string           `json:"message,omitempty"`
}

// IsolateSignal runs the full flow for a raised signal. The blackout and the
// all-notifications suppression share one window, and the privacy gap is
// staged over it for the completion worker to apply.
func (s *Service) IsolateSignal(ctx context.Context, params IsolateParams) (*IsolateResult, error) {
	if params.FamilyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "family_id is required")
	}

	signal, err := s.signals.CreateSafetySignal(ctx, ingestservice.CreateParams{
		ChildID:       params.ChildID,
		TriggerMethod: params.TriggerMethod,
		DeviceID:      params.DeviceID,
		UserAgent:     params.UserAgent,
		IsOffline:     params.IsOffline,
	})
	if err != nil {
		return nil, err
	}

	key, err := s.keys.GenerateKey(ctx, signal.ID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(signalPayload{
		Trigger:  signal.TriggerMethod,
		Platform: signal.Platform,
		Message:  params.Message,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to serialize payload")
	}
	ciphertext, keyID, err := s.keys.Encrypt(ctx, signal.ID, payload)
	if err != nil {
		return nil, err
	}

	if _, err := s.vault.StoreIsolatedSignal(ctx, signal.ID, params.ChildID, ciphertext, keyID, params.Jurisdiction); err != nil {
		return nil, err
	}
	if _, err := s.retention.CreateRetentionStatus(ctx, signal.ID, params.Jurisdiction); err != nil {
		return nil, err
	}

	b, err := s.blackouts.CreateBlackout(ctx, params.FamilyID, signal.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.suppressions.CreateSuppression(ctx, params.FamilyID, signal.ID, id.SuppressAll, b.EndTime); err != nil {
		return nil, err
	}
	if _, err := s.privacyGaps.CreateSignalPrivacyGap(ctx, signal.ID, params.ChildID, b.StartTime, b.EndTime); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SignalsCreated.Inc()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "signal isolated",
			"signal_id", signal.ID,
			"blackout_id", b.ID,
			"blackout_ends", b.EndTime,
		)
	}
	return &IsolateResult{Signal: signal, KeyID: key.ID, Blackout: b}, nil
}

// BlackoutExtenderAdapter exposes the blackout service under the narrow
// extension interface the escalation service depends on.
type BlackoutExtenderAdapter struct {
	Blackouts *blkservice.Service
}

func (a BlackoutExtenderAdapter) ExtendBlackoutForSignal(ctx context.Context, signalID id.SignalID, additionalHours int) error {
	_, err := a.Blackouts.ExtendBlackoutForSignal(ctx, signalID, additionalHours)
	return err
}
