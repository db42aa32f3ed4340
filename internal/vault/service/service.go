package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"beacon/internal/vault"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/sentinel"
)

// VaultStore persists isolated signal records.
type VaultStore interface {
	Create(ctx context.Context, record *vault.IsolatedSignal) error
	FindBySignal(ctx context.Context, signalID id.SignalID) (*vault.IsolatedSignal, error)
	Delete(ctx context.Context, signalID id.SignalID) error
}

// DeletionGate decides whether a signal may be deleted. The retention engine
// implements this; the vault refuses deletes the gate blocks even if a caller
// tries to go around the retention worker.
type DeletionGate interface {
	CanDeleteSignal(ctx context.Context, signalID id.SignalID) (canDelete bool, reason string, err error)
}

type Service struct {
	store  VaultStore
	gate   DeletionGate
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store VaultStore, gate DeletionGate, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("vault store is required")
	}
	if gate == nil {
		return nil, errors.New("deletion gate is required")
	}

	svc := &Service{store: store, gate: gate}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// StoreIsolatedSignal writes the encrypted payload record. No update path
// exists; a second write for the same signal is a conflict.
func (s *Service) StoreIsolatedSignal(ctx context.Context, signalID id.SignalID, childID id.ChildID, encryptedPayload []byte, keyID id.KeyID, jurisdiction id.Jurisdiction) (*vault.IsolatedSignal, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	if len(encryptedPayload) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "encrypted payload is required")
	}
	if keyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "key_id is required")
	}
	if jurisdiction == "" {
		jurisdiction = id.JurisdictionDefault
	}

	record := &vault.IsolatedSignal{
		SignalID:         signalID,
		ChildID:          childID,
		EncryptedPayload: encryptedPayload,
		KeyID:            keyID,
		Jurisdiction:     jurisdiction,
		StoredAt:         time.Now(),
	}

	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "isolated signal already stored")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store isolated signal")
	}
	return record, nil
}

// GetIsolatedSignal loads the encrypted record for disclosure workflows.
func (s *Service) GetIsolatedSignal(ctx context.Context, signalID id.SignalID) (*vault.IsolatedSignal, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	record, err := s.store.FindBySignal(ctx, signalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "isolated signal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load isolated signal")
	}
	return record, nil
}

// DeleteIsolatedSignal removes a record after consulting the deletion gate.
//
// Errors: CodeLegalHold / CodeForbidden when the gate blocks deletion;
// CodeNotFound when no record exists.
func (s *Service) DeleteIsolatedSignal(ctx context.Context, signalID id.SignalID) error {
	if signalID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}

	canDelete, reason, err := s.gate.CanDeleteSignal(ctx, signalID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "deletion gate check failed")
	}
	if !canDelete {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "vault delete blocked", "signal_id", signalID, "reason", reason)
		}
		return dErrors.New(dErrors.CodeForbidden, reason)
	}

	if err := s.store.Delete(ctx, signalID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "isolated signal not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete isolated signal")
	}
	return nil
}
