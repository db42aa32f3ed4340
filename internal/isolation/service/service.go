// Package service implements the isolation key service: per-signal encryption
// keys that are never associated with any family identifier.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"beacon/internal/isolation"
	"beacon/internal/isolation/keyring"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	audit "beacon/pkg/platform/audit"
	"beacon/pkg/platform/sentinel"
)

// KeyStore persists signal encryption key records.
type KeyStore interface {
	Save(ctx context.Context, key *isolation.SignalEncryptionKey) error
	FindByID(ctx context.Context, keyID id.KeyID) (*isolation.SignalEncryptionKey, error)
	FindBySignal(ctx context.Context, signalID id.SignalID) (*isolation.SignalEncryptionKey, error)
	Delete(ctx context.Context, keyID id.KeyID) error
}

// AuditPublisher emits audit events for key operations. Decrypts are
// compliance events: if the audit write fails, the decrypt fails.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   KeyStore
	keyring *keyring.Keyring
	auditor AuditPublisher
	logger  *slog.Logger
	tracer  trace.Tracer
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

func New(store KeyStore, kr *keyring.Keyring, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("key store is required")
	}
	if kr == nil {
		return nil, errors.New("keyring is required")
	}

	svc := &Service{
		store:   store,
		keyring: kr,
		tracer:  otel.Tracer("beacon/isolation"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// GenerateKey creates the unique encryption key record for a signal.
//
// Errors: CodeInvalidInput on empty signal ID; CodeConflict when the signal
// already has a key (keys are immutable, one per signal).
func (s *Service) GenerateKey(ctx context.Context, signalID id.SignalID) (*isolation.SignalEncryptionKey, error) {
	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}

	reference, err := keyring.NewReference()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate key reference")
	}

	key := &isolation.SignalEncryptionKey{
		ID:           id.NewKeyID(),
		SignalID:     signalID,
		Algorithm:    isolation.AlgorithmAES256GCM,
		KeyReference: reference,
		CreatedAt:    time.Now(),
	}

	if err := s.store.Save(ctx, key); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "signal already has an encryption key")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save encryption key")
	}

	s.emit(ctx, audit.Event{
		SignalID: signalID,
		Action:   string(audit.EventKeyGenerated),
	})

	return key, nil
}

// GetKey retrieves a key record by ID.
func (s *Service) GetKey(ctx context.Context, keyID id.KeyID) (*isolation.SignalEncryptionKey, error) {
	if keyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "key_id is required")
	}
	key, err := s.store.FindByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "encryption key not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load encryption key")
	}
	return key, nil
}

// DeleteKey removes a key record. Only the retention worker calls this, and
// only alongside deletion of the signal itself.
func (s *Service) DeleteKey(ctx context.Context, keyID id.KeyID) error {
	if keyID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "key_id is required")
	}
	key, err := s.GetKey(ctx, keyID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, keyID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete encryption key")
	}

	s.emit(ctx, audit.Event{
		SignalID: key.SignalID,
		Action:   string(audit.EventKeyDeleted),
	})
	return nil
}

// DeleteKeyForSignal removes the signal's key if one exists. A signal with no
// key is a no-op, so the retention sweep can retry a partial purge.
func (s *Service) DeleteKeyForSignal(ctx context.Context, signalID id.SignalID) error {
	if signalID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	key, err := s.store.FindBySignal(ctx, signalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load encryption key")
	}
	return s.DeleteKey(ctx, key.ID)
}

// Encrypt seals payload under the signal's unique key.
//
// Errors: CodeInvalidInput on empty signal ID or payload; CodeNotFound when
// the signal has no key (generate first).
func (s *Service) Encrypt(ctx context.Context, signalID id.SignalID, payload []byte) (ciphertext []byte, keyID id.KeyID, err error) {
	if signalID.IsNil() {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if len(payload) == 0 {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "payload is required")
	}

	key, err := s.store.FindBySignal(ctx, signalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.New(dErrors.CodeNotFound, "no encryption key for signal")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load encryption key")
	}

	ciphertext, err = s.keyring.Seal(key.KeyReference, payload)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt payload")
	}
	return ciphertext, key.ID, nil
}

// Decrypt opens ciphertext under the signal's key, recording the supplied
// authorization identity for audit.
//
// A missing key is not an error: Decrypt returns (nil, nil) so callers can
// distinguish "key simply doesn't exist" (the signal was purged) from
// malformed input, which is CodeInvalidInput. The audit record is written
// before the plaintext is returned; if the audit write fails, so does the
// decrypt.
func (s *Service) Decrypt(ctx context.Context, signalID id.SignalID, ciphertext []byte, authorizationID id.OperatorID) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "isolation.Decrypt")
	defer span.End()

	if signalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signal_id is required")
	}
	if len(ciphertext) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ciphertext is required")
	}
	if authorizationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "authorization_id is required")
	}

	// The authorization is recorded before the key lookup so the audit trail
	// captures the attempt even when the key no longer exists.
	if err := s.emit(ctx, audit.Event{
		SignalID:   signalID,
		Action:     string(audit.EventPayloadDecrypted),
		OperatorID: authorizationID,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decrypt audit failed")
	}

	key, err := s.store.FindBySignal(ctx, signalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load encryption key")
	}

	plaintext, err := s.keyring.Open(key.KeyReference, ciphertext)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "ciphertext could not be opened")
	}
	return plaintext, nil
}

// VerifyIsolation is a safety assertion: it returns true when the stored key
// record carries no reference to the given family, checked against the
// serialized record rather than the struct definition so a leaked field added
// later still trips the check. Automated tests run this continuously.
func (s *Service) VerifyIsolation(ctx context.Context, keyID id.KeyID, familyID id.FamilyID) (bool, error) {
	key, err := s.GetKey(ctx, keyID)
	if err != nil {
		return false, err
	}

	serialized, err := json.Marshal(key)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to serialize key record")
	}

	var fields map[string]any
	if err := json.Unmarshal(serialized, &fields); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to inspect key record")
	}

	for name, value := range fields {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "family") {
			s.reportViolation(ctx, key.SignalID, "family-named field on key record: "+name)
			return false, nil
		}
		if str, ok := value.(string); ok && !familyID.IsNil() && str == familyID.String() {
			s.reportViolation(ctx, key.SignalID, "family identifier value on key record field "+name)
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) reportViolation(ctx context.Context, signalID id.SignalID, reason string) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "isolation invariant violated", "signal_id", signalID, "reason", reason)
	}
	s.emit(ctx, audit.Event{
		SignalID: signalID,
		Action:   string(audit.EventIsolationViolation),
		Reason:   reason,
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	err := s.auditor.Emit(ctx, event)
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
	return err
}
