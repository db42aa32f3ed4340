package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"beacon/internal/isolation/keyring"
	keystore "beacon/internal/isolation/store"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	auditpub "beacon/pkg/platform/audit/publisher"
	auditmem "beacon/pkg/platform/audit/store/memory"
)

// =============================================================================
// Isolation Service Test Suite
// =============================================================================
// Justification for unit tests: key isolation is the subsystem's core safety
// invariant and must hold for every stored record, which is cheap to prove
// here and expensive to prove end to end.

type IsolationServiceSuite struct {
	suite.Suite
	store      *keystore.InMemoryKeyStore
	auditStore *auditmem.Store
	service    *Service
}

func TestIsolationServiceSuite(t *testing.T) {
	suite.Run(t, new(IsolationServiceSuite))
}

func (s *IsolationServiceSuite) SetupTest() {
	s.store = keystore.NewInMemoryKeyStore()
	s.auditStore = auditmem.New()

	kr, err := keyring.New(bytes.Repeat([]byte("k"), 32))
	s.Require().NoError(err)

	s.service, err = New(s.store, kr, WithAuditPublisher(auditpub.New(s.auditStore)))
	s.Require().NoError(err)
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *IsolationServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, nil)
		s.Error(err)
	})
}

// =============================================================================
// GenerateKey Tests
// =============================================================================

func (s *IsolationServiceSuite) TestGenerateKey() {
	ctx := context.Background()

	s.Run("empty signal_id returns invalid input", func() {
		_, err := s.service.GenerateKey(ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("creates one immutable key per signal", func() {
		key, err := s.service.GenerateKey(ctx, "sig-gen")
		s.NoError(err)
		s.Equal(id.SignalID("sig-gen"), key.SignalID)
		s.Equal("AES-256-GCM", key.Algorithm)
		s.NotEmpty(key.KeyReference)

		_, err = s.service.GenerateKey(ctx, "sig-gen")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// =============================================================================
// Encrypt / Decrypt Tests
// =============================================================================

func (s *IsolationServiceSuite) TestEncryptDecrypt() {
	ctx := context.Background()
	payload := []byte(`{"trigger":"codeword","message":"help"}`)

	s.Run("encrypt without key returns not found", func() {
		_, _, err := s.service.Encrypt(ctx, "sig-nokey", payload)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("round trip with audited authorization", func() {
		_, err := s.service.GenerateKey(ctx, "sig-rt")
		s.Require().NoError(err)

		ciphertext, keyID, err := s.service.Encrypt(ctx, "sig-rt", payload)
		s.NoError(err)
		s.False(keyID.IsNil())
		s.NotEqual(payload, ciphertext)

		plaintext, err := s.service.Decrypt(ctx, "sig-rt", ciphertext, "op-legal-1")
		s.NoError(err)
		s.Equal(payload, plaintext)

		events, err := s.auditStore.ListBySignal(ctx, "sig-rt")
		s.NoError(err)
		var decrypts int
		for _, e := range events {
			if e.Action == "signal_payload_decrypted" {
				decrypts++
				s.Equal(id.OperatorID("op-legal-1"), e.OperatorID)
			}
		}
		s.Equal(1, decrypts)
	})

	s.Run("decrypt requires authorization id", func() {
		_, err := s.service.Decrypt(ctx, "sig-rt", []byte("x"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("decrypt of purged key returns nil without error", func() {
		plaintext, err := s.service.Decrypt(ctx, "sig-gone", []byte("irrelevant"), "op-legal-1")
		s.NoError(err)
		s.Nil(plaintext)
	})
}

// =============================================================================
// Isolation Invariant Tests
// =============================================================================

func (s *IsolationServiceSuite) TestVerifyIsolation() {
	ctx := context.Background()

	key, err := s.service.GenerateKey(ctx, "sig-iso")
	s.Require().NoError(err)

	s.Run("stored record carries no family reference", func() {
		ok, err := s.service.VerifyIsolation(ctx, key.ID, "family-42")
		s.NoError(err)
		s.True(ok)
	})

	s.Run("serialized record has no family field", func() {
		serialized, err := json.Marshal(key)
		s.Require().NoError(err)

		var fields map[string]any
		s.Require().NoError(json.Unmarshal(serialized, &fields))
		for name := range fields {
			s.NotContains(name, "family")
		}
	})

	s.Run("unknown key returns not found", func() {
		_, err := s.service.VerifyIsolation(ctx, "key-missing", "family-42")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// DeleteKey Tests
// =============================================================================

func (s *IsolationServiceSuite) TestDeleteKey() {
	ctx := context.Background()

	key, err := s.service.GenerateKey(ctx, "sig-del")
	s.Require().NoError(err)

	s.Run("delete removes key and lookup fails", func() {
		s.NoError(s.service.DeleteKey(ctx, key.ID))

		_, err := s.service.GetKey(ctx, key.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("delete of missing key returns not found", func() {
		err := s.service.DeleteKey(ctx, key.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
