package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"beacon/internal/isolation/keyring"
	isoservice "beacon/internal/isolation/service"
	isostore "beacon/internal/isolation/store"
	legalstore "beacon/internal/legal/store"
	vaultservice "beacon/internal/vault/service"
	vaultstore "beacon/internal/vault/store"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	auditpub "beacon/pkg/platform/audit/publisher"
	auditmem "beacon/pkg/platform/audit/store/memory"
)

// =============================================================================
// Legal Request Service Test Suite
// =============================================================================
// The suite runs against real isolation and vault services so fulfillment
// exercises the same decrypt-with-authorization path production uses.

type LegalServiceSuite struct {
	suite.Suite
	store      *legalstore.InMemoryLegalRequestStore
	auditStore *auditmem.Store
	isolation  *isoservice.Service
	vault      *vaultservice.Service
	service    *Service
}

func TestLegalServiceSuite(t *testing.T) {
	suite.Run(t, new(LegalServiceSuite))
}

type allowAllGate struct{}

func (allowAllGate) CanDeleteSignal(context.Context, id.SignalID) (bool, string, error) {
	return true, "", nil
}

func (s *LegalServiceSuite) SetupTest() {
	s.store = legalstore.NewInMemoryLegalRequestStore()
	s.auditStore = auditmem.New()
	publisher := auditpub.New(s.auditStore)

	kr, err := keyring.New(bytes.Repeat([]byte("k"), 32))
	s.Require().NoError(err)
	s.isolation, err = isoservice.New(isostore.NewInMemoryKeyStore(), kr, isoservice.WithAuditPublisher(publisher))
	s.Require().NoError(err)
	s.vault, err = vaultservice.New(vaultstore.NewInMemoryVaultStore(), allowAllGate{})
	s.Require().NoError(err)

	s.service, err = New(s.store,
		WithAuditPublisher(publisher),
		WithDisclosure(s.vault, s.isolation),
	)
	s.Require().NoError(err)
}

// storeSignal encrypts and vaults a payload for the given signal.
func (s *LegalServiceSuite) storeSignal(signalID id.SignalID, payload []byte) {
	ctx := context.Background()
	_, err := s.isolation.GenerateKey(ctx, signalID)
	s.Require().NoError(err)
	ciphertext, keyID, err := s.isolation.Encrypt(ctx, signalID, payload)
	s.Require().NoError(err)
	_, err = s.vault.StoreIsolatedSignal(ctx, signalID, "child-1", ciphertext, keyID, id.JurisdictionUS)
	s.Require().NoError(err)
}

// logParams builds a valid intake for the given signals; tests blank
// individual fields to exercise validation.
func logParams(reqType id.LegalRequestType, agency string, signalIDs ...id.SignalID) LogParams {
	return LogParams{
		Type:              reqType,
		RequestingAgency:  agency,
		Jurisdiction:      id.JurisdictionUS,
		DocumentReference: "case-2026-0142",
		SignalIDs:         signalIDs,
		LoggedBy:          "op-legal-1",
	}
}

// =============================================================================
// LogLegalRequest Tests
// =============================================================================

func (s *LegalServiceSuite) TestLogLegalRequest() {
	ctx := context.Background()

	s.Run("empty signal list is rejected", func() {
		_, err := s.service.LogLegalRequest(ctx, logParams(id.LegalSubpoena, "County Court"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown type is rejected", func() {
		_, err := s.service.LogLegalRequest(ctx, logParams("fax", "County Court", "sig-1"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("missing requesting agency is rejected", func() {
		_, err := s.service.LogLegalRequest(ctx, logParams(id.LegalSubpoena, "", "sig-1"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("missing jurisdiction is rejected", func() {
		params := logParams(id.LegalSubpoena, "County Court", "sig-1")
		params.Jurisdiction = ""
		_, err := s.service.LogLegalRequest(ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("missing document reference is rejected", func() {
		params := logParams(id.LegalSubpoena, "County Court", "sig-1")
		params.DocumentReference = ""
		_, err := s.service.LogLegalRequest(ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("new request starts in pending review", func() {
		req, err := s.service.LogLegalRequest(ctx, logParams(id.LegalSubpoena, "County Court", "sig-1"))
		s.NoError(err)
		s.Equal(id.LegalStatusPendingReview, req.Status)
		s.Equal("County Court", req.RequestingAgency)
		s.Equal(id.JurisdictionUS, req.Jurisdiction)
		s.Equal("case-2026-0142", req.DocumentReference)
		s.Nil(req.FulfilledAt)
	})
}

// =============================================================================
// Review Tests
// =============================================================================

func (s *LegalServiceSuite) TestReview() {
	ctx := context.Background()

	req, err := s.service.LogLegalRequest(ctx, logParams(id.LegalWarrant, "State Police", "sig-1"))
	s.Require().NoError(err)

	s.Run("deny requires a reason", func() {
		_, err := s.service.DenyLegalRequest(ctx, req.ID, "op-legal-2", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("approve moves pending to approved", func() {
		approved, err := s.service.ApproveLegalRequest(ctx, req.ID, "op-legal-2")
		s.NoError(err)
		s.Equal(id.LegalStatusApproved, approved.Status)
		s.Equal(id.OperatorID("op-legal-2"), *approved.ReviewedBy)
	})

	s.Run("approved request cannot be reviewed again", func() {
		_, err := s.service.ApproveLegalRequest(ctx, req.ID, "op-legal-2")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

		_, err = s.service.DenyLegalRequest(ctx, req.ID, "op-legal-2", "duplicate")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

// =============================================================================
// Fulfillment Tests
// =============================================================================

func (s *LegalServiceSuite) TestFulfillLegalRequest() {
	ctx := context.Background()
	payload := []byte(`{"trigger":"codeword","message":"help"}`)
	s.storeSignal("sig-f1", payload)

	req, err := s.service.LogLegalRequest(ctx, logParams(id.LegalCourtOrder, "Family Court", "sig-f1", "sig-gone"))
	s.Require().NoError(err)

	s.Run("pending request is refused without mutation", func() {
		result, err := s.service.FulfillLegalRequest(ctx, req.ID, "op-legal-3")
		s.NoError(err)
		s.False(result.Success)
		s.Equal("Request must be approved before fulfillment", result.Error)

		reloaded, err := s.service.GetLegalRequest(ctx, req.ID)
		s.NoError(err)
		s.Equal(id.LegalStatusPendingReview, reloaded.Status)
		s.Nil(reloaded.FulfilledAt)
	})

	s.Run("denied request is refused too", func() {
		denied, err := s.service.LogLegalRequest(ctx, logParams(id.LegalSubpoena, "County Court", "sig-f1"))
		s.Require().NoError(err)
		_, err = s.service.DenyLegalRequest(ctx, denied.ID, "op-legal-2", "overbroad")
		s.Require().NoError(err)

		result, err := s.service.FulfillLegalRequest(ctx, denied.ID, "op-legal-3")
		s.NoError(err)
		s.False(result.Success)
	})

	s.Run("approved request discloses decrypted payloads", func() {
		_, err := s.service.ApproveLegalRequest(ctx, req.ID, "op-legal-2")
		s.Require().NoError(err)

		result, err := s.service.FulfillLegalRequest(ctx, req.ID, "op-legal-3")
		s.NoError(err)
		s.True(result.Success)
		s.Equal(id.LegalStatusFulfilled, result.Request.Status)
		s.Equal(id.OperatorID("op-legal-3"), *result.Request.FulfilledBy)

		s.Require().Len(result.Disclosures, 2)
		s.Equal(payload, result.Disclosures[0].Payload)
		s.True(result.Disclosures[1].Missing)

		// The decrypt carries the fulfiller's authorization on the audit log.
		events, err := s.auditStore.ListBySignal(ctx, "sig-f1")
		s.NoError(err)
		var decrypted bool
		for _, e := range events {
			if e.Action == "signal_payload_decrypted" {
				decrypted = true
				s.Equal(id.OperatorID("op-legal-3"), e.OperatorID)
			}
		}
		s.True(decrypted)
	})

	s.Run("fulfilled request cannot be fulfilled again", func() {
		result, err := s.service.FulfillLegalRequest(ctx, req.ID, "op-legal-3")
		s.NoError(err)
		s.False(result.Success)
	})
}
