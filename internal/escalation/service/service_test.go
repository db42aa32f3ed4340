package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks PartnerDirectory,BlackoutExtender,AuditPublisher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"beacon/internal/escalation"
	"beacon/internal/escalation/service/mocks"
	escstore "beacon/internal/escalation/store"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	auditpub "beacon/pkg/platform/audit/publisher"
	auditmem "beacon/pkg/platform/audit/store/memory"
)

// =============================================================================
// Escalation Service Test Suite
// =============================================================================

type EscalationServiceSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	store        *escstore.InMemoryEscalationStore
	auditStore   *auditmem.Store
	mockPartners *mocks.MockPartnerDirectory
	mockExtender *mocks.MockBlackoutExtender
	service      *Service
}

func TestEscalationServiceSuite(t *testing.T) {
	suite.Run(t, new(EscalationServiceSuite))
}

func (s *EscalationServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = escstore.NewInMemoryEscalationStore()
	s.auditStore = auditmem.New()
	s.mockPartners = mocks.NewMockPartnerDirectory(s.ctrl)
	s.mockExtender = mocks.NewMockBlackoutExtender(s.ctrl)

	var err error
	s.service, err = New(s.store, s.mockPartners,
		WithAuditPublisher(auditpub.New(s.auditStore)),
		WithBlackoutExtender(s.mockExtender),
	)
	s.Require().NoError(err)
}

func (s *EscalationServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *EscalationServiceSuite) expectPartner(partnerID id.PartnerID, active bool) {
	s.mockPartners.EXPECT().
		GetPartner(gomock.Any(), partnerID).
		Return(&escalation.CrisisPartner{ID: partnerID, Name: "Crisis Line", Active: active}, nil)
}

// recordParams builds a valid escalation; tests blank individual fields to
// exercise validation.
func recordParams(signalID id.SignalID, partnerID id.PartnerID, escType id.EscalationType, details string) RecordParams {
	return RecordParams{
		SignalID:     signalID,
		PartnerID:    partnerID,
		Type:         escType,
		Jurisdiction: id.JurisdictionUS,
		Details:      details,
	}
}

// =============================================================================
// RecordEscalation Tests
// =============================================================================

func (s *EscalationServiceSuite) TestRecordEscalation() {
	ctx := context.Background()

	s.Run("all fields are required", func() {
		_, err := s.service.RecordEscalation(ctx, recordParams("", "partner-1", id.EscalationAssessment, "details"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.RecordEscalation(ctx, recordParams("sig-1", "partner-1", "phone_call", "details"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		params := recordParams("sig-1", "partner-1", id.EscalationAssessment, "details")
		params.Jurisdiction = ""
		_, err = s.service.RecordEscalation(ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.RecordEscalation(ctx, recordParams("sig-1", "partner-1", id.EscalationAssessment, ""))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("inactive partner is refused", func() {
		s.expectPartner("partner-dormant", false)

		_, err := s.service.RecordEscalation(ctx, recordParams("sig-1", "partner-dormant", id.EscalationAssessment, "initial review"))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("identical inputs produce distinct escalations", func() {
		s.expectPartner("partner-1", true)
		s.expectPartner("partner-1", true)

		first, err := s.service.RecordEscalation(ctx, recordParams("sig-1", "partner-1", id.EscalationAssessment, "initial review"))
		s.NoError(err)
		second, err := s.service.RecordEscalation(ctx, recordParams("sig-1", "partner-1", id.EscalationAssessment, "initial review"))
		s.NoError(err)
		s.NotEqual(first.ID, second.ID)
		s.Equal(id.JurisdictionUS, first.Jurisdiction)

		listed, err := s.service.ListEscalations(ctx, "sig-1")
		s.NoError(err)
		s.Len(listed, 2)
	})

	s.Run("law enforcement referral extends the blackout", func() {
		s.expectPartner("partner-1", true)
		s.mockExtender.EXPECT().
			ExtendBlackoutForSignal(gomock.Any(), id.SignalID("sig-2"), ReferralExtensionHours).
			Return(nil)

		_, err := s.service.RecordEscalation(ctx, recordParams("sig-2", "partner-1", id.EscalationLawEnforcementReferral, "handed to local PD"))
		s.NoError(err)
	})

	s.Run("assessment does not touch the blackout", func() {
		s.expectPartner("partner-1", true)

		_, err := s.service.RecordEscalation(ctx, recordParams("sig-3", "partner-1", id.EscalationAssessment, "welfare check"))
		s.NoError(err)
	})
}

// =============================================================================
// SealEscalation Tests
// =============================================================================

func (s *EscalationServiceSuite) TestSealEscalation() {
	ctx := context.Background()

	s.expectPartner("partner-1", true)
	esc, err := s.service.RecordEscalation(ctx, recordParams("sig-seal", "partner-1", id.EscalationMandatoryReport, "report filed"))
	s.Require().NoError(err)

	s.Run("seal requires an operator", func() {
		_, err := s.service.SealEscalation(ctx, esc.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("seal closes the escalation", func() {
		sealed, err := s.service.SealEscalation(ctx, esc.ID, "op-partner-liaison")
		s.NoError(err)
		s.True(sealed.Sealed)
		s.NotNil(sealed.SealedAt)
	})

	s.Run("sealing twice fails", func() {
		_, err := s.service.SealEscalation(ctx, esc.ID, "op-partner-liaison")
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadySealed))
		s.Contains(err.Error(), "Escalation already sealed")
	})

	s.Run("unknown escalation returns not found", func() {
		_, err := s.service.SealEscalation(ctx, "esc-missing", "op-partner-liaison")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
