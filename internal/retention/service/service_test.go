package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	retstore "beacon/internal/retention/store"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	auditpub "beacon/pkg/platform/audit/publisher"
	auditmem "beacon/pkg/platform/audit/store/memory"
)

// =============================================================================
// Retention Service Test Suite
// =============================================================================

type RetentionServiceSuite struct {
	suite.Suite
	store      *retstore.InMemoryRetentionStore
	auditStore *auditmem.Store
	service    *Service
	now        time.Time
}

func TestRetentionServiceSuite(t *testing.T) {
	suite.Run(t, new(RetentionServiceSuite))
}

func (s *RetentionServiceSuite) SetupTest() {
	s.store = retstore.NewInMemoryRetentionStore()
	s.auditStore = auditmem.New()
	s.now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.store,
		WithAuditPublisher(auditpub.New(s.auditStore)),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

// =============================================================================
// Policy Resolution Tests
// =============================================================================

func (s *RetentionServiceSuite) TestGetRetentionPolicy() {
	s.Run("US policy is seven years", func() {
		policy := s.service.GetRetentionPolicy(id.JurisdictionUS)
		s.Equal(2555, policy.MinimumRetentionDays)
	})

	s.Run("unknown jurisdiction falls back to conservative default", func() {
		policy := s.service.GetRetentionPolicy("ATLANTIS")
		s.Equal(id.JurisdictionDefault, policy.Jurisdiction)
		s.Equal(2555, policy.MinimumRetentionDays)
	})
}

// =============================================================================
// CreateRetentionStatus Tests
// =============================================================================

func (s *RetentionServiceSuite) TestCreateRetentionStatus() {
	ctx := context.Background()

	s.Run("US status retains for 2555 days", func() {
		status, err := s.service.CreateRetentionStatus(ctx, "sig-2", id.JurisdictionUS)
		s.NoError(err)
		s.False(status.LegalHold)

		elapsed := status.MinimumRetainUntil.Sub(status.RetentionStartDate)
		s.Equal(2555*24*time.Hour, elapsed)
	})

	s.Run("second status for same signal is a conflict", func() {
		_, err := s.service.CreateRetentionStatus(ctx, "sig-2", id.JurisdictionUS)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("empty jurisdiction uses the default policy", func() {
		status, err := s.service.CreateRetentionStatus(ctx, "sig-nojur", "")
		s.NoError(err)
		s.Equal(id.JurisdictionDefault, status.Jurisdiction)
	})
}

// =============================================================================
// Deletion Gate Tests
// =============================================================================

func (s *RetentionServiceSuite) TestCanDeleteSignal() {
	ctx := context.Background()

	s.Run("no retention status blocks deletion", func() {
		canDelete, reason, err := s.service.CanDeleteSignal(ctx, "sig-unknown")
		s.NoError(err)
		s.False(canDelete)
		s.Contains(reason, "No retention status")
	})

	s.Run("unexpired retention period blocks with days remaining", func() {
		_, err := s.service.CreateRetentionStatus(ctx, "sig-young", id.JurisdictionUS)
		s.Require().NoError(err)

		canDelete, reason, err := s.service.CanDeleteSignal(ctx, "sig-young")
		s.NoError(err)
		s.False(canDelete)
		s.Contains(reason, "Retention period")
	})

	s.Run("elapsed period without hold allows deletion", func() {
		_, err := s.service.CreateRetentionStatus(ctx, "sig-old", id.JurisdictionUS)
		s.Require().NoError(err)

		s.now = s.now.AddDate(0, 0, 2556)
		canDelete, reason, err := s.service.CanDeleteSignal(ctx, "sig-old")
		s.NoError(err)
		s.True(canDelete)
		s.Empty(reason)
	})

	s.Run("legal hold blocks even after the period elapses", func() {
		_, err := s.service.CreateRetentionStatus(ctx, "sig-held", id.JurisdictionUS)
		s.Require().NoError(err)
		_, err = s.service.PlaceLegalHold(ctx, "sig-held", "subpoena 22-184", "op-legal-1")
		s.Require().NoError(err)

		s.now = s.now.AddDate(20, 0, 0)
		canDelete, reason, err := s.service.CanDeleteSignal(ctx, "sig-held")
		s.NoError(err)
		s.False(canDelete)
		s.Contains(reason, "Legal hold")
	})
}

// =============================================================================
// Legal Hold Tests
// =============================================================================

func (s *RetentionServiceSuite) TestLegalHolds() {
	ctx := context.Background()

	_, err := s.service.CreateRetentionStatus(ctx, "sig-hold", id.JurisdictionUK)
	s.Require().NoError(err)

	s.Run("place requires reason and operator", func() {
		_, err := s.service.PlaceLegalHold(ctx, "sig-hold", "", "op-legal-1")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.PlaceLegalHold(ctx, "sig-hold", "court order", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("place records the hold and audits it", func() {
		status, err := s.service.PlaceLegalHold(ctx, "sig-hold", "court order 9-112", "op-legal-1")
		s.NoError(err)
		s.True(status.LegalHold)
		s.Equal("court order 9-112", *status.LegalHoldReason)
		s.Equal(id.OperatorID("op-legal-1"), *status.HoldPlacedBy)

		events, err := s.auditStore.ListBySignal(ctx, "sig-hold")
		s.NoError(err)
		s.Len(events, 1)
		s.Equal("legal_hold_placed", events[0].Action)
	})

	s.Run("second hold on a held signal fails", func() {
		_, err := s.service.PlaceLegalHold(ctx, "sig-hold", "another order", "op-legal-2")
		s.True(dErrors.HasCode(err, dErrors.CodeLegalHold))
	})

	s.Run("remove requires an authorization id", func() {
		_, err := s.service.RemoveLegalHold(ctx, "sig-hold", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("remove lifts the hold and audits the authorization", func() {
		status, err := s.service.RemoveLegalHold(ctx, "sig-hold", "op-legal-2")
		s.NoError(err)
		s.False(status.LegalHold)
		s.Nil(status.LegalHoldReason)

		events, err := s.auditStore.ListBySignal(ctx, "sig-hold")
		s.NoError(err)
		s.Len(events, 2)
		s.Equal("legal_hold_removed", events[1].Action)
		s.Equal(id.OperatorID("op-legal-2"), events[1].OperatorID)
	})

	s.Run("remove without an active hold fails", func() {
		_, err := s.service.RemoveLegalHold(ctx, "sig-hold", "op-legal-2")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

// =============================================================================
// Sweep Support Tests
// =============================================================================

func (s *RetentionServiceSuite) TestListDeletableSignals() {
	ctx := context.Background()

	_, err := s.service.CreateRetentionStatus(ctx, "sig-a", id.JurisdictionUS)
	s.Require().NoError(err)
	_, err = s.service.CreateRetentionStatus(ctx, "sig-b", id.JurisdictionUS)
	s.Require().NoError(err)
	_, err = s.service.PlaceLegalHold(ctx, "sig-b", "open case", "op-legal-1")
	s.Require().NoError(err)

	s.now = s.now.AddDate(0, 0, 2556)
	statuses, err := s.service.ListDeletableSignals(ctx)
	s.NoError(err)
	s.Len(statuses, 1)
	s.Equal(id.SignalID("sig-a"), statuses[0].SignalID)
}
