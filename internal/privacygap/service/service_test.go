package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"beacon/internal/privacygap"
	pgstore "beacon/internal/privacygap/store"
	dErrors "beacon/pkg/domain-errors"
)

// =============================================================================
// Privacy Gap Service Test Suite
// =============================================================================

type PrivacyGapServiceSuite struct {
	suite.Suite
	store   *pgstore.InMemoryPrivacyGapStore
	service *Service
	now     time.Time
}

func TestPrivacyGapServiceSuite(t *testing.T) {
	suite.Run(t, new(PrivacyGapServiceSuite))
}

func (s *PrivacyGapServiceSuite) SetupTest() {
	s.store = pgstore.NewInMemoryPrivacyGapStore()
	s.now = time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.store, WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
}

// =============================================================================
// CreateSignalPrivacyGap Tests
// =============================================================================

func (s *PrivacyGapServiceSuite) TestCreateSignalPrivacyGap() {
	ctx := context.Background()
	start := s.now.Add(-48 * time.Hour)

	s.Run("inverted window is rejected", func() {
		_, err := s.service.CreateSignalPrivacyGap(ctx, "sig-1", "child-1", s.now, start)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("gap starts unapplied", func() {
		gap, err := s.service.CreateSignalPrivacyGap(ctx, "sig-1", "child-1", start, s.now)
		s.NoError(err)
		s.False(gap.Applied)
	})

	s.Run("one gap per signal", func() {
		_, err := s.service.CreateSignalPrivacyGap(ctx, "sig-1", "child-1", start, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// =============================================================================
// Apply Tests
// =============================================================================

func (s *PrivacyGapServiceSuite) TestApplyPostBlackoutPrivacyGap() {
	ctx := context.Background()
	start := s.now.Add(-48 * time.Hour)

	s.Run("missing gap returns not found", func() {
		_, err := s.service.ApplyPostBlackoutPrivacyGap(ctx, "sig-none")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("apply writes exactly one masked record", func() {
		_, err := s.service.CreateSignalPrivacyGap(ctx, "sig-2", "child-2", start, s.now)
		s.Require().NoError(err)

		gap, err := s.service.ApplyPostBlackoutPrivacyGap(ctx, "sig-2")
		s.NoError(err)
		s.True(gap.Applied)
		s.NotNil(gap.AppliedAt)

		records, err := s.service.ListMaskedRecords(ctx, "child-2")
		s.NoError(err)
		s.Len(records, 1)
		s.Equal(privacygap.MaskReasonBlackout, records[0].Reason)
		s.Equal(start, records[0].PeriodStart)
		s.Equal(s.now, records[0].PeriodEnd)
	})

	s.Run("second apply is a no-op", func() {
		gap, err := s.service.ApplyPostBlackoutPrivacyGap(ctx, "sig-2")
		s.NoError(err)
		s.True(gap.Applied)

		records, err := s.service.ListMaskedRecords(ctx, "child-2")
		s.NoError(err)
		s.Len(records, 1)
	})
}

// =============================================================================
// IsPrivacyGapped Tests
// =============================================================================

func (s *PrivacyGapServiceSuite) TestIsPrivacyGapped() {
	ctx := context.Background()
	start := s.now.Add(-48 * time.Hour)

	_, err := s.service.CreateSignalPrivacyGap(ctx, "sig-3", "child-3", start, s.now)
	s.Require().NoError(err)

	s.Run("unapplied gap does not mask", func() {
		gapped, err := s.service.IsPrivacyGapped(ctx, "child-3", start.Add(time.Hour))
		s.NoError(err)
		s.False(gapped)
	})

	s.Run("applied gap masks instants inside the window", func() {
		_, err := s.service.ApplyPostBlackoutPrivacyGap(ctx, "sig-3")
		s.Require().NoError(err)

		gapped, err := s.service.IsPrivacyGapped(ctx, "child-3", start.Add(time.Hour))
		s.NoError(err)
		s.True(gapped)

		gapped, err = s.service.IsPrivacyGapped(ctx, "child-3", s.now.Add(time.Hour))
		s.NoError(err)
		s.False(gapped)
	})
}
