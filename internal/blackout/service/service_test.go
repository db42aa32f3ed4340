package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	blkstore "beacon/internal/blackout/store"
	supservice "beacon/internal/suppression/service"
	supstore "beacon/internal/suppression/store"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// =============================================================================
// Blackout Service Test Suite
// =============================================================================

type BlackoutServiceSuite struct {
	suite.Suite
	store   *blkstore.InMemoryBlackoutStore
	service *Service
	now     time.Time
}

func TestBlackoutServiceSuite(t *testing.T) {
	suite.Run(t, new(BlackoutServiceSuite))
}

func (s *BlackoutServiceSuite) SetupTest() {
	s.store = blkstore.NewInMemoryBlackoutStore()
	s.now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.store, WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
}

// =============================================================================
// CreateBlackout Tests
// =============================================================================

func (s *BlackoutServiceSuite) TestCreateBlackout() {
	ctx := context.Background()

	s.Run("missing family returns invalid input", func() {
		_, err := s.service.CreateBlackout(ctx, "", "sig-1")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("creates an active 48 hour window", func() {
		b, err := s.service.CreateBlackout(ctx, "family-1", "sig-1")
		s.NoError(err)
		s.True(b.Active)
		s.Equal(48*time.Hour, b.EndTime.Sub(b.StartTime))

		active, err := s.service.IsBlackoutActive(ctx, "family-1")
		s.NoError(err)
		s.True(active)
	})
}

// =============================================================================
// Extension Tests
// =============================================================================

func (s *BlackoutServiceSuite) TestExtendBlackoutPeriod() {
	ctx := context.Background()

	s.Run("no active blackout fails", func() {
		_, err := s.service.ExtendBlackoutPeriod(ctx, "family-none", 24)
		s.True(dErrors.HasCode(err, dErrors.CodeNoActiveBlackout))
	})

	s.Run("non-positive hours fails", func() {
		_, err := s.service.ExtendBlackoutPeriod(ctx, "family-2", 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("extensions are strictly additive", func() {
		created, err := s.service.CreateBlackout(ctx, "family-2", "sig-2")
		s.Require().NoError(err)

		_, err = s.service.ExtendBlackoutPeriod(ctx, "family-2", 10)
		s.NoError(err)
		extended, err := s.service.ExtendBlackoutPeriod(ctx, "family-2", 14)
		s.NoError(err)

		s.Equal(created.EndTime.Add(24*time.Hour), extended.EndTime)
		s.Equal(2, extended.Extended)
	})
}

// =============================================================================
// Expiry Tests
// =============================================================================

func (s *BlackoutServiceSuite) TestExpireDue() {
	ctx := context.Background()

	_, err := s.service.CreateBlackout(ctx, "family-3", "sig-3")
	s.Require().NoError(err)
	_, err = s.service.CreateBlackout(ctx, "family-4", "sig-4")
	s.Require().NoError(err)
	_, err = s.service.ExtendBlackoutPeriod(ctx, "family-4", 72)
	s.Require().NoError(err)

	s.Run("nothing expires inside the window", func() {
		expired, err := s.service.ExpireDue(ctx)
		s.NoError(err)
		s.Empty(expired)
	})

	s.Run("only windows past their end expire", func() {
		s.now = s.now.Add(49 * time.Hour)

		expired, err := s.service.ExpireDue(ctx)
		s.NoError(err)
		s.Len(expired, 1)
		s.Equal(id.SignalID("sig-3"), expired[0].SignalID)

		active, err := s.service.IsBlackoutActive(ctx, "family-3")
		s.NoError(err)
		s.False(active)

		active, err = s.service.IsBlackoutActive(ctx, "family-4")
		s.NoError(err)
		s.True(active)
	})

	s.Run("expired windows stay listed until completion is recorded", func() {
		expired, err := s.service.ExpireDue(ctx)
		s.NoError(err)
		s.Len(expired, 1)
		s.Equal(id.SignalID("sig-3"), expired[0].SignalID)

		s.NoError(s.service.MarkCompleted(ctx, expired[0].ID))

		expired, err = s.service.ExpireDue(ctx)
		s.NoError(err)
		s.Empty(expired)
	})
}

// =============================================================================
// Suppression Alignment Tests
// =============================================================================

func (s *BlackoutServiceSuite) TestExtensionExtendsSuppressions() {
	ctx := context.Background()

	suppressions, err := supservice.New(supstore.NewInMemorySuppressionStore(),
		supservice.WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)

	svc, err := New(s.store,
		WithClock(func() time.Time { return s.now }),
		WithSuppressionExtender(suppressions),
	)
	s.Require().NoError(err)

	b, err := svc.CreateBlackout(ctx, "family-5", "sig-5")
	s.Require().NoError(err)
	_, err = suppressions.CreateSuppression(ctx, "family-5", "sig-5", id.SuppressAll, b.EndTime)
	s.Require().NoError(err)

	_, err = svc.ExtendBlackoutForSignal(ctx, "sig-5", 24)
	s.NoError(err)

	// Hour 49: past the original end, inside the extended window. The family
	// surface must still be silent.
	s.now = s.now.Add(49 * time.Hour)

	active, err := svc.IsBlackoutActive(ctx, "family-5")
	s.NoError(err)
	s.True(active)

	out, err := suppressions.FilterNotificationRecipients(ctx, "family-5", []string{"parent@example.com"})
	s.NoError(err)
	s.Empty(out)
}
