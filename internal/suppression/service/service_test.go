package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"beacon/internal/suppression"
	supstore "beacon/internal/suppression/store"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

// =============================================================================
// Suppression Service Test Suite
// =============================================================================

type SuppressionServiceSuite struct {
	suite.Suite
	store   *supstore.InMemorySuppressionStore
	service *Service
	now     time.Time
}

func TestSuppressionServiceSuite(t *testing.T) {
	suite.Run(t, new(SuppressionServiceSuite))
}

func (s *SuppressionServiceSuite) SetupTest() {
	s.store = supstore.NewInMemorySuppressionStore()
	s.now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.store, WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
}

func (s *SuppressionServiceSuite) create(familyID id.FamilyID, signalID id.SignalID, t id.SuppressionType) {
	_, err := s.service.CreateSuppression(context.Background(), familyID, signalID, t, s.now.Add(48*time.Hour))
	s.Require().NoError(err)
}

// =============================================================================
// CreateSuppression Tests
// =============================================================================

func (s *SuppressionServiceSuite) TestCreateSuppression() {
	ctx := context.Background()

	s.Run("unknown type is rejected", func() {
		_, err := s.service.CreateSuppression(ctx, "family-1", "sig-1", "everything", s.now.Add(time.Hour))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("past expiry is rejected", func() {
		_, err := s.service.CreateSuppression(ctx, "family-1", "sig-1", id.SuppressAll, s.now.Add(-time.Hour))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("valid suppression is active", func() {
		sup, err := s.service.CreateSuppression(ctx, "family-1", "sig-1", id.SuppressAll, s.now.Add(48*time.Hour))
		s.NoError(err)
		s.True(sup.Active)
		s.True(sup.InEffectAt(s.now))
	})
}

// =============================================================================
// Notification Filtering Tests
// =============================================================================

func (s *SuppressionServiceSuite) TestShouldSuppressNotification() {
	ctx := context.Background()

	s.Run("no suppression lets notifications through", func() {
		hold, err := s.service.ShouldSuppressNotification(ctx, suppression.Notification{FamilyID: "family-free"})
		s.NoError(err)
		s.False(hold)
	})

	s.Run("all-type suppression holds everything", func() {
		s.create("family-2", "sig-2", id.SuppressAll)

		hold, err := s.service.ShouldSuppressNotification(ctx, suppression.Notification{FamilyID: "family-2"})
		s.NoError(err)
		s.True(hold)
	})

	s.Run("signal_related only holds signal-derived notifications", func() {
		s.create("family-3", "sig-3", id.SuppressSignalRelated)

		hold, err := s.service.ShouldSuppressNotification(ctx, suppression.Notification{FamilyID: "family-3", SignalRelated: true})
		s.NoError(err)
		s.True(hold)

		hold, err = s.service.ShouldSuppressNotification(ctx, suppression.Notification{FamilyID: "family-3"})
		s.NoError(err)
		s.False(hold)
	})

	s.Run("expired suppression stops holding", func() {
		s.create("family-4", "sig-4", id.SuppressAll)
		s.now = s.now.Add(49 * time.Hour)

		hold, err := s.service.ShouldSuppressNotification(ctx, suppression.Notification{FamilyID: "family-4"})
		s.NoError(err)
		s.False(hold)
	})
}

func (s *SuppressionServiceSuite) TestFilterNotificationRecipients() {
	ctx := context.Background()
	recipients := []string{"parent-a@example.com", "parent-b@example.com"}

	s.Run("passes recipients with no active all suppression", func() {
		s.create("family-5", "sig-5", id.SuppressSignalRelated)

		out, err := s.service.FilterNotificationRecipients(ctx, "family-5", recipients)
		s.NoError(err)
		s.Equal(recipients, out)
	})

	s.Run("dedupes and trims pass-through recipients", func() {
		out, err := s.service.FilterNotificationRecipients(ctx, "family-9", []string{" parent-a@example.com", "parent-a@example.com", ""})
		s.NoError(err)
		s.Equal([]string{"parent-a@example.com"}, out)
	})

	s.Run("empties recipients under an all suppression", func() {
		s.create("family-6", "sig-6", id.SuppressAll)

		out, err := s.service.FilterNotificationRecipients(ctx, "family-6", recipients)
		s.NoError(err)
		s.Empty(out)
	})
}

// =============================================================================
// Audit Trail Suppression Tests
// =============================================================================

func (s *SuppressionServiceSuite) TestSuppressAuditEntry() {
	ctx := context.Background()

	s.Run("audit_entries suppression drops the entry", func() {
		s.create("family-7", "sig-7", id.SuppressAuditEntries)

		entry, err := s.service.SuppressAuditEntry(ctx, &suppression.AuditTrailEntry{FamilyID: "family-7", Description: "app opened"})
		s.NoError(err)
		s.Nil(entry)
	})

	s.Run("uncovered entry passes through", func() {
		in := &suppression.AuditTrailEntry{FamilyID: "family-8", Description: "app opened"}
		entry, err := s.service.SuppressAuditEntry(ctx, in)
		s.NoError(err)
		s.Equal(in, entry)
	})
}

// =============================================================================
// Deactivation Tests
// =============================================================================

func (s *SuppressionServiceSuite) TestDeactivateForSignal() {
	ctx := context.Background()

	s.create("family-9", "sig-9", id.SuppressAll)
	s.create("family-9", "sig-9", id.SuppressAuditEntries)

	n, err := s.service.DeactivateForSignal(ctx, "sig-9")
	s.NoError(err)
	s.Equal(2, n)

	hold, err := s.service.ShouldSuppressNotification(ctx, suppression.Notification{FamilyID: "family-9"})
	s.NoError(err)
	s.False(hold)
}
