package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	blkservice "beacon/internal/blackout/service"
	blkstore "beacon/internal/blackout/store"
	gapservice "beacon/internal/gapfill/service"
	gapstore "beacon/internal/gapfill/store"
	"beacon/internal/privacygap"
	pgservice "beacon/internal/privacygap/service"
	pgstore "beacon/internal/privacygap/store"
	supservice "beacon/internal/suppression/service"
	supstore "beacon/internal/suppression/store"
	id "beacon/pkg/domain"
)

// =============================================================================
// Blackout Completion Worker Test Suite
// =============================================================================

// flakyApplier fails a configured number of times before delegating, standing
// in for a store that is briefly unreachable mid-sweep.
type flakyApplier struct {
	inner    *pgservice.Service
	failures int
}

func (f *flakyApplier) ApplyPostBlackoutPrivacyGap(ctx context.Context, signalID id.SignalID) (*privacygap.SignalPrivacyGap, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("store unavailable")
	}
	return f.inner.ApplyPostBlackoutPrivacyGap(ctx, signalID)
}

type BlackoutWorkerSuite struct {
	suite.Suite
	now          time.Time
	blackouts    *blkservice.Service
	suppressions *supservice.Service
	privacyGaps  *pgservice.Service
	gapFiller    *gapservice.Service
	applier      *flakyApplier
	worker       *Worker
}

func TestBlackoutWorkerSuite(t *testing.T) {
	suite.Run(t, new(BlackoutWorkerSuite))
}

func (s *BlackoutWorkerSuite) SetupTest() {
	s.now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	var err error
	s.blackouts, err = blkservice.New(blkstore.NewInMemoryBlackoutStore(), blkservice.WithClock(clock))
	s.Require().NoError(err)
	s.suppressions, err = supservice.New(supstore.NewInMemorySuppressionStore(), supservice.WithClock(clock))
	s.Require().NoError(err)
	s.privacyGaps, err = pgservice.New(pgstore.NewInMemoryPrivacyGapStore(), pgservice.WithClock(clock))
	s.Require().NoError(err)
	s.gapFiller, err = gapservice.New(gapstore.NewInMemoryPatternStore(), gapstore.NewInMemoryActivityStore())
	s.Require().NoError(err)

	s.applier = &flakyApplier{inner: s.privacyGaps}
	s.worker = New(s.blackouts, s.applier, s.gapFiller, s.suppressions)
}

func (s *BlackoutWorkerSuite) openWindow(familyID id.FamilyID, signalID id.SignalID, childID id.ChildID) {
	ctx := context.Background()

	b, err := s.blackouts.CreateBlackout(ctx, familyID, signalID)
	s.Require().NoError(err)
	_, err = s.suppressions.CreateSuppression(ctx, familyID, signalID, id.SuppressAll, b.EndTime)
	s.Require().NoError(err)
	_, err = s.privacyGaps.CreateSignalPrivacyGap(ctx, signalID, childID, b.StartTime, b.EndTime)
	s.Require().NoError(err)
}

// =============================================================================
// Sweep Tests
// =============================================================================

func (s *BlackoutWorkerSuite) TestSweepCompletesExpiredWindow() {
	ctx := context.Background()
	s.openWindow("family-1", "sig-1", "child-1")

	s.now = s.now.Add(49 * time.Hour)
	s.worker.Sweep(ctx)

	gapped, err := s.privacyGaps.IsPrivacyGapped(ctx, "child-1", s.now.Add(-24*time.Hour))
	s.NoError(err)
	s.True(gapped)

	recipients, err := s.suppressions.FilterNotificationRecipients(ctx, "family-1", []string{"parent@example.com"})
	s.NoError(err)
	s.Equal([]string{"parent@example.com"}, recipients)
}

func (s *BlackoutWorkerSuite) TestTransientFailureIsRetriedNextSweep() {
	ctx := context.Background()
	s.openWindow("family-2", "sig-2", "child-2")
	s.applier.failures = 1

	s.now = s.now.Add(49 * time.Hour)
	s.worker.Sweep(ctx)

	gapped, err := s.privacyGaps.IsPrivacyGapped(ctx, "child-2", s.now.Add(-24*time.Hour))
	s.NoError(err)
	s.False(gapped)

	// The failed window is still in the sweep's working set; the next pass
	// finishes the completion steps.
	s.worker.Sweep(ctx)

	gapped, err = s.privacyGaps.IsPrivacyGapped(ctx, "child-2", s.now.Add(-24*time.Hour))
	s.NoError(err)
	s.True(gapped)

	records, err := s.privacyGaps.ListMaskedRecords(ctx, "child-2")
	s.NoError(err)
	s.Len(records, 1)
}

func (s *BlackoutWorkerSuite) TestCompletedWindowLeavesWorkingSet() {
	ctx := context.Background()
	s.openWindow("family-3", "sig-3", "child-3")

	s.now = s.now.Add(49 * time.Hour)
	s.worker.Sweep(ctx)
	s.worker.Sweep(ctx)

	records, err := s.privacyGaps.ListMaskedRecords(ctx, "child-3")
	s.NoError(err)
	s.Len(records, 1)
}
