package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	blkservice "beacon/internal/blackout/service"
	blkstore "beacon/internal/blackout/store"
	blkworker "beacon/internal/blackout/worker"
	gapservice "beacon/internal/gapfill/service"
	gapstore "beacon/internal/gapfill/store"
	ingestservice "beacon/internal/ingest/service"
	ingeststore "beacon/internal/ingest/store"
	"beacon/internal/isolation/keyring"
	isoservice "beacon/internal/isolation/service"
	isostore "beacon/internal/isolation/store"
	pgservice "beacon/internal/privacygap/service"
	pgstore "beacon/internal/privacygap/store"
	retservice "beacon/internal/retention/service"
	retstore "beacon/internal/retention/store"
	supservice "beacon/internal/suppression/service"
	supstore "beacon/internal/suppression/store"
	vaultservice "beacon/internal/vault/service"
	vaultstore "beacon/internal/vault/store"
	id "beacon/pkg/domain"
	auditpub "beacon/pkg/platform/audit/publisher"
	auditmem "beacon/pkg/platform/audit/store/memory"
)

// =============================================================================
// Pipeline Test Suite
// =============================================================================
// The suite wires every feature service over in-memory stores and runs the
// whole flow, blackout completion included, the way cmd/server wires it.

type PipelineSuite struct {
	suite.Suite
	now          time.Time
	service      *Service
	blackouts    *blkservice.Service
	suppressions *supservice.Service
	privacyGaps  *pgservice.Service
	gapFiller    *gapservice.Service
	worker       *blkworker.Worker
	auditStore   *auditmem.Store
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }
	s.auditStore = auditmem.New()
	publisher := auditpub.New(s.auditStore)

	signals, err := ingestservice.New(ingeststore.NewInMemorySignalStore(), ingeststore.NewInMemoryOfflineQueue(), ingestservice.WithClock(clock))
	s.Require().NoError(err)

	kr, err := keyring.New(bytes.Repeat([]byte("k"), 32))
	s.Require().NoError(err)
	keys, err := isoservice.New(isostore.NewInMemoryKeyStore(), kr, isoservice.WithAuditPublisher(publisher))
	s.Require().NoError(err)

	retention, err := retservice.New(retstore.NewInMemoryRetentionStore(), retservice.WithClock(clock), retservice.WithAuditPublisher(publisher))
	s.Require().NoError(err)

	vault, err := vaultservice.New(vaultstore.NewInMemoryVaultStore(), retention)
	s.Require().NoError(err)

	s.suppressions, err = supservice.New(supstore.NewInMemorySuppressionStore(), supservice.WithClock(clock))
	s.Require().NoError(err)

	s.blackouts, err = blkservice.New(blkstore.NewInMemoryBlackoutStore(),
		blkservice.WithClock(clock),
		blkservice.WithAuditPublisher(publisher),
		blkservice.WithSuppressionExtender(s.suppressions),
	)
	s.Require().NoError(err)

	s.privacyGaps, err = pgservice.New(pgstore.NewInMemoryPrivacyGapStore(), pgservice.WithClock(clock), pgservice.WithAuditPublisher(publisher))
	s.Require().NoError(err)

	s.gapFiller, err = gapservice.New(gapstore.NewInMemoryPatternStore(), gapstore.NewInMemoryActivityStore(),
		gapservice.WithRand(rand.New(rand.NewSource(1))),
		gapservice.WithPrivacyGapChecker(s.privacyGaps),
	)
	s.Require().NoError(err)

	s.service, err = New(signals, keys, vault, retention, s.blackouts, s.suppressions, s.privacyGaps)
	s.Require().NoError(err)

	s.worker = blkworker.New(s.blackouts, s.privacyGaps, s.gapFiller, s.suppressions)
}

func (s *PipelineSuite) isolate() *IsolateResult {
	result, err := s.service.IsolateSignal(context.Background(), IsolateParams{
		ChildID:       "child-9",
		FamilyID:      "family-9",
		TriggerMethod: id.TriggerCodeword,
		DeviceID:      "device-1",
		UserAgent:     "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
		Message:       "need help now",
		Jurisdiction:  id.JurisdictionUS,
	})
	s.Require().NoError(err)
	return result
}

// =============================================================================
// Isolation Flow Tests
// =============================================================================

func (s *PipelineSuite) TestIsolateSignal() {
	ctx := context.Background()
	result := s.isolate()

	s.Run("signal is pending and keyed", func() {
		s.Equal(id.SignalPending, result.Signal.Status)
		s.False(result.KeyID.IsNil())
	})

	s.Run("blackout covers 48 hours", func() {
		s.True(result.Blackout.Active)
		s.Equal(48*time.Hour, result.Blackout.EndTime.Sub(result.Blackout.StartTime))
	})

	s.Run("family surface goes silent immediately", func() {
		recipients, err := s.suppressions.FilterNotificationRecipients(ctx, "family-9", []string{"parent@example.com"})
		s.NoError(err)
		s.Empty(recipients)
	})

	s.Run("retention blocks immediate deletion", func() {
		err := s.service.vault.DeleteIsolatedSignal(ctx, result.Signal.ID)
		s.Error(err)
	})
}

// =============================================================================
// Blackout Completion Tests
// =============================================================================

func (s *PipelineSuite) TestBlackoutCompletion() {
	ctx := context.Background()
	result := s.isolate()

	s.now = s.now.Add(49 * time.Hour)
	s.worker.Sweep(ctx)

	s.Run("suppressions are lifted", func() {
		recipients, err := s.suppressions.FilterNotificationRecipients(ctx, "family-9", []string{"parent@example.com"})
		s.NoError(err)
		s.Equal([]string{"parent@example.com"}, recipients)
	})

	s.Run("privacy gap is applied once", func() {
		gapped, err := s.privacyGaps.IsPrivacyGapped(ctx, "child-9", result.Blackout.StartTime.Add(time.Hour))
		s.NoError(err)
		s.True(gapped)

		records, err := s.privacyGaps.ListMaskedRecords(ctx, "child-9")
		s.NoError(err)
		s.Len(records, 1)
	})

	s.Run("timeline is filled and looks ordinary", func() {
		timeline, err := s.gapFiller.GetFamilyTimeline(ctx, "child-9", result.Blackout.StartTime, result.Blackout.EndTime)
		s.NoError(err)
		s.NotEmpty(timeline)

		serialized, err := json.Marshal(timeline)
		s.Require().NoError(err)
		s.NotContains(string(serialized), "synthetic")
	})

	s.Run("second sweep changes nothing", func() {
		s.worker.Sweep(ctx)

		records, err := s.privacyGaps.ListMaskedRecords(ctx, "child-9")
		s.NoError(err)
		s.Len(records, 1)
	})
}
