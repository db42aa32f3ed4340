//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"beacon/internal/blackout"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
	"beacon/pkg/testutil/containers"
)

// =============================================================================
// Postgres Blackout Store Integration Suite
// =============================================================================

type PostgresBlackoutStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresBlackoutStore
}

func TestPostgresBlackoutStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresBlackoutStoreSuite))
}

func (s *PostgresBlackoutStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.Exec(s.T(), `
		CREATE TABLE blackouts (
			id           TEXT PRIMARY KEY,
			family_id    TEXT NOT NULL,
			signal_id    TEXT NOT NULL,
			start_time   TIMESTAMPTZ NOT NULL,
			end_time     TIMESTAMPTZ NOT NULL,
			active       BOOLEAN NOT NULL,
			extended     BOOLEAN NOT NULL,
			completed    BOOLEAN NOT NULL,
			completed_at TIMESTAMPTZ,
			created_at   TIMESTAMPTZ NOT NULL
		)`)
	s.store = NewPostgresBlackoutStore(s.pg.DB)
}

func (s *PostgresBlackoutStoreSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresBlackoutStoreSuite) SetupTest() {
	s.pg.Exec(s.T(), "TRUNCATE blackouts")
}

func (s *PostgresBlackoutStoreSuite) newBlackout(blackoutID id.BlackoutID, familyID id.FamilyID, signalID id.SignalID, start time.Time) *blackout.Blackout {
	return &blackout.Blackout{
		ID:        blackoutID,
		FamilyID:  familyID,
		SignalID:  signalID,
		StartTime: start,
		EndTime:   start.Add(48 * time.Hour),
		Active:    true,
		CreatedAt: start,
	}
}

func (s *PostgresBlackoutStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Microsecond)
	b := s.newBlackout("blk-1", "family-1", "sig-1", start)

	s.Require().NoError(s.store.Create(ctx, b))
	s.ErrorIs(s.store.Create(ctx, b), sentinel.ErrAlreadyExists)

	found, err := s.store.FindByID(ctx, "blk-1")
	s.Require().NoError(err)
	s.Equal(b.FamilyID, found.FamilyID)
	s.Equal(b.SignalID, found.SignalID)
	s.True(found.Active)
	s.False(found.Completed)
	s.Nil(found.CompletedAt)
	s.WithinDuration(b.EndTime, found.EndTime, time.Millisecond)

	byFamily, err := s.store.FindActiveByFamily(ctx, "family-1")
	s.Require().NoError(err)
	s.Equal(b.ID, byFamily.ID)

	bySignal, err := s.store.FindActiveBySignal(ctx, "sig-1")
	s.Require().NoError(err)
	s.Equal(b.ID, bySignal.ID)

	_, err = s.store.FindActiveByFamily(ctx, "family-other")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresBlackoutStoreSuite) TestDueAndCompletionLifecycle() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	due := s.newBlackout("blk-due", "family-1", "sig-due", now.Add(-72*time.Hour))
	running := s.newBlackout("blk-run", "family-2", "sig-run", now)
	s.Require().NoError(s.store.Create(ctx, due))
	s.Require().NoError(s.store.Create(ctx, running))

	listed, err := s.store.ListDue(ctx, now)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(due.ID, listed[0].ID)

	// Deactivated but uncompleted windows stay in the completion working set.
	due.Active = false
	s.Require().NoError(s.store.Update(ctx, due))

	uncompleted, err := s.store.ListUncompleted(ctx)
	s.Require().NoError(err)
	s.Require().Len(uncompleted, 1)
	s.Equal(due.ID, uncompleted[0].ID)

	completedAt := now
	due.Completed = true
	due.CompletedAt = &completedAt
	s.Require().NoError(s.store.Update(ctx, due))

	uncompleted, err = s.store.ListUncompleted(ctx)
	s.Require().NoError(err)
	s.Empty(uncompleted)

	reloaded, err := s.store.FindByID(ctx, due.ID)
	s.Require().NoError(err)
	s.True(reloaded.Completed)
	s.Require().NotNil(reloaded.CompletedAt)
	s.WithinDuration(completedAt, *reloaded.CompletedAt, time.Millisecond)
}

func (s *PostgresBlackoutStoreSuite) TestUpdateMissingWindow() {
	ctx := context.Background()
	b := s.newBlackout("blk-ghost", "family-9", "sig-9", time.Now().UTC())
	s.ErrorIs(s.store.Update(ctx, b), sentinel.ErrNotFound)
}
