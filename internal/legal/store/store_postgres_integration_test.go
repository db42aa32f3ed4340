//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"beacon/internal/legal"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
	"beacon/pkg/testutil/containers"
)

// =============================================================================
// Postgres Legal Request Store Integration Suite
// =============================================================================

type PostgresLegalRequestStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresLegalRequestStore
}

func TestPostgresLegalRequestStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresLegalRequestStoreSuite))
}

func (s *PostgresLegalRequestStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.Exec(s.T(), `
		CREATE TABLE legal_requests (
			id                 TEXT PRIMARY KEY,
			type               TEXT NOT NULL,
			requesting_agency  TEXT NOT NULL,
			jurisdiction       TEXT NOT NULL,
			document_reference TEXT NOT NULL,
			signal_ids         JSONB NOT NULL,
			status             TEXT NOT NULL,
			logged_by          TEXT NOT NULL,
			logged_at          TIMESTAMPTZ NOT NULL,
			reviewed_by        TEXT,
			reviewed_at        TIMESTAMPTZ,
			denial_reason      TEXT,
			fulfilled_by       TEXT,
			fulfilled_at       TIMESTAMPTZ
		)`)
	s.store = NewPostgresLegalRequestStore(s.pg.DB)
}

func (s *PostgresLegalRequestStoreSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresLegalRequestStoreSuite) SetupTest() {
	s.pg.Exec(s.T(), "TRUNCATE legal_requests")
}

func (s *PostgresLegalRequestStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	loggedAt := time.Now().UTC().Truncate(time.Microsecond)

	req := &legal.LegalRequest{
		ID:                "req-1",
		Type:              id.LegalSubpoena,
		RequestingAgency:  "County Court",
		Jurisdiction:      id.JurisdictionUS,
		DocumentReference: "case-2026-0142",
		SignalIDs:         []id.SignalID{"sig-1", "sig-2"},
		Status:            id.LegalStatusPendingReview,
		LoggedBy:          "op-legal-1",
		LoggedAt:          loggedAt,
	}
	s.Require().NoError(s.store.Create(ctx, req))
	s.ErrorIs(s.store.Create(ctx, req), sentinel.ErrAlreadyExists)

	found, err := s.store.FindByID(ctx, "req-1")
	s.Require().NoError(err)
	s.Equal(req.Type, found.Type)
	s.Equal("County Court", found.RequestingAgency)
	s.Equal(id.JurisdictionUS, found.Jurisdiction)
	s.Equal("case-2026-0142", found.DocumentReference)
	s.Equal(req.SignalIDs, found.SignalIDs)
	s.Equal(id.LegalStatusPendingReview, found.Status)
	s.Nil(found.ReviewedBy)
	s.Nil(found.FulfilledAt)
}

func (s *PostgresLegalRequestStoreSuite) TestReviewUpdate() {
	ctx := context.Background()
	loggedAt := time.Now().UTC().Truncate(time.Microsecond)

	req := &legal.LegalRequest{
		ID:                "req-2",
		Type:              id.LegalWarrant,
		RequestingAgency:  "State Police",
		Jurisdiction:      id.JurisdictionEU,
		DocumentReference: "warrant-77",
		SignalIDs:         []id.SignalID{"sig-3"},
		Status:            id.LegalStatusPendingReview,
		LoggedBy:          "op-legal-1",
		LoggedAt:          loggedAt,
	}
	s.Require().NoError(s.store.Create(ctx, req))

	reviewer := id.OperatorID("op-legal-2")
	reviewedAt := loggedAt.Add(time.Hour)
	req.Status = id.LegalStatusApproved
	req.ReviewedBy = &reviewer
	req.ReviewedAt = &reviewedAt
	s.Require().NoError(s.store.Update(ctx, req))

	found, err := s.store.FindByID(ctx, "req-2")
	s.Require().NoError(err)
	s.Equal(id.LegalStatusApproved, found.Status)
	s.Require().NotNil(found.ReviewedBy)
	s.Equal(reviewer, *found.ReviewedBy)
	s.Require().NotNil(found.ReviewedAt)
	s.WithinDuration(reviewedAt, *found.ReviewedAt, time.Millisecond)
}

func (s *PostgresLegalRequestStoreSuite) TestMissingRequest() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, "req-missing")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Update(ctx, &legal.LegalRequest{ID: "req-missing"}), sentinel.ErrNotFound)
}
