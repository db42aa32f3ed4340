package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"beacon/internal/legal"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

type PostgresLegalRequestStore struct {
	db *sql.DB
}

func NewPostgresLegalRequestStore(db *sql.DB) *PostgresLegalRequestStore {
	return &PostgresLegalRequestStore{db: db}
}

func (s *PostgresLegalRequestStore) Create(ctx context.Context, req *legal.LegalRequest) error {
	signalIDs, err := json.Marshal(req.SignalIDs)
	if err != nil {
		return fmt.Errorf("marshal signal ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO legal_requests
			(id, type, requesting_agency, jurisdiction, document_reference, signal_ids, status, logged_by, logged_at, reviewed_by, reviewed_at, denial_reason, fulfilled_by, fulfilled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		string(req.ID), string(req.Type), req.RequestingAgency, string(req.Jurisdiction), req.DocumentReference, signalIDs, string(req.Status),
		string(req.LoggedBy), req.LoggedAt,
		operatorPtr(req.ReviewedBy), req.ReviewedAt, req.DenialReason,
		operatorPtr(req.FulfilledBy), req.FulfilledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert legal request: %w", err)
	}
	return nil
}

func (s *PostgresLegalRequestStore) FindByID(ctx context.Context, requestID id.RequestID) (*legal.LegalRequest, error) {
	var (
		req                                          legal.LegalRequest
		reqID, reqType, jurisdiction, status, logged string
		signalIDs                                    []byte
		reviewedBy, fulfilledBy, denial              sql.NullString
		reviewedAt, fulfilledAt                      sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, requesting_agency, jurisdiction, document_reference, signal_ids, status, logged_by, logged_at, reviewed_by, reviewed_at, denial_reason, fulfilled_by, fulfilled_at
		FROM legal_requests
		WHERE id = $1
	`, string(requestID)).Scan(
		&reqID, &reqType, &req.RequestingAgency, &jurisdiction, &req.DocumentReference, &signalIDs, &status,
		&logged, &req.LoggedAt,
		&reviewedBy, &reviewedAt, &denial,
		&fulfilledBy, &fulfilledAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan legal request: %w", err)
	}
	if err := json.Unmarshal(signalIDs, &req.SignalIDs); err != nil {
		return nil, fmt.Errorf("unmarshal signal ids: %w", err)
	}
	req.ID = id.RequestID(reqID)
	req.Type = id.LegalRequestType(reqType)
	req.Jurisdiction = id.Jurisdiction(jurisdiction)
	req.Status = id.LegalRequestStatus(status)
	req.LoggedBy = id.OperatorID(logged)
	if reviewedBy.Valid {
		op := id.OperatorID(reviewedBy.String)
		req.ReviewedBy = &op
	}
	if reviewedAt.Valid {
		req.ReviewedAt = &reviewedAt.Time
	}
	if denial.Valid {
		req.DenialReason = &denial.String
	}
	if fulfilledBy.Valid {
		op := id.OperatorID(fulfilledBy.String)
		req.FulfilledBy = &op
	}
	if fulfilledAt.Valid {
		req.FulfilledAt = &fulfilledAt.Time
	}
	return &req, nil
}

func (s *PostgresLegalRequestStore) Update(ctx context.Context, req *legal.LegalRequest) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE legal_requests
		SET status = $2, reviewed_by = $3, reviewed_at = $4, denial_reason = $5, fulfilled_by = $6, fulfilled_at = $7
		WHERE id = $1
	`,
		string(req.ID), string(req.Status),
		operatorPtr(req.ReviewedBy), req.ReviewedAt, req.DenialReason,
		operatorPtr(req.FulfilledBy), req.FulfilledAt,
	)
	if err != nil {
		return fmt.Errorf("update legal request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update legal request: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func operatorPtr(op *id.OperatorID) *string {
	if op == nil {
		return nil
	}
	s := string(*op)
	return &s
}

func isUniqueViolation(err error) bool {
	type sqlState interface{ SQLState() string }
	var st sqlState
	if errors.As(err, &st) {
		return st.SQLState() == "23505"
	}
	return false
}
