package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"beacon/internal/retention"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

type PostgresRetentionStore struct {
	db *sql.DB
}

func NewPostgresRetentionStore(db *sql.DB) *PostgresRetentionStore {
	return &PostgresRetentionStore{db: db}
}

func (s *PostgresRetentionStore) Create(ctx context.Context, status *retention.SignalRetentionStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signal_retention_statuses
			(signal_id, jurisdiction, retention_start_date, minimum_retain_until, legal_hold, legal_hold_reason, hold_placed_at, hold_placed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		string(status.SignalID), string(status.Jurisdiction),
		status.RetentionStartDate, status.MinimumRetainUntil,
		status.LegalHold, status.LegalHoldReason, status.HoldPlacedAt, operatorPtr(status.HoldPlacedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert retention status: %w", err)
	}
	return nil
}

func (s *PostgresRetentionStore) FindBySignal(ctx context.Context, signalID id.SignalID) (*retention.SignalRetentionStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT signal_id, jurisdiction, retention_start_date, minimum_retain_until, legal_hold, legal_hold_reason, hold_placed_at, hold_placed_by
		FROM signal_retention_statuses
		WHERE signal_id = $1
	`, string(signalID))
	return scanStatus(row)
}

func (s *PostgresRetentionStore) Update(ctx context.Context, status *retention.SignalRetentionStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE signal_retention_statuses
		SET legal_hold = $2, legal_hold_reason = $3, hold_placed_at = $4, hold_placed_by = $5
		WHERE signal_id = $1
	`,
		string(status.SignalID),
		status.LegalHold, status.LegalHoldReason, status.HoldPlacedAt, operatorPtr(status.HoldPlacedBy),
	)
	if err != nil {
		return fmt.Errorf("update retention status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update retention status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresRetentionStore) ListDeletable(ctx context.Context, now int64) ([]*retention.SignalRetentionStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT signal_id, jurisdiction, retention_start_date, minimum_retain_until, legal_hold, legal_hold_reason, hold_placed_at, hold_placed_by
		FROM signal_retention_statuses
		WHERE legal_hold = FALSE AND minimum_retain_until <= $1
	`, time.Unix(now, 0))
	if err != nil {
		return nil, fmt.Errorf("list deletable retention statuses: %w", err)
	}
	defer rows.Close()

	var out []*retention.SignalRetentionStatus
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, rows.Err()
}

func (s *PostgresRetentionStore) Delete(ctx context.Context, signalID id.SignalID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM signal_retention_statuses WHERE signal_id = $1`, string(signalID))
	if err != nil {
		return fmt.Errorf("delete retention status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete retention status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (*retention.SignalRetentionStatus, error) {
	var (
		status               retention.SignalRetentionStatus
		sigID, jurisdiction  string
		holdReason, placedBy sql.NullString
		placedAt             sql.NullTime
	)
	err := row.Scan(
		&sigID, &jurisdiction, &status.RetentionStartDate, &status.MinimumRetainUntil,
		&status.LegalHold, &holdReason, &placedAt, &placedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan retention status: %w", err)
	}
	status.SignalID = id.SignalID(sigID)
	status.Jurisdiction = id.Jurisdiction(jurisdiction)
	if holdReason.Valid {
		status.LegalHoldReason = &holdReason.String
	}
	if placedAt.Valid {
		status.HoldPlacedAt = &placedAt.Time
	}
	if placedBy.Valid {
		op := id.OperatorID(placedBy.String)
		status.HoldPlacedBy = &op
	}
	return &status, nil
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
