package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"beacon/internal/privacygap"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
	platformtx "beacon/pkg/platform/tx"
)

type PostgresPrivacyGapStore struct {
	db *sql.DB
}

func NewPostgresPrivacyGapStore(db *sql.DB) *PostgresPrivacyGapStore {
	return &PostgresPrivacyGapStore{db: db}
}

func (s *PostgresPrivacyGapStore) CreateGap(ctx context.Context, gap *privacygap.SignalPrivacyGap) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signal_privacy_gaps (signal_id, child_id, start_time, end_time, applied, applied_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		string(gap.SignalID), string(gap.ChildID),
		gap.StartTime, gap.EndTime, gap.Applied, gap.AppliedAt, gap.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert privacy gap: %w", err)
	}
	return nil
}

func (s *PostgresPrivacyGapStore) FindGapBySignal(ctx context.Context, signalID id.SignalID) (*privacygap.SignalPrivacyGap, error) {
	var (
		gap            privacygap.SignalPrivacyGap
		sigID, childID string
		appliedAt      sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT signal_id, child_id, start_time, end_time, applied, applied_at, created_at
		FROM signal_privacy_gaps
		WHERE signal_id = $1
	`, string(signalID)).Scan(&sigID, &childID, &gap.StartTime, &gap.EndTime, &gap.Applied, &appliedAt, &gap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan privacy gap: %w", err)
	}
	gap.SignalID = id.SignalID(sigID)
	gap.ChildID = id.ChildID(childID)
	if appliedAt.Valid {
		gap.AppliedAt = &appliedAt.Time
	}
	return &gap, nil
}

// MarkApplied flips the gap and writes the masked record in one transaction.
// The guarded UPDATE makes the apply idempotent under concurrent workers: the
// second transaction updates zero rows and backs out. A transaction already
// carried in ctx is joined instead of starting a new one.
func (s *PostgresPrivacyGapStore) MarkApplied(ctx context.Context, gap *privacygap.SignalPrivacyGap, record *privacygap.MaskedDataRecord) error {
	tx, joined := platformtx.From(ctx)
	if !joined {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin privacy gap apply: %w", err)
		}
		defer tx.Rollback()
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE signal_privacy_gaps
		SET applied = TRUE, applied_at = $2
		WHERE signal_id = $1 AND applied = FALSE
	`, string(gap.SignalID), gap.AppliedAt)
	if err != nil {
		return fmt.Errorf("apply privacy gap: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply privacy gap: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindGapBySignal(ctx, gap.SignalID); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrAlreadyExists
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO masked_data_records (child_id, period_start, period_end, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, string(record.ChildID), record.PeriodStart, record.PeriodEnd, record.Reason, record.CreatedAt); err != nil {
		return fmt.Errorf("insert masked record: %w", err)
	}
	if joined {
		return nil
	}
	return tx.Commit()
}

func (s *PostgresPrivacyGapStore) ListMaskedByChild(ctx context.Context, childID id.ChildID) ([]*privacygap.MaskedDataRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT child_id, period_start, period_end, reason, created_at
		FROM masked_data_records
		WHERE child_id = $1
		ORDER BY period_start
	`, string(childID))
	if err != nil {
		return nil, fmt.Errorf("list masked records: %w", err)
	}
	defer rows.Close()

	var out []*privacygap.MaskedDataRecord
	for rows.Next() {
		var (
			r          privacygap.MaskedDataRecord
			childIDStr string
		)
		if err := rows.Scan(&childIDStr, &r.PeriodStart, &r.PeriodEnd, &r.Reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan masked record: %w", err)
		}
		r.ChildID = id.ChildID(childIDStr)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresPrivacyGapStore) ListAppliedGapsByChild(ctx context.Context, childID id.ChildID) ([]*privacygap.SignalPrivacyGap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT signal_id, child_id, start_time, end_time, applied, applied_at, created_at
		FROM signal_privacy_gaps
		WHERE child_id = $1 AND applied = TRUE
	`, string(childID))
	if err != nil {
		return nil, fmt.Errorf("list applied privacy gaps: %w", err)
	}
	defer rows.Close()

	var out []*privacygap.SignalPrivacyGap
	for rows.Next() {
		var (
			gap            privacygap.SignalPrivacyGap
			sigID, childID string
			appliedAt      sql.NullTime
		)
		if err := rows.Scan(&sigID, &childID, &gap.StartTime, &gap.EndTime, &gap.Applied, &appliedAt, &gap.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan privacy gap: %w", err)
		}
		gap.SignalID = id.SignalID(sigID)
		gap.ChildID = id.ChildID(childID)
		if appliedAt.Valid {
			gap.AppliedAt = &appliedAt.Time
		}
		out = append(out, &gap)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	type sqlState interface{ SQLState() string }
	var st sqlState
	if errors.As(err, &st) {
		return st.SQLState() == "23505"
	}
	return false
}
