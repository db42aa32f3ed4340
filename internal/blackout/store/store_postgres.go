package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"beacon/internal/blackout"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

type PostgresBlackoutStore struct {
	db *sql.DB
}

func NewPostgresBlackoutStore(db *sql.DB) *PostgresBlackoutStore {
	return &PostgresBlackoutStore{db: db}
}

func (s *PostgresBlackoutStore) Create(ctx context.Context, b *blackout.Blackout) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blackouts (id, family_id, signal_id, start_time, end_time, active, extended, completed, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		string(b.ID), string(b.FamilyID), string(b.SignalID),
		b.StartTime, b.EndTime, b.Active, b.Extended, b.Completed, b.CompletedAt, b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert blackout: %w", err)
	}
	return nil
}

func (s *PostgresBlackoutStore) FindByID(ctx context.Context, blackoutID id.BlackoutID) (*blackout.Blackout, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, family_id, signal_id, start_time, end_time, active, extended, completed, completed_at, created_at
		FROM blackouts
		WHERE id = $1
	`, string(blackoutID))
	return scanBlackout(row)
}

func (s *PostgresBlackoutStore) FindActiveByFamily(ctx context.Context, familyID id.FamilyID) (*blackout.Blackout, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, family_id, signal_id, start_time, end_time, active, extended, completed, completed_at, created_at
		FROM blackouts
		WHERE family_id = $1 AND active = TRUE
		ORDER BY end_time DESC
		LIMIT 1
	`, string(familyID))
	return scanBlackout(row)
}

func (s *PostgresBlackoutStore) FindActiveBySignal(ctx context.Context, signalID id.SignalID) (*blackout.Blackout, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, family_id, signal_id, start_time, end_time, active, extended, completed, completed_at, created_at
		FROM blackouts
		WHERE signal_id = $1 AND active = TRUE
		ORDER BY end_time DESC
		LIMIT 1
	`, string(signalID))
	return scanBlackout(row)
}

func (s *PostgresBlackoutStore) Update(ctx context.Context, b *blackout.Blackout) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE blackouts
		SET end_time = $2, active = $3, extended = $4, completed = $5, completed_at = $6
		WHERE id = $1
	`, string(b.ID), b.EndTime, b.Active, b.Extended, b.Completed, b.CompletedAt)
	if err != nil {
		return fmt.Errorf("update blackout: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update blackout: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresBlackoutStore) ListDue(ctx context.Context, now time.Time) ([]*blackout.Blackout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, family_id, signal_id, start_time, end_time, active, extended, completed, completed_at, created_at
		FROM blackouts
		WHERE active = TRUE AND end_time <= $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list due blackouts: %w", err)
	}
	defer rows.Close()

	var out []*blackout.Blackout
	for rows.Next() {
		b, err := scanBlackout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresBlackoutStore) ListUncompleted(ctx context.Context) ([]*blackout.Blackout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, family_id, signal_id, start_time, end_time, active, extended, completed, completed_at, created_at
		FROM blackouts
		WHERE active = FALSE AND completed = FALSE
	`)
	if err != nil {
		return nil, fmt.Errorf("list uncompleted blackouts: %w", err)
	}
	defer rows.Close()

	var out []*blackout.Blackout
	for rows.Next() {
		b, err := scanBlackout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlackout(row rowScanner) (*blackout.Blackout, error) {
	var (
		b                         blackout.Blackout
		blkID, familyID, signalID string
		completedAt               sql.NullTime
	)
	err := row.Scan(&blkID, &familyID, &signalID, &b.StartTime, &b.EndTime, &b.Active, &b.Extended, &b.Completed, &completedAt, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan blackout: %w", err)
	}
	b.ID = id.BlackoutID(blkID)
	b.FamilyID = id.FamilyID(familyID)
	b.SignalID = id.SignalID(signalID)
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

func isUniqueViolation(err error) bool {
	type sqlState interface{ SQLState() string }
	var st sqlState
	if errors.As(err, &st) {
		return st.SQLState() == "23505"
	}
	return false
}
