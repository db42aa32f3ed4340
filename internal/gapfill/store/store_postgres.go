package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"beacon/internal/gapfill"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

type PostgresPatternStore struct {
	db *sql.DB
}

func NewPostgresPatternStore(db *sql.DB) *PostgresPatternStore {
	return &PostgresPatternStore{db: db}
}

func (s *PostgresPatternStore) Save(ctx context.Context, pattern *gapfill.ActivityPattern) error {
	categories, err := json.Marshal(pattern.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activity_patterns (child_id, categories, quiet_start_hour, quiet_end_hour, typical_session_minutes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (child_id) DO UPDATE
		SET categories = EXCLUDED.categories,
			quiet_start_hour = EXCLUDED.quiet_start_hour,
			quiet_end_hour = EXCLUDED.quiet_end_hour,
			typical_session_minutes = EXCLUDED.typical_session_minutes
	`,
		string(pattern.ChildID), categories,
		pattern.QuietStartHour, pattern.QuietEndHour, pattern.TypicalSessionMinutes,
	)
	if err != nil {
		return fmt.Errorf("save activity pattern: %w", err)
	}
	return nil
}

func (s *PostgresPatternStore) FindByChild(ctx context.Context, childID id.ChildID) (*gapfill.ActivityPattern, error) {
	var (
		pattern    gapfill.ActivityPattern
		childIDStr string
		categories []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT child_id, categories, quiet_start_hour, quiet_end_hour, typical_session_minutes
		FROM activity_patterns
		WHERE child_id = $1
	`, string(childID)).Scan(&childIDStr, &categories, &pattern.QuietStartHour, &pattern.QuietEndHour, &pattern.TypicalSessionMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan activity pattern: %w", err)
	}
	if err := json.Unmarshal(categories, &pattern.Categories); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}
	pattern.ChildID = id.ChildID(childIDStr)
	return &pattern, nil
}

type PostgresActivityStore struct {
	db *sql.DB
}

func NewPostgresActivityStore(db *sql.DB) *PostgresActivityStore {
	return &PostgresActivityStore{db: db}
}

func (s *PostgresActivityStore) Append(ctx context.Context, entries []*gapfill.ActivityEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activity append: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO activity_entries (child_id, category, start_time, end_time, synthetic)
			VALUES ($1, $2, $3, $4, $5)
		`, string(e.ChildID), e.Category, e.StartTime, e.EndTime, e.Synthetic); err != nil {
			return fmt.Errorf("insert activity entry: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresActivityStore) ListByChild(ctx context.Context, childID id.ChildID, from, to time.Time) ([]*gapfill.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT child_id, category, start_time, end_time, synthetic
		FROM activity_entries
		WHERE child_id = $1 AND end_time >= $2 AND start_time <= $3
		ORDER BY start_time
	`, string(childID), from, to)
	if err != nil {
		return nil, fmt.Errorf("list activity entries: %w", err)
	}
	defer rows.Close()

	var out []*gapfill.ActivityEntry
	for rows.Next() {
		var (
			e          gapfill.ActivityEntry
			childIDStr string
		)
		if err := rows.Scan(&childIDStr, &e.Category, &e.StartTime, &e.EndTime, &e.Synthetic); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		e.ChildID = id.ChildID(childIDStr)
		out = append(out, &e)
	}
	return out, rows.Err()
}
