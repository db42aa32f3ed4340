package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"beacon/internal/ingest"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// PostgresSignalStore persists safety signals in the safety_signals table.
type PostgresSignalStore struct {
	db *sql.DB
}

func NewPostgresSignalStore(db *sql.DB) *PostgresSignalStore {
	return &PostgresSignalStore{db: db}
}

func (s *PostgresSignalStore) Save(ctx context.Context, signal *ingest.SafetySignal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO safety_signals (
			id, child_id, trigger_method, platform, status,
			triggered_at, delivered_at, device_id, is_offline
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		string(signal.ID), string(signal.ChildID), string(signal.TriggerMethod),
		string(signal.Platform), string(signal.Status),
		signal.TriggeredAt, signal.DeliveredAt, string(signal.DeviceID), signal.IsOffline,
	)
	if err != nil {
		return fmt.Errorf("insert safety signal: %w", err)
	}
	return nil
}

func (s *PostgresSignalStore) FindByID(ctx context.Context, signalID id.SignalID) (*ingest.SafetySignal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, child_id, trigger_method, platform, status,
			   triggered_at, delivered_at, device_id, is_offline
		FROM safety_signals
		WHERE id = $1
	`, string(signalID))

	return scanSignal(row)
}

func (s *PostgresSignalStore) Update(ctx context.Context, signal *ingest.SafetySignal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE safety_signals
		SET status = $2, delivered_at = $3
		WHERE id = $1
	`, string(signal.ID), string(signal.Status), signal.DeliveredAt)
	if err != nil {
		return fmt.Errorf("update safety signal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update safety signal: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresSignalStore) Delete(ctx context.Context, signalID id.SignalID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM safety_signals WHERE id = $1`, string(signalID))
	if err != nil {
		return fmt.Errorf("delete safety signal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete safety signal: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanSignal(row *sql.Row) (*ingest.SafetySignal, error) {
	var (
		signal                                            ingest.SafetySignal
		sigID, childID, trigger, platform, status, device string
	)
	err := row.Scan(&sigID, &childID, &trigger, &platform, &status,
		&signal.TriggeredAt, &signal.DeliveredAt, &device, &signal.IsOffline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan safety signal: %w", err)
	}
	signal.ID = id.SignalID(sigID)
	signal.ChildID = id.ChildID(childID)
	signal.TriggerMethod = id.TriggerMethod(trigger)
	signal.Platform = id.Platform(platform)
	signal.Status = id.SignalStatus(status)
	signal.DeviceID = id.DeviceID(device)
	return &signal, nil
}

// PostgresOfflineQueue persists offline queue entries.
type PostgresOfflineQueue struct {
	db *sql.DB
}

func NewPostgresOfflineQueue(db *sql.DB) *PostgresOfflineQueue {
	return &PostgresOfflineQueue{db: db}
}

func (q *PostgresOfflineQueue) Enqueue(ctx context.Context, entry *ingest.OfflineQueueEntry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO offline_queue (signal_id, child_id, retry_count, last_retry_at, enqueued_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (signal_id) DO NOTHING
	`, string(entry.SignalID), string(entry.ChildID), entry.RetryCount, entry.LastRetryAt, entry.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("enqueue offline entry: %w", err)
	}
	return nil
}

func (q *PostgresOfflineQueue) ListByChild(ctx context.Context, childID id.ChildID) ([]*ingest.OfflineQueueEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT signal_id, child_id, retry_count, last_retry_at, enqueued_at
		FROM offline_queue
		WHERE child_id = $1
		ORDER BY enqueued_at
	`, string(childID))
	if err != nil {
		return nil, fmt.Errorf("query offline queue: %w", err)
	}
	defer rows.Close()

	var entries []*ingest.OfflineQueueEntry
	for rows.Next() {
		var (
			e                ingest.OfflineQueueEntry
			sigID, childIDDB string
		)
		if err := rows.Scan(&sigID, &childIDDB, &e.RetryCount, &e.LastRetryAt, &e.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("scan offline entry: %w", err)
		}
		e.SignalID = id.SignalID(sigID)
		e.ChildID = id.ChildID(childIDDB)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (q *PostgresOfflineQueue) Remove(ctx context.Context, signalID id.SignalID) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM offline_queue WHERE signal_id = $1`, string(signalID))
	if err != nil {
		return fmt.Errorf("remove offline entry: %w", err)
	}
	return nil
}
