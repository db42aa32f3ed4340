package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "beacon/pkg/domain"
	audit "beacon/pkg/platform/audit"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to both the queryable audit_events table and the outbox
// table; the outbox worker publishes outbox rows to Kafka for downstream
// compliance sinks.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// outboxPayload is the JSON structure published to Kafka.
// Field names match audit.Event for deserialization by the consumer.
type outboxPayload struct {
	ID         string `json:"ID"`
	Category   string `json:"Category"`
	Timestamp  string `json:"Timestamp"`
	SignalID   string `json:"SignalID,omitempty"`
	Action     string `json:"Action"`
	OperatorID string `json:"OperatorID,omitempty"`
	Reason     string `json:"Reason,omitempty"`
	Decision   string `json:"Decision,omitempty"`
	RequestID  string `json:"RequestID,omitempty"`
}

// Append writes an audit event to audit_events and enqueues it in the outbox.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Always derive category from action - eventCategories map is the source of truth
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	payload := outboxPayload{
		ID:         eventID.String(),
		Category:   string(category),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		SignalID:   string(event.SignalID),
		Action:     event.Action,
		OperatorID: string(event.OperatorID),
		Reason:     event.Reason,
		Decision:   event.Decision,
		RequestID:  event.RequestID,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, category, timestamp, signal_id, action,
			operator_id, reason, decision, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`,
		eventID,
		string(category),
		event.Timestamp,
		string(event.SignalID),
		event.Action,
		string(event.OperatorID),
		event.Reason,
		event.Decision,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.New(), // outbox entry ID
		"signal",
		string(event.SignalID),
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}

	return tx.Commit()
}

// ListBySignal returns events for a specific signal, newest first.
func (s *Store) ListBySignal(ctx context.Context, signalID id.SignalID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, timestamp, signal_id, action,
			   operator_id, reason, decision, request_id
		FROM audit_events
		WHERE signal_id = $1
		ORDER BY timestamp DESC
	`, string(signalID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, timestamp, signal_id, action,
			   operator_id, reason, decision, request_id
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// OutboxEntry is an unprocessed outbox row waiting for Kafka publication.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// FetchUnprocessed returns up to limit unprocessed outbox entries in insertion order.
func (s *Store) FetchUnprocessed(ctx context.Context, limit int) ([]OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM audit_outbox
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkProcessed stamps an outbox entry as published.
func (s *Store) MarkProcessed(ctx context.Context, entryID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET processed_at = $1 WHERE id = $2
	`, time.Now(), entryID)
	if err != nil {
		return fmt.Errorf("mark outbox entry processed: %w", err)
	}
	return nil
}

// scanEvents scans multiple rows into an audit.Event slice.
func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category   string
			signalID   string
			operatorID string
			event      audit.Event
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&signalID,
			&event.Action,
			&operatorID,
			&event.Reason,
			&event.Decision,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		event.SignalID = id.SignalID(signalID)
		event.OperatorID = id.OperatorID(operatorID)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
