package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"beacon/internal/escalation"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

type PostgresEscalationStore struct {
	db *sql.DB
}

func NewPostgresEscalationStore(db *sql.DB) *PostgresEscalationStore {
	return &PostgresEscalationStore{db: db}
}

func (s *PostgresEscalationStore) Create(ctx context.Context, esc *escalation.SignalEscalation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signal_escalations (id, signal_id, partner_id, type, jurisdiction, details, sealed, sealed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		string(esc.ID), string(esc.SignalID), string(esc.PartnerID),
		string(esc.Type), string(esc.Jurisdiction), esc.Details, esc.Sealed, esc.SealedAt, esc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert escalation: %w", err)
	}
	return nil
}

func (s *PostgresEscalationStore) FindByID(ctx context.Context, escalationID id.EscalationID) (*escalation.SignalEscalation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, signal_id, partner_id, type, jurisdiction, details, sealed, sealed_at, created_at
		FROM signal_escalations
		WHERE id = $1
	`, string(escalationID))
	return scanEscalation(row)
}

func (s *PostgresEscalationStore) Update(ctx context.Context, esc *escalation.SignalEscalation) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE signal_escalations
		SET sealed = $2, sealed_at = $3
		WHERE id = $1
	`, string(esc.ID), esc.Sealed, esc.SealedAt)
	if err != nil {
		return fmt.Errorf("update escalation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update escalation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresEscalationStore) ListBySignal(ctx context.Context, signalID id.SignalID) ([]*escalation.SignalEscalation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, signal_id, partner_id, type, jurisdiction, details, sealed, sealed_at, created_at
		FROM signal_escalations
		WHERE signal_id = $1
		ORDER BY created_at
	`, string(signalID))
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	defer rows.Close()

	var out []*escalation.SignalEscalation
	for rows.Next() {
		esc, err := scanEscalation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, esc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEscalation(row rowScanner) (*escalation.SignalEscalation, error) {
	var (
		esc                                            escalation.SignalEscalation
		escID, sigID, partnerID, escType, jurisdiction string
		sealedAt                                       sql.NullTime
	)
	err := row.Scan(&escID, &sigID, &partnerID, &escType, &jurisdiction, &esc.Details, &esc.Sealed, &sealedAt, &esc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan escalation: %w", err)
	}
	esc.ID = id.EscalationID(escID)
	esc.SignalID = id.SignalID(sigID)
	esc.PartnerID = id.PartnerID(partnerID)
	esc.Type = id.EscalationType(escType)
	esc.Jurisdiction = id.Jurisdiction(jurisdiction)
	if sealedAt.Valid {
		esc.SealedAt = &sealedAt.Time
	}
	return &esc, nil
}

func isUniqueViolation(err error) bool {
	type sqlState interface{ SQLState() string }
	var st sqlState
	if errors.As(err, &st) {
		return st.SQLState() == "23505"
	}
	return false
}
