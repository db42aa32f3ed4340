package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"beacon/internal/vault"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// PostgresVaultStore persists isolated signals. The handle it is constructed
// with must point at the vault database, never the family database; main is
// the only place both handles exist and it never passes this one elsewhere.
type PostgresVaultStore struct {
	db *sql.DB
}

func NewPostgresVaultStore(db *sql.DB) *PostgresVaultStore {
	return &PostgresVaultStore{db: db}
}

func (s *PostgresVaultStore) Create(ctx context.Context, record *vault.IsolatedSignal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO isolated_signals (signal_id, child_id, encrypted_payload, key_id, jurisdiction, stored_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		string(record.SignalID), string(record.ChildID), record.EncryptedPayload,
		string(record.KeyID), string(record.Jurisdiction), record.StoredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert isolated signal: %w", err)
	}
	return nil
}

func (s *PostgresVaultStore) FindBySignal(ctx context.Context, signalID id.SignalID) (*vault.IsolatedSignal, error) {
	var (
		record                              vault.IsolatedSignal
		sigID, childID, keyID, jurisdiction string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT signal_id, child_id, encrypted_payload, key_id, jurisdiction, stored_at
		FROM isolated_signals
		WHERE signal_id = $1
	`, string(signalID)).Scan(&sigID, &childID, &record.EncryptedPayload, &keyID, &jurisdiction, &record.StoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan isolated signal: %w", err)
	}
	record.SignalID = id.SignalID(sigID)
	record.ChildID = id.ChildID(childID)
	record.KeyID = id.KeyID(keyID)
	record.Jurisdiction = id.Jurisdiction(jurisdiction)
	return &record, nil
}

func (s *PostgresVaultStore) Delete(ctx context.Context, signalID id.SignalID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM isolated_signals WHERE signal_id = $1`, string(signalID))
	if err != nil {
		return fmt.Errorf("delete isolated signal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete isolated signal: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	type sqlState interface{ SQLState() string }
	var st sqlState
	if errors.As(err, &st) {
		return st.SQLState() == "23505"
	}
	return false
}
