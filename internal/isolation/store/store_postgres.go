package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"beacon/internal/isolation"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// PostgresKeyStore persists key records in the signal_encryption_keys table.
// The table schema deliberately has no family column; the isolation invariant
// is structural, not a convention.
type PostgresKeyStore struct {
	db *sql.DB
}

func NewPostgresKeyStore(db *sql.DB) *PostgresKeyStore {
	return &PostgresKeyStore{db: db}
}

func (s *PostgresKeyStore) Save(ctx context.Context, key *isolation.SignalEncryptionKey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signal_encryption_keys (id, signal_id, algorithm, key_reference, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, string(key.ID), string(key.SignalID), key.Algorithm, key.KeyReference, key.CreatedAt)
	if err != nil {
		// signal_id carries a unique constraint: one key per signal.
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert signal key: %w", err)
	}
	return nil
}

func (s *PostgresKeyStore) FindByID(ctx context.Context, keyID id.KeyID) (*isolation.SignalEncryptionKey, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, signal_id, algorithm, key_reference, created_at
		FROM signal_encryption_keys
		WHERE id = $1
	`, string(keyID)))
}

func (s *PostgresKeyStore) FindBySignal(ctx context.Context, signalID id.SignalID) (*isolation.SignalEncryptionKey, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, signal_id, algorithm, key_reference, created_at
		FROM signal_encryption_keys
		WHERE signal_id = $1
	`, string(signalID)))
}

func (s *PostgresKeyStore) Delete(ctx context.Context, keyID id.KeyID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM signal_encryption_keys WHERE id = $1
	`, string(keyID))
	if err != nil {
		return fmt.Errorf("delete signal key: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete signal key: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresKeyStore) scanOne(row *sql.Row) (*isolation.SignalEncryptionKey, error) {
	var (
		key      isolation.SignalEncryptionKey
		keyID    string
		signalID string
	)
	err := row.Scan(&keyID, &signalID, &key.Algorithm, &key.KeyReference, &key.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan signal key: %w", err)
	}
	key.ID = id.KeyID(keyID)
	key.SignalID = id.SignalID(signalID)
	return &key, nil
}

// isUniqueViolation matches the postgres unique_violation SQLSTATE without
// binding this file to a specific driver's error type.
func isUniqueViolation(err error) bool {
	type sqlState interface{ SQLState() string }
	var st sqlState
	if errors.As(err, &st) {
		return st.SQLState() == "23505"
	}
	return false
}
