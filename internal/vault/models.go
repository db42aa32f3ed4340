// Package vault is the isolated signal store. Records here live in a storage
// namespace with no code path from any family-scoped store: the postgres
// implementation takes its own database handle (separate DSN, separate
// credentials) and the in-memory implementation is a distinct instance that
// is never handed to family-facing code.
package vault

import (
	"time"

	id "beacon/pkg/domain"
)

// IsolatedSignal is the encrypted payload record, keyed by signal ID.
// There is no update-in-place: create and gated delete only.
type IsolatedSignal struct {
	SignalID         id.SignalID
	ChildID          id.ChildID
	EncryptedPayload []byte
	KeyID            id.KeyID
	Jurisdiction     id.Jurisdiction
	StoredAt         time.Time
}
