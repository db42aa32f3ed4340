package isolation

import (
	"time"

	id "beacon/pkg/domain"
)

// AlgorithmAES256GCM is the only algorithm the pipeline uses. The field
// exists so stored records are self-describing if the algorithm ever rotates.
const AlgorithmAES256GCM = "AES-256-GCM"

// SignalEncryptionKey is the stored record for a per-signal encryption key.
//
// Invariant: the record never contains a family identifier, directly or
// indirectly. Key material itself is never stored; KeyReference is an opaque
// handle the keyring resolves at use time. VerifyIsolation exists to let
// automated tests continuously prove this invariant against the serialized
// record, not just the struct definition.
type SignalEncryptionKey struct {
	ID           id.KeyID    `json:"id"`
	SignalID     id.SignalID `json:"signal_id"`
	Algorithm    string      `json:"algorithm"`
	KeyReference string      `json:"key_reference"`
	CreatedAt    time.Time   `json:"created_at"`
}
