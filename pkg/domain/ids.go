// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "beacon/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a ChildID where a SignalID is
// expected, which matters here because family-scoped and signal-scoped IDs
// must never cross the isolation boundary unnoticed.
type (
	SignalID      string
	ChildID       string
	FamilyID      string
	DeviceID      string
	KeyID         string
	BlackoutID    string
	PartnerID     string
	EscalationID  string
	RequestID     string
	OperatorID    string
	SuppressionID string
)

// NewSignalID generates a fresh signal identifier.
func NewSignalID() SignalID { return SignalID("sig-" + uuid.NewString()) }

// NewKeyID generates a fresh encryption key identifier.
func NewKeyID() KeyID { return KeyID("key-" + uuid.NewString()) }

// NewBlackoutID generates a fresh blackout identifier.
func NewBlackoutID() BlackoutID { return BlackoutID("blk-" + uuid.NewString()) }

// NewEscalationID generates a fresh escalation identifier. Every call yields a
// distinct ID even for identical escalation inputs.
func NewEscalationID() EscalationID { return EscalationID("esc-" + uuid.NewString()) }

// NewRequestID generates a fresh legal request identifier.
func NewRequestID() RequestID { return RequestID("req-" + uuid.NewString()) }

// NewSuppressionID generates a fresh suppression identifier.
func NewSuppressionID() SuppressionID { return SuppressionID("sup-" + uuid.NewString()) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseSignalID(s string) (SignalID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "signal ID cannot be empty")
	}
	return SignalID(s), nil
}

func ParseChildID(s string) (ChildID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "child ID cannot be empty")
	}
	return ChildID(s), nil
}

func ParseRequestID(s string) (RequestID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "request ID cannot be empty")
	}
	return RequestID(s), nil
}

func ParseOperatorID(s string) (OperatorID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "operator ID cannot be empty")
	}
	return OperatorID(s), nil
}

// String methods - for logging and debugging.

func (id SignalID) String() string      { return string(id) }
func (id ChildID) String() string       { return string(id) }
func (id FamilyID) String() string      { return string(id) }
func (id DeviceID) String() string      { return string(id) }
func (id KeyID) String() string         { return string(id) }
func (id BlackoutID) String() string    { return string(id) }
func (id PartnerID) String() string     { return string(id) }
func (id EscalationID) String() string  { return string(id) }
func (id RequestID) String() string     { return string(id) }
func (id OperatorID) String() string    { return string(id) }
func (id SuppressionID) String() string { return string(id) }

// IsNil checks - used for service-layer validation.

func (id SignalID) IsNil() bool      { return id == "" }
func (id ChildID) IsNil() bool       { return id == "" }
func (id FamilyID) IsNil() bool      { return id == "" }
func (id DeviceID) IsNil() bool      { return id == "" }
func (id KeyID) IsNil() bool         { return id == "" }
func (id BlackoutID) IsNil() bool    { return id == "" }
func (id PartnerID) IsNil() bool     { return id == "" }
func (id EscalationID) IsNil() bool  { return id == "" }
func (id RequestID) IsNil() bool     { return id == "" }
func (id OperatorID) IsNil() bool    { return id == "" }
func (id SuppressionID) IsNil() bool { return id == "" }
