// Package legal tracks law enforcement and court data requests against
// isolated signals, from intake through review to fulfillment.
package legal

import (
	"time"

	id "beacon/pkg/domain"
)

// LegalRequest is one legal instrument demanding signal data. Status moves
// pending_legal_review -> approved|denied, approved -> fulfilled. Nothing
// moves backwards.
type LegalRequest struct {
	ID                id.RequestID          `json:"id"`
	Type              id.LegalRequestType   `json:"type"`
	RequestingAgency  string                `json:"requesting_agency"`
	Jurisdiction      id.Jurisdiction       `json:"jurisdiction"`
	DocumentReference string                `json:"document_reference"`
	SignalIDs         []id.SignalID         `json:"signal_ids"`
	Status            id.LegalRequestStatus `json:"status"`
	LoggedBy          id.OperatorID         `json:"logged_by"`
	LoggedAt          time.Time             `json:"logged_at"`
	ReviewedBy        *id.OperatorID        `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time            `json:"reviewed_at,omitempty"`
	DenialReason      *string               `json:"denial_reason,omitempty"`
	FulfilledBy       *id.OperatorID        `json:"fulfilled_by,omitempty"`
	FulfilledAt       *time.Time            `json:"fulfilled_at,omitempty"`
}

// Disclosure is one decrypted signal payload released under a fulfilled
// request.
type Disclosure struct {
	SignalID id.SignalID `json:"signal_id"`
	Payload  []byte      `json:"payload,omitempty"`
	// Missing marks signals whose key was purged before fulfillment; the
	// bundle discloses that fact rather than silently dropping the signal.
	Missing bool `json:"missing,omitempty"`
}

// FulfillmentResult is the structured outcome of a fulfillment attempt. A
// refused fulfillment is a result, not an error: the caller gets the reason
// and the request is left untouched.
type FulfillmentResult struct {
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Request     *LegalRequest `json:"request,omitempty"`
	Disclosures []Disclosure  `json:"disclosures,omitempty"`
}
