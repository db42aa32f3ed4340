package audit

import (
	"time"

	id "beacon/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention (e.g., 7 years).
	// Examples: key decrypts, legal hold changes, legal request fulfillment.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// Examples: isolation verification failures, denied fulfillment attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// Examples: blackout expiry sweeps, offline queue processing.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions on the crisis
// pipeline's admin audit log. Keep it transport-agnostic so stores and sinks
// can fan out.
//
// Invariant: Event never carries a family identifier. The admin audit log is
// operator-facing; family-facing trails go through the suppression guard
// instead.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	SignalID  id.SignalID
	Action    string
	// OperatorID is the authorization/operator identity the action was
	// performed under. Required for compliance events.
	OperatorID id.OperatorID
	Reason     string
	Decision   string
	RequestID  string
}

type AuditEvent string

const (
	// Isolation events
	EventKeyGenerated       AuditEvent = "signal_key_generated"
	EventKeyDeleted         AuditEvent = "signal_key_deleted"
	EventPayloadDecrypted   AuditEvent = "signal_payload_decrypted"
	EventIsolationViolation AuditEvent = "isolation_violation_detected"

	// Retention events
	EventLegalHoldPlaced  AuditEvent = "legal_hold_placed"
	EventLegalHoldRemoved AuditEvent = "legal_hold_removed"
	EventSignalDeleted    AuditEvent = "signal_deleted"

	// Blackout events
	EventBlackoutCreated  AuditEvent = "blackout_created"
	EventBlackoutExtended AuditEvent = "blackout_extended"
	EventBlackoutExpired  AuditEvent = "blackout_expired"
	EventPrivacyGapMasked AuditEvent = "privacy_gap_masked"

	// Escalation events
	EventEscalationRecorded AuditEvent = "escalation_recorded"
	EventEscalationSealed   AuditEvent = "escalation_sealed"

	// Legal request events
	EventLegalRequestLogged    AuditEvent = "legal_request_logged"
	EventLegalRequestApproved  AuditEvent = "legal_request_approved"
	EventLegalRequestDenied    AuditEvent = "legal_request_denied"
	EventLegalRequestFulfilled AuditEvent = "legal_request_fulfilled"
	EventFulfillmentRefused    AuditEvent = "legal_request_fulfillment_refused"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Security: security monitoring and forensics.
// Operations: debugging and operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	EventPayloadDecrypted:      CategoryCompliance,
	EventLegalHoldPlaced:       CategoryCompliance,
	EventLegalHoldRemoved:      CategoryCompliance,
	EventSignalDeleted:         CategoryCompliance,
	EventLegalRequestLogged:    CategoryCompliance,
	EventLegalRequestApproved:  CategoryCompliance,
	EventLegalRequestDenied:    CategoryCompliance,
	EventLegalRequestFulfilled: CategoryCompliance,
	EventEscalationRecorded:    CategoryCompliance,
	EventEscalationSealed:      CategoryCompliance,

	EventIsolationViolation: CategorySecurity,
	EventFulfillmentRefused: CategorySecurity,

	EventKeyGenerated:     CategoryOperations,
	EventKeyDeleted:       CategoryOperations,
	EventBlackoutCreated:  CategoryOperations,
	EventBlackoutExtended: CategoryOperations,
	EventBlackoutExpired:  CategoryOperations,
	EventPrivacyGapMasked: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
