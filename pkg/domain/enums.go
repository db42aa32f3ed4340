package domain

import dErrors "beacon/pkg/domain-errors"

// TriggerMethod identifies how a child raised the safety signal.
type TriggerMethod string

const (
	TriggerButton   TriggerMethod = "panic_button"
	TriggerGesture  TriggerMethod = "gesture"
	TriggerCodeword TriggerMethod = "codeword"
	TriggerShake    TriggerMethod = "shake"
)

// Platform is the device platform the signal originated from.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
	PlatformUnknown Platform = "unknown"
)

// SuppressionType scopes what a notification suppression covers.
type SuppressionType string

const (
	// SuppressAll blocks every outbound notification touching the child.
	SuppressAll SuppressionType = "all"
	// SuppressSignalRelated blocks only notifications derived from the signal.
	SuppressSignalRelated SuppressionType = "signal_related"
	// SuppressAuditEntries blocks entries from the family audit trail.
	SuppressAuditEntries SuppressionType = "audit_entries"
)

var validSuppressionTypes = map[SuppressionType]bool{
	SuppressAll:           true,
	SuppressSignalRelated: true,
	SuppressAuditEntries:  true,
}

func (t SuppressionType) IsValid() bool { return validSuppressionTypes[t] }

// EscalationType classifies a crisis partner's investigative escalation.
type EscalationType string

const (
	EscalationAssessment             EscalationType = "assessment"
	EscalationMandatoryReport        EscalationType = "mandatory_report"
	EscalationLawEnforcementReferral EscalationType = "law_enforcement_referral"
)

var validEscalationTypes = map[EscalationType]bool{
	EscalationAssessment:             true,
	EscalationMandatoryReport:        true,
	EscalationLawEnforcementReferral: true,
}

// ParseEscalationType constructs an EscalationType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseEscalationType(s string) (EscalationType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "escalation type cannot be empty")
	}
	t := EscalationType(s)
	if !validEscalationTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid escalation type")
	}
	return t, nil
}

func (t EscalationType) IsValid() bool { return validEscalationTypes[t] }

// LegalRequestType classifies the legal instrument behind a data request.
type LegalRequestType string

const (
	LegalSubpoena            LegalRequestType = "subpoena"
	LegalWarrant             LegalRequestType = "warrant"
	LegalCourtOrder          LegalRequestType = "court_order"
	LegalEmergencyDisclosure LegalRequestType = "emergency_disclosure"
)

var validLegalRequestTypes = map[LegalRequestType]bool{
	LegalSubpoena:            true,
	LegalWarrant:             true,
	LegalCourtOrder:          true,
	LegalEmergencyDisclosure: true,
}

// ParseLegalRequestType constructs a LegalRequestType from external input.
func ParseLegalRequestType(s string) (LegalRequestType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "request type cannot be empty")
	}
	t := LegalRequestType(s)
	if !validLegalRequestTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid request type")
	}
	return t, nil
}

func (t LegalRequestType) IsValid() bool { return validLegalRequestTypes[t] }

// LegalRequestStatus is the review lifecycle of a legal request.
// Transitions are one-directional: pending_legal_review -> approved|denied,
// approved -> fulfilled. There is no path out of denied or fulfilled.
type LegalRequestStatus string

const (
	LegalStatusPendingReview LegalRequestStatus = "pending_legal_review"
	LegalStatusApproved      LegalRequestStatus = "approved"
	LegalStatusDenied        LegalRequestStatus = "denied"
	LegalStatusFulfilled     LegalRequestStatus = "fulfilled"
)

// Jurisdiction is an ISO-style region code used for retention routing.
// Unrecognized values fall back to the conservative DEFAULT retention policy,
// so no allowlist parse is applied here.
type Jurisdiction string

const (
	JurisdictionDefault Jurisdiction = "DEFAULT"
	JurisdictionUS      Jurisdiction = "US"
	JurisdictionEU      Jurisdiction = "EU"
	JurisdictionUK      Jurisdiction = "UK"
	JurisdictionCA      Jurisdiction = "CA"
	JurisdictionAU      Jurisdiction = "AU"
)

func (j Jurisdiction) String() string { return string(j) }
