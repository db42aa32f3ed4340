package retention

import (
	"time"

	id "beacon/pkg/domain"
)

// Policy is the static retention rule for a jurisdiction.
type Policy struct {
	Jurisdiction         id.Jurisdiction
	MinimumRetentionDays int
	MaximumRetentionDays *int
	LegalBasis           string
}

// SignalRetentionStatus tracks where a single signal stands against its
// jurisdiction's policy. Created once per signal; only the legal hold fields
// ever change afterwards.
type SignalRetentionStatus struct {
	SignalID           id.SignalID
	Jurisdiction       id.Jurisdiction
	RetentionStartDate time.Time
	MinimumRetainUntil time.Time
	LegalHold          bool
	LegalHoldReason    *string
	HoldPlacedAt       *time.Time
	HoldPlacedBy       *id.OperatorID
}

// DeletionDecision is the outcome of the deletion gate check.
type DeletionDecision struct {
	CanDelete bool
	Reason    string
}

func days(n int) int { return n }

// policies is the per-jurisdiction table. The DEFAULT entry is deliberately
// conservative: an unrecognized jurisdiction must never retain for less than
// seven years.
var policies = map[id.Jurisdiction]Policy{
	id.JurisdictionDefault: {
		Jurisdiction:         id.JurisdictionDefault,
		MinimumRetentionDays: days(7 * 365),
		LegalBasis:           "conservative default pending jurisdiction review",
	},
	id.JurisdictionUS: {
		Jurisdiction:         id.JurisdictionUS,
		MinimumRetentionDays: days(7 * 365),
		LegalBasis:           "state mandatory-reporting record statutes",
	},
	id.JurisdictionEU: {
		Jurisdiction:         id.JurisdictionEU,
		MinimumRetentionDays: days(5 * 365),
		MaximumRetentionDays: ptr(days(10 * 365)),
		LegalBasis:           "GDPR Art. 6(1)(c) with member-state child protection law",
	},
	id.JurisdictionUK: {
		Jurisdiction:         id.JurisdictionUK,
		MinimumRetentionDays: days(6 * 365),
		LegalBasis:           "Limitation Act civil claim window",
	},
	id.JurisdictionCA: {
		Jurisdiction:         id.JurisdictionCA,
		MinimumRetentionDays: days(7 * 365),
		LegalBasis:           "provincial child and family services acts",
	},
	id.JurisdictionAU: {
		Jurisdiction:         id.JurisdictionAU,
		MinimumRetentionDays: days(7 * 365),
		LegalBasis:           "state mandatory reporter record keeping",
	},
}

func ptr[T any](v T) *T { return &v }

// PolicyFor returns the policy for a jurisdiction, falling back to DEFAULT.
// The fallback is deliberate: absence of an explicit policy must never reduce
// retention below the conservative default.
func PolicyFor(jurisdiction id.Jurisdiction) Policy {
	if p, ok := policies[jurisdiction]; ok {
		return p
	}
	return policies[id.JurisdictionDefault]
}
