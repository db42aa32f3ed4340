// Package escalation records crisis partner escalation actions against a
// signal: assessments, mandatory reports, and law enforcement referrals.
package escalation

import (
	"time"

	id "beacon/pkg/domain"
)

// SignalEscalation is one escalation action. Every recording gets its own ID
// even when the inputs repeat, because two identical reports are still two
// reports.
type SignalEscalation struct {
	ID           id.EscalationID   `json:"id"`
	SignalID     id.SignalID       `json:"signal_id"`
	PartnerID    id.PartnerID      `json:"partner_id"`
	Type         id.EscalationType `json:"type"`
	Jurisdiction id.Jurisdiction   `json:"jurisdiction"`
	Details      string            `json:"details"`
	Sealed       bool              `json:"sealed"`
	SealedAt     *time.Time        `json:"sealed_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// CrisisPartner is a directory entry for an accredited crisis response
// organization. The pipeline reads the directory, it never manages it.
type CrisisPartner struct {
	ID           id.PartnerID `json:"id"`
	Name         string       `json:"name"`
	Jurisdiction string       `json:"jurisdiction"`
	Active       bool         `json:"active"`
}
