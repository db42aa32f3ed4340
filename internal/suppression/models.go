// Package suppression filters outbound family notifications and audit trail
// entries while a crisis signal is being handled.
package suppression

import (
	"time"

	id "beacon/pkg/domain"
)

// NotificationSuppression is an active filter on a family's outbound surface.
// Scope depends on Type: "all" covers every notification, "signal_related"
// only those derived from the triggering signal, "audit_entries" the family
// audit trail.
type NotificationSuppression struct {
	ID        id.SuppressionID   `json:"id"`
	FamilyID  id.FamilyID        `json:"family_id"`
	SignalID  id.SignalID        `json:"signal_id"`
	Type      id.SuppressionType `json:"type"`
	ExpiresAt time.Time          `json:"expires_at"`
	Active    bool               `json:"active"`
	CreatedAt time.Time          `json:"created_at"`
}

// InEffectAt reports whether the suppression applies at the given instant.
func (n *NotificationSuppression) InEffectAt(t time.Time) bool {
	return n.Active && t.Before(n.ExpiresAt)
}

// Notification is the minimal shape the filter needs: who it would go to and
// whether it derives from a safety signal.
type Notification struct {
	FamilyID      id.FamilyID
	SignalRelated bool
	Recipients    []string
}

// AuditTrailEntry is a family-visible activity log line, distinct from the
// compliance audit log which is never suppressed.
type AuditTrailEntry struct {
	FamilyID      id.FamilyID
	SignalRelated bool
	Description   string
	OccurredAt    time.Time
}
