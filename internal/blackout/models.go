// Package blackout manages notification blackout windows: the period after a
// crisis signal during which the family-facing product behaves as if nothing
// happened.
package blackout

import (
	"time"

	id "beacon/pkg/domain"
)

// Blackout is a per-family suppression window anchored to a signal. Extension
// moves EndTime forward only; nothing ever shortens a window. Completed
// records that the post-blackout steps (privacy gap, gap fill, suppression
// lift) finished; an expired window stays eligible for the completion sweep
// until then.
type Blackout struct {
	ID          id.BlackoutID `json:"id"`
	FamilyID    id.FamilyID   `json:"family_id"`
	SignalID    id.SignalID   `json:"signal_id"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Active      bool          `json:"active"`
	Extended    int           `json:"extended"`
	Completed   bool          `json:"completed"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// IsActiveAt reports whether the window covers the given instant.
func (b *Blackout) IsActiveAt(t time.Time) bool {
	return b.Active && !t.Before(b.StartTime) && t.Before(b.EndTime)
}
