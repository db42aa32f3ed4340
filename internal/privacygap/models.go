// Package privacygap permanently masks the data collected around a crisis
// signal. Where gapfill hides a window while it is open, a privacy gap makes
// the masking durable after the blackout closes.
package privacygap

import (
	"time"

	id "beacon/pkg/domain"
)

// MaskReasonBlackout is the reason recorded on masked data produced by a
// signal blackout.
const MaskReasonBlackout = "signal_blackout"

// SignalPrivacyGap marks a window of a child's data for permanent masking.
// Applied flips exactly once, when the post-blackout apply runs.
type SignalPrivacyGap struct {
	SignalID  id.SignalID `json:"signal_id"`
	ChildID   id.ChildID  `json:"child_id"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Applied   bool        `json:"applied"`
	AppliedAt *time.Time  `json:"applied_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Covers reports whether the gap spans the given instant.
func (g *SignalPrivacyGap) Covers(t time.Time) bool {
	return !t.Before(g.StartTime) && t.Before(g.EndTime)
}

// MaskedDataRecord is the durable tombstone left where masked data was. Reads
// over the period return this instead of the underlying data.
type MaskedDataRecord struct {
	ChildID     id.ChildID `json:"child_id"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	Reason      string     `json:"reason"`
	CreatedAt   time.Time  `json:"created_at"`
}
