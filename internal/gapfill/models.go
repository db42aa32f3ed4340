// Package gapfill generates plausible synthetic activity for the monitoring
// timeline while a blackout hides a child's real activity. A watching parent
// must see an ordinary day, not a hole.
package gapfill

import (
	"time"

	id "beacon/pkg/domain"
)

// ActivityPattern describes what a child's ordinary usage looks like. Gap
// filling samples from this so the synthetic timeline resembles the child,
// not a generic child.
type ActivityPattern struct {
	ChildID               id.ChildID
	Categories            []WeightedCategory
	QuietStartHour        int
	QuietEndHour          int
	TypicalSessionMinutes int
}

// WeightedCategory is an activity category with its sampling weight.
type WeightedCategory struct {
	Category string
	Weight   int
}

// DefaultPattern is used when no pattern has been learned for a child yet.
func DefaultPattern(childID id.ChildID) *ActivityPattern {
	return &ActivityPattern{
		ChildID: childID,
		Categories: []WeightedCategory{
			{Category: "browsing", Weight: 4},
			{Category: "video", Weight: 3},
			{Category: "messaging", Weight: 2},
			{Category: "gaming", Weight: 2},
			{Category: "idle", Weight: 3},
		},
		QuietStartHour:        22,
		QuietEndHour:          7,
		TypicalSessionMinutes: 25,
	}
}

// InQuietHours reports whether the instant falls inside the pattern's quiet
// window, handling windows that wrap midnight.
func (p *ActivityPattern) InQuietHours(t time.Time) bool {
	h := t.Hour()
	if p.QuietStartHour <= p.QuietEndHour {
		return h >= p.QuietStartHour && h < p.QuietEndHour
	}
	return h >= p.QuietStartHour || h < p.QuietEndHour
}

// ActivityEntry is a timeline entry. Synthetic entries are flagged internally
// so post-blackout reconciliation can find them; the flag must never reach a
// family-facing surface.
type ActivityEntry struct {
	ChildID   id.ChildID `json:"child_id"`
	Category  string     `json:"category"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Synthetic bool       `json:"synthetic"`
}

// FamilyActivityEntry is the sanitized projection served to parents. It has
// no synthetic field at all, so no serialization path can leak the marker.
type FamilyActivityEntry struct {
	ChildID   id.ChildID `json:"child_id"`
	Category  string     `json:"category"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
}

// FamilyView projects entries into their family-facing shape.
func FamilyView(entries []*ActivityEntry) []FamilyActivityEntry {
	out := make([]FamilyActivityEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, FamilyActivityEntry{
			ChildID:   e.ChildID,
			Category:  e.Category,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
		})
	}
	return out
}
