package domain

// SignalStatus is the lifecycle state of a safety signal.
// Invariant: statuses only move forward through the transition table below;
// there is no path back to an earlier state.
//
// Usage: construct via ParseSignalStatus at trust boundaries; transitions go
// through CanTransitionTo so the table stays the single source of truth.
type SignalStatus string

const (
	// SignalQueued is only reachable when the signal was created offline.
	SignalQueued       SignalStatus = "queued"
	SignalPending      SignalStatus = "pending"
	SignalSent         SignalStatus = "sent"
	SignalDelivered    SignalStatus = "delivered"
	SignalAcknowledged SignalStatus = "acknowledged"
)

// signalTransitions is the strict forward-only transition table.
// Acknowledged is terminal.
var signalTransitions = map[SignalStatus][]SignalStatus{
	SignalQueued:    {SignalPending},
	SignalPending:   {SignalSent},
	SignalSent:      {SignalDelivered},
	SignalDelivered: {SignalAcknowledged},
}

// CanTransitionTo reports whether the status may move to next. Rejected
// transitions are a caller-visible no-op rather than an error so retries of
// already-applied transitions stay safe.
func (s SignalStatus) CanTransitionTo(next SignalStatus) bool {
	for _, allowed := range signalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid checks if the status is one of the supported enum values.
func (s SignalStatus) IsValid() bool {
	switch s {
	case SignalQueued, SignalPending, SignalSent, SignalDelivered, SignalAcknowledged:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s SignalStatus) IsTerminal() bool {
	return len(signalTransitions[s]) == 0
}

// String returns the string representation of the status.
func (s SignalStatus) String() string {
	return string(s)
}
