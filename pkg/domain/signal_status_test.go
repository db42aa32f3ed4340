package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalStatusTransitions(t *testing.T) {
	cases := []struct {
		from    SignalStatus
		to      SignalStatus
		allowed bool
	}{
		{SignalQueued, SignalPending, true},
		{SignalPending, SignalSent, true},
		{SignalSent, SignalDelivered, true},
		{SignalDelivered, SignalAcknowledged, true},

		// Acknowledged is reachable only from delivered.
		{SignalQueued, SignalAcknowledged, false},
		{SignalPending, SignalAcknowledged, false},
		{SignalSent, SignalAcknowledged, false},

		// No skipping, no going backwards.
		{SignalQueued, SignalSent, false},
		{SignalPending, SignalQueued, false},
		{SignalDelivered, SignalSent, false},
		{SignalAcknowledged, SignalDelivered, false},
		{SignalAcknowledged, SignalPending, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestSignalStatusTerminal(t *testing.T) {
	assert.True(t, SignalAcknowledged.IsTerminal())
	assert.False(t, SignalDelivered.IsTerminal())
	assert.False(t, SignalQueued.IsTerminal())
}

func TestSignalStatusIsValid(t *testing.T) {
	assert.True(t, SignalQueued.IsValid())
	assert.True(t, SignalAcknowledged.IsValid())
	assert.False(t, SignalStatus("archived").IsValid())
	assert.False(t, SignalStatus("").IsValid())
}
