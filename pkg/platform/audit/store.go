package audit

import (
	"context"

	id "beacon/pkg/domain"
)

// Store persists audit events. Implementations must be append-only; nothing
// in the pipeline ever rewrites or deletes an audit record.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySignal(ctx context.Context, signalID id.SignalID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
