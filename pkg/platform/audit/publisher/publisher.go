// Package publisher provides a fail-closed audit publisher for the crisis pipeline.
//
// Compliance-category events are written synchronously: the caller blocks
// until the write succeeds, and if it fails the calling operation MUST fail.
// Every key decrypt, legal hold change, and legal request fulfillment flows
// through here before the business operation is allowed to complete.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"beacon/internal/platform/metrics"
	audit "beacon/pkg/platform/audit"
)

// Publisher emits audit events with fail-closed semantics for compliance
// events and best-effort semantics for everything else.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics counts emitted events by category.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates an audit publisher backed by the given store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit writes an audit event to the store.
//
// For compliance events the operator ID is mandatory and a persistence
// failure is returned to the caller - the business operation must not
// proceed. For security/operations events a failure is logged and swallowed
// so observability problems never block the pipeline itself.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if event.Category == audit.CategoryCompliance {
		if event.OperatorID.IsNil() {
			return fmt.Errorf("compliance audit event %q requires an operator ID", event.Action)
		}
		if err := p.store.Append(ctx, event); err != nil {
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
					"action", event.Action,
					"signal_id", event.SignalID,
					"error", err,
				)
			}
			return fmt.Errorf("compliance audit persistence failed: %w", err)
		}
		p.count(event)
		return nil
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.WarnContext(ctx, "failed to append audit event",
				"action", event.Action,
				"error", err,
			)
		}
		return nil
	}
	p.count(event)
	return nil
}

func (p *Publisher) count(event audit.Event) {
	if p.metrics != nil {
		p.metrics.AuditEvents.WithLabelValues(string(event.Category)).Inc()
	}
}
