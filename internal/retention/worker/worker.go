// Package worker runs the retention sweep: signals whose minimum retention
// has elapsed, and that carry no legal hold, are purged together with their
// vault record and encryption key.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"beacon/internal/platform/metrics"
	"beacon/internal/retention"
	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	audit "beacon/pkg/platform/audit"
)

// SweepOperator is the authorization identity retention deletions are audited
// under.
const SweepOperator = id.OperatorID("system:retention-sweep")

// RetentionJanitor lists deletable signals and removes their statuses.
type RetentionJanitor interface {
	ListDeletableSignals(ctx context.Context) ([]*retention.SignalRetentionStatus, error)
	DeleteRetentionStatus(ctx context.Context, signalID id.SignalID) error
}

// VaultPurger removes the isolated signal record.
type VaultPurger interface {
	DeleteIsolatedSignal(ctx context.Context, signalID id.SignalID) error
}

// KeyPurger removes the signal's encryption key.
type KeyPurger interface {
	DeleteKeyForSignal(ctx context.Context, signalID id.SignalID) error
}

// SignalPurger removes the signal record itself.
type SignalPurger interface {
	DeleteSignal(ctx context.Context, signalID id.SignalID) error
}

// AuditPublisher records each completed deletion.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Worker polls for signals past retention and purges them.
type Worker struct {
	janitor       RetentionJanitor
	vault         VaultPurger
	keys          KeyPurger
	signals       SignalPurger
	auditor       AuditPublisher
	sweepInterval time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Worker.
type Option func(*Worker)

// WithSweepInterval sets the interval between sweeps.
func WithSweepInterval(interval time.Duration) Option {
	return func(w *Worker) {
		w.sweepInterval = interval
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithAuditPublisher sets the audit publisher for deletion events.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(w *Worker) {
		w.auditor = publisher
	}
}

// WithMetrics sets the process metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// New creates a retention sweep worker.
func New(janitor RetentionJanitor, vault VaultPurger, keys KeyPurger, signals SignalPurger, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		janitor:       janitor,
		vault:         vault,
		keys:          keys,
		signals:       signals,
		sweepInterval: time.Hour,
		ctx:           ctx,
		cancel:        cancel,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start begins the sweep loop in a background goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop cancels the loop and waits for the in-flight sweep to finish.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(w.ctx)
		}
	}
}

// Sweep purges every deletable signal. Each purge removes the vault record,
// the key, and the signal before the retention status, so a crash mid-purge
// leaves the signal listed for the next sweep rather than half-forgotten.
func (w *Worker) Sweep(ctx context.Context) {
	if w.metrics != nil {
		w.metrics.WorkerSweeps.WithLabelValues("retention").Inc()
		timer := prometheus.NewTimer(w.metrics.WorkerSweepTime.WithLabelValues("retention"))
		defer timer.ObserveDuration()
	}

	statuses, err := w.janitor.ListDeletableSignals(ctx)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("retention sweep failed", "error", err)
		}
		return
	}

	for _, status := range statuses {
		w.purge(ctx, status.SignalID)
	}
}

func (w *Worker) purge(ctx context.Context, signalID id.SignalID) {
	if err := w.vault.DeleteIsolatedSignal(ctx, signalID); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		if w.logger != nil {
			w.logger.Error("failed to delete isolated signal", "signal_id", signalID, "error", err)
		}
		return
	}
	if err := w.keys.DeleteKeyForSignal(ctx, signalID); err != nil {
		if w.logger != nil {
			w.logger.Error("failed to delete signal key", "signal_id", signalID, "error", err)
		}
		return
	}
	if err := w.signals.DeleteSignal(ctx, signalID); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		if w.logger != nil {
			w.logger.Error("failed to delete signal", "signal_id", signalID, "error", err)
		}
		return
	}

	if w.auditor != nil {
		if err := w.auditor.Emit(ctx, audit.Event{
			SignalID:   signalID,
			Action:     string(audit.EventSignalDeleted),
			OperatorID: SweepOperator,
		}); err != nil {
			// Deletion without its compliance record is worse than a delayed
			// deletion; leave the status so the next sweep retries.
			if w.logger != nil {
				w.logger.Error("failed to audit signal deletion", "signal_id", signalID, "error", err)
			}
			return
		}
	}

	if err := w.janitor.DeleteRetentionStatus(ctx, signalID); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		if w.logger != nil {
			w.logger.Error("failed to delete retention status", "signal_id", signalID, "error", err)
		}
		return
	}

	if w.metrics != nil {
		w.metrics.SignalsDeleted.Inc()
	}
	if w.logger != nil {
		w.logger.Info("signal purged after retention", "signal_id", signalID)
	}
}
