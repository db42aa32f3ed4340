// Package worker runs the blackout completion sweep. When a window expires
// the sweep applies the privacy gap, fills the activity timeline, and lifts
// the notification suppressions, in that order.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"beacon/internal/blackout"
	"beacon/internal/gapfill"
	"beacon/internal/platform/metrics"
	"beacon/internal/privacygap"
	id "beacon/pkg/domain"
)

// BlackoutExpirer deactivates due blackouts, reports every expired window
// still awaiting completion, and records completion once the post-blackout
// steps finish.
type BlackoutExpirer interface {
	ExpireDue(ctx context.Context) ([]*blackout.Blackout, error)
	MarkCompleted(ctx context.Context, blackoutID id.BlackoutID) error
}

// PrivacyGapApplier makes a signal's privacy gap durable.
type PrivacyGapApplier interface {
	ApplyPostBlackoutPrivacyGap(ctx context.Context, signalID id.SignalID) (*privacygap.SignalPrivacyGap, error)
}

// GapFiller synthesizes timeline entries over the blackout window.
type GapFiller interface {
	FillActivityGap(ctx context.Context, childID id.ChildID, start, end time.Time) ([]*gapfill.ActivityEntry, error)
}

// SuppressionDeactivator lifts the suppressions anchored to a signal.
type SuppressionDeactivator interface {
	DeactivateForSignal(ctx context.Context, signalID id.SignalID) (int, error)
}

// Worker polls for expired blackouts and runs the completion steps.
type Worker struct {
	blackouts     BlackoutExpirer
	privacyGaps   PrivacyGapApplier
	gapFiller     GapFiller
	suppressions  SuppressionDeactivator
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

// WithMetrics sets the process metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// New creates a blackout completion worker.
func New(blackouts BlackoutExpirer, privacyGaps PrivacyGapApplier, gapFiller GapFiller, suppressions SuppressionDeactivator, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		blackouts:     blackouts,
		privacyGaps:   privacyGaps,
		gapFiller:     gapFiller,
		suppressions:  suppressions,
		sweepInterval: time.Minute,
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

// Sweep expires due blackouts and completes each one. Completion steps are
// individually idempotent, so a sweep interrupted mid-blackout finishes the
// remainder on the next pass.
func (w *Worker) Sweep(ctx context.Context) {
	if w.metrics != nil {
		w.metrics.WorkerSweeps.WithLabelValues("blackout").Inc()
		timer := prometheus.NewTimer(w.metrics.WorkerSweepTime.WithLabelValues("blackout"))
		defer timer.ObserveDuration()
	}

	expired, err := w.blackouts.ExpireDue(ctx)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("blackout sweep failed", "error", err)
		}
		return
	}

	for _, b := range expired {
		w.complete(ctx, b)
	}
}

func (w *Worker) complete(ctx context.Context, b *blackout.Blackout) {
	gap, err := w.privacyGaps.ApplyPostBlackoutPrivacyGap(ctx, b.SignalID)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("failed to apply privacy gap", "signal_id", b.SignalID, "error", err)
		}
		return
	}

	if _, err := w.gapFiller.FillActivityGap(ctx, gap.ChildID, b.StartTime, b.EndTime); err != nil {
		if w.logger != nil {
			w.logger.Error("failed to fill activity gap", "signal_id", b.SignalID, "error", err)
		}
		return
	}

	if _, err := w.suppressions.DeactivateForSignal(ctx, b.SignalID); err != nil {
		if w.logger != nil {
			w.logger.Error("failed to deactivate suppressions", "signal_id", b.SignalID, "error", err)
		}
		return
	}

	// Only a fully completed window leaves the sweep's working set; any
	// earlier return keeps it listed for the next pass.
	if err := w.blackouts.MarkCompleted(ctx, b.ID); err != nil {
		if w.logger != nil {
			w.logger.Error("failed to mark blackout completed", "blackout_id", b.ID, "error", err)
		}
		return
	}

	if w.logger != nil {
		w.logger.Info("blackout completed", "blackout_id", b.ID, "signal_id", b.SignalID)
	}
}
