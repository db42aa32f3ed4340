// Package worker publishes audit outbox entries to Kafka.
//
// The outbox table is the handoff point: audit stores append rows
// transactionally with the business write, and this worker drains them in the
// background. At-least-once delivery; downstream consumers deduplicate on the
// event ID embedded in the payload.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"beacon/internal/platform/kafka/producer"
	pgstore "beacon/pkg/platform/audit/store/postgres"
)

// OutboxStore is the slice of the postgres audit store the worker needs.
type OutboxStore interface {
	FetchUnprocessed(ctx context.Context, limit int) ([]pgstore.OutboxEntry, error)
	MarkProcessed(ctx context.Context, entryID uuid.UUID) error
}

// Worker polls the audit outbox and publishes events to Kafka.
type Worker struct {
	store        OutboxStore
	producer     *producer.Producer
	topic        string
	batchSize    int
	pollInterval time.Duration
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Worker.
type Option func(*Worker)

// WithTopic sets the Kafka topic for publishing.
func WithTopic(topic string) Option {
	return func(w *Worker) {
		w.topic = topic
	}
}

// WithBatchSize sets the maximum number of entries to fetch per poll.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		w.batchSize = size
	}
}

// WithPollInterval sets the interval between polls.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		w.pollInterval = interval
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// New creates a new audit outbox worker.
func New(store OutboxStore, prod *producer.Producer, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		store:        store,
		producer:     prod,
		topic:        "beacon.audit.events",
		batchSize:    100,
		pollInterval: 250 * time.Millisecond,
		ctx:          ctx,
		cancel:       cancel,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start begins the polling loop in a background goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop cancels the loop and waits for the in-flight poll to finish.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll fetches and publishes a batch of outbox entries.
func (w *Worker) poll() {
	entries, err := w.store.FetchUnprocessed(w.ctx, w.batchSize)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("failed to fetch audit outbox entries", "error", err)
		}
		return
	}

	for _, entry := range entries {
		msg := &producer.Message{
			Topic: w.topic,
			Key:   []byte(entry.AggregateID),
			Value: entry.Payload,
			Headers: map[string]string{
				"event_type": entry.EventType,
			},
		}
		if err := w.producer.Produce(w.ctx, msg); err != nil {
			if w.logger != nil {
				w.logger.Error("failed to publish audit outbox entry",
					"id", entry.ID,
					"event_type", entry.EventType,
					"error", err,
				)
			}
			// Retried on the next poll; ordering within the batch is best effort.
			continue
		}
		if err := w.store.MarkProcessed(w.ctx, entry.ID); err != nil && w.logger != nil {
			w.logger.Error("failed to mark outbox entry processed", "id", entry.ID, "error", err)
		}
	}
}
