//go:build integration

package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"beacon/internal/platform/kafka/producer"
	audit "beacon/pkg/platform/audit"
	auditpg "beacon/pkg/platform/audit/store/postgres"
	"beacon/pkg/testutil/containers"
)

const outboxTestTopic = "beacon.audit.events.test"

// =============================================================================
// Audit Outbox Worker Integration Suite
// =============================================================================
// End to end over real infrastructure: the store appends transactionally, the
// worker drains the outbox, and the event arrives on the Kafka topic.

type OutboxWorkerSuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	kafka    *containers.KafkaContainer
	store    *auditpg.Store
	producer *producer.Producer
}

func TestOutboxWorkerSuite(t *testing.T) {
	suite.Run(t, new(OutboxWorkerSuite))
}

func (s *OutboxWorkerSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.Exec(s.T(), `
		CREATE TABLE audit_events (
			id          UUID PRIMARY KEY,
			category    TEXT NOT NULL,
			timestamp   TIMESTAMPTZ NOT NULL,
			signal_id   TEXT NOT NULL DEFAULT '',
			action      TEXT NOT NULL,
			operator_id TEXT NOT NULL DEFAULT '',
			reason      TEXT NOT NULL DEFAULT '',
			decision    TEXT NOT NULL DEFAULT '',
			request_id  TEXT NOT NULL DEFAULT ''
		)`)
	s.pg.Exec(s.T(), `
		CREATE TABLE audit_outbox (
			id             UUID PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id   TEXT NOT NULL,
			event_type     TEXT NOT NULL,
			payload        JSONB NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			processed_at   TIMESTAMPTZ
		)`)
	s.store = auditpg.New(s.pg.DB)

	s.kafka = containers.NewKafkaContainer(s.T())
	s.kafka.CreateTopic(s.T(), outboxTestTopic)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prod, err := producer.New(producer.Config{Brokers: s.kafka.Brokers, Retries: 3}, logger)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *OutboxWorkerSuite) TearDownSuite() {
	_ = s.producer.Close()
	s.kafka.Client.Close()
	_ = s.kafka.Container.Terminate(context.Background())
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *OutboxWorkerSuite) TestAppendIsDrainedToKafka() {
	ctx := context.Background()

	event := audit.Event{
		Timestamp:  time.Now().UTC(),
		SignalID:   "sig-outbox-1",
		Action:     string(audit.EventLegalHoldPlaced),
		OperatorID: "op-compliance-1",
		Reason:     "subpoena 44-B",
	}
	s.Require().NoError(s.store.Append(ctx, event))

	// The event is queryable immediately, before any Kafka publication.
	stored, err := s.store.ListBySignal(ctx, "sig-outbox-1")
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(audit.CategoryCompliance, stored[0].Category)

	w := New(s.store, s.producer,
		WithTopic(outboxTestTopic),
		WithPollInterval(50*time.Millisecond),
	)
	w.Start()
	defer w.Stop()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.kafka.Brokers),
		kgo.ConsumeTopics(outboxTestTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var record *kgo.Record
	for record == nil {
		fetches := consumer.PollFetches(pollCtx)
		s.Require().NoError(fetches.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			if record == nil {
				record = r
			}
		})
	}

	s.Equal([]byte("sig-outbox-1"), record.Key)

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(record.Value, &payload))
	s.Equal(string(audit.EventLegalHoldPlaced), payload["Action"])
	s.Equal("op-compliance-1", payload["OperatorID"])
	s.Equal(string(audit.CategoryCompliance), payload["Category"])

	// The drained entry leaves the outbox once publication is acknowledged.
	s.Require().Eventually(func() bool {
		pending, err := s.store.FetchUnprocessed(ctx, 10)
		return err == nil && len(pending) == 0
	}, 10*time.Second, 100*time.Millisecond)
}
