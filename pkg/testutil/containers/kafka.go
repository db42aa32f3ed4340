//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaContainer wraps a testcontainers Redpanda instance. Redpanda speaks
// the Kafka protocol and boots in seconds, which keeps the outbox worker
// tests bearable.
type KafkaContainer struct {
	Container testcontainers.Container
	Brokers   string
	Client    *kgo.Client
	Admin     *kadm.Client
}

// NewKafkaContainer starts a new Redpanda container.
func NewKafkaContainer(t *testing.T) *KafkaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "redpandadata/redpanda:v24.1.2")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}

	brokers, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get kafka seed broker: %v", err)
	}

	client, err := kgo.NewClient(kgo.SeedBrokers(brokers))
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to create kafka client: %v", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping kafka: %v", err)
	}

	return &KafkaContainer{
		Container: container,
		Brokers:   brokers,
		Client:    client,
		Admin:     kadm.NewClient(client),
	}
}

// CreateTopic creates a topic with a single partition.
func (k *KafkaContainer) CreateTopic(t *testing.T, topic string) {
	t.Helper()
	if _, err := k.Admin.CreateTopic(context.Background(), 1, 1, nil, topic); err != nil {
		t.Fatalf("failed to create topic %s: %v", topic, err)
	}
}
