package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"beacon/internal/suppression"
	id "beacon/pkg/domain"
)

var listActiveDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "beacon_suppression_lookup_duration_ms",
	Help:    "Latency of active suppression lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	familyKeyPrefix = "sup:family:"
	signalKeyPrefix = "sup:signal:"
)

// RedisSuppressionStore is the production store for distributed deployments.
// Each suppression lives under its own key with a TTL matching its expiry, so
// Redis drops expired suppressions without a sweep. A per-signal index set
// supports deactivation when a blackout completes.
type RedisSuppressionStore struct {
	client *redis.Client
}

func NewRedisSuppressionStore(client *redis.Client) *RedisSuppressionStore {
	return &RedisSuppressionStore{client: client}
}

func familyKey(familyID id.FamilyID, supID id.SuppressionID) string {
	return familyKeyPrefix + string(familyID) + ":" + string(supID)
}

func (s *RedisSuppressionStore) Create(ctx context.Context, sup *suppression.NotificationSuppression) error {
	ttl := time.Until(sup.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(sup)
	if err != nil {
		return fmt.Errorf("marshal suppression: %w", err)
	}

	key := familyKey(sup.FamilyID, sup.ID)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, payload, ttl)
	if !sup.SignalID.IsNil() {
		signalKey := signalKeyPrefix + string(sup.SignalID)
		pipe.SAdd(ctx, signalKey, key)
		pipe.Expire(ctx, signalKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store suppression: %w", err)
	}
	return nil
}

func (s *RedisSuppressionStore) ListActiveByFamily(ctx context.Context, familyID id.FamilyID, now time.Time) ([]*suppression.NotificationSuppression, error) {
	start := time.Now()
	defer func() {
		listActiveDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	var (
		out    []*suppression.NotificationSuppression
		cursor uint64
	)
	pattern := familyKeyPrefix + string(familyID) + ":*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan suppressions: %w", err)
		}
		for _, key := range keys {
			raw, err := s.client.Get(ctx, key).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load suppression: %w", err)
			}
			var sup suppression.NotificationSuppression
			if err := json.Unmarshal(raw, &sup); err != nil {
				return nil, fmt.Errorf("unmarshal suppression: %w", err)
			}
			if sup.InEffectAt(now) {
				out = append(out, &sup)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

// ExtendBySignal rewrites the signal's suppressions with the new expiry and
// resets their TTLs, so Redis keeps them alive for the whole extended window.
func (s *RedisSuppressionStore) ExtendBySignal(ctx context.Context, signalID id.SignalID, until time.Time) (int, error) {
	ttl := time.Until(until)
	if ttl <= 0 {
		return 0, nil
	}

	signalKey := signalKeyPrefix + string(signalID)
	keys, err := s.client.SMembers(ctx, signalKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list signal suppressions: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	var n int
	pipe := s.client.Pipeline()
	for _, key := range keys {
		raw, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("load suppression: %w", err)
		}
		var sup suppression.NotificationSuppression
		if err := json.Unmarshal(raw, &sup); err != nil {
			return 0, fmt.Errorf("unmarshal suppression: %w", err)
		}
		if !sup.Active || !until.After(sup.ExpiresAt) {
			continue
		}
		sup.ExpiresAt = until
		payload, err := json.Marshal(&sup)
		if err != nil {
			return 0, fmt.Errorf("marshal suppression: %w", err)
		}
		pipe.Set(ctx, key, payload, ttl)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	pipe.Expire(ctx, signalKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("extend suppressions: %w", err)
	}
	return n, nil
}

func (s *RedisSuppressionStore) DeactivateBySignal(ctx context.Context, signalID id.SignalID) (int, error) {
	signalKey := signalKeyPrefix + string(signalID)
	keys, err := s.client.SMembers(ctx, signalKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list signal suppressions: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	pipe.Del(ctx, signalKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("deactivate suppressions: %w", err)
	}
	return len(keys), nil
}
