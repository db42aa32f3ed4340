package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration for the crisis pipeline.
type Server struct {
	Addr          string
	JWTSigningKey string

	// MasterKey is the hex-encoded 32-byte keyring master secret. Signal
	// payload keys are derived from it and never stored raw.
	MasterKey string

	// PartnerDirectory is a JSON array of accredited crisis partners. The
	// directory is managed out of band and loaded at startup.
	PartnerDirectory string

	// DatabaseURL is the family-side operational database.
	DatabaseURL string
	// VaultDatabaseURL is the isolated signal store. It must point at a
	// separate database (or at minimum a separate schema with its own
	// credentials); the vault never shares a handle with family data.
	VaultDatabaseURL string

	Redis RedisConfig
	Kafka KafkaConfig

	// BlackoutDuration is the fixed length of a freshly opened blackout window.
	BlackoutDuration time.Duration
	// BlackoutSweepInterval is how often the expiry worker runs.
	BlackoutSweepInterval time.Duration
	// RetentionSweepInterval is how often retention eligibility is re-checked.
	RetentionSweepInterval time.Duration
}

// RedisConfig captures connection settings for the suppression hot path.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig captures audit outbox publishing settings.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("BEACON_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	auditTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "beacon.audit.events"
	}

	return Server{
		Addr:             addr,
		JWTSigningKey:    jwtSigningKey,
		MasterKey:        os.Getenv("BEACON_MASTER_KEY"),
		PartnerDirectory: os.Getenv("PARTNER_DIRECTORY"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		VaultDatabaseURL: os.Getenv("VAULT_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: auditTopic,
		},
		BlackoutDuration:       envDuration("BLACKOUT_DURATION", 48*time.Hour),
		BlackoutSweepInterval:  envDuration("BLACKOUT_SWEEP_INTERVAL", time.Minute),
		RetentionSweepInterval: envDuration("RETENTION_SWEEP_INTERVAL", time.Hour),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
