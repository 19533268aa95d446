// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	AdminAPIKeyHash string
}

// Upstream captures the external collaborator endpoints.
type Upstream struct {
	DocumentServiceURL string
	RecordServiceURL   string
	Timeout            time.Duration
}

// RedisConfig captures the draft snapshot cache settings. An empty URL
// disables the cache.
type RedisConfig struct {
	URL          string
	SnapshotTTL  time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig selects the audit store backend.
type AuditConfig struct {
	// PostgresDSN enables the Postgres outbox when set.
	PostgresDSN string
	// KafkaBrokers enables the Kafka sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// ArchiveConfig captures the local submission archive settings. An empty DSN
// disables archiving.
type ArchiveConfig struct {
	PostgresDSN string
}

// Config is the full application configuration.
type Config struct {
	Server   Server
	Upstream Upstream
	Redis    RedisConfig
	Audit    AuditConfig
	Archive  ArchiveConfig
}

// FromEnv builds the configuration from environment variables, with
// development defaults for everything but secrets.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envOr("VERISTAGE_ADDR", ":8080"),
			JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			AdminAPIKeyHash: os.Getenv("ADMIN_API_KEY_HASH"),
		},
		Upstream: Upstream{
			DocumentServiceURL: envOr("DOCUMENT_SERVICE_URL", ""),
			RecordServiceURL:   envOr("RECORD_SERVICE_URL", ""),
			Timeout:            durationOr("UPSTREAM_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			SnapshotTTL:  durationOr("DRAFT_SNAPSHOT_TTL", 24*time.Hour),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Audit: AuditConfig{
			PostgresDSN:  os.Getenv("AUDIT_POSTGRES_DSN"),
			KafkaBrokers: splitList(os.Getenv("AUDIT_KAFKA_BROKERS")),
			KafkaTopic:   os.Getenv("AUDIT_KAFKA_TOPIC"),
		},
		Archive: ArchiveConfig{
			PostgresDSN: os.Getenv("ARCHIVE_POSTGRES_DSN"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
