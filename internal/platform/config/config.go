// Package config builds all runtime configuration from environment variables
// so main stays lean. Every knob has a development default; production
// deployments override via the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration for the virasat server.
type Config struct {
	// Environment selects logging output: "production" gets JSON, anything
	// else gets the tinted console handler.
	Environment string

	Server   Server
	Postgres Postgres
	Redis    Redis
	Storage  Storage
	Auth     Auth
	Audit    Audit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Postgres captures the relational store connection settings.
type Postgres struct {
	// URL is a pgx-compatible DSN. Empty means run on in-memory stores
	// (development and tests).
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// Redis captures the session revocation list settings.
type Redis struct {
	// URL is a go-redis URL. Empty means revocation falls back to the
	// in-memory list (single-instance deployments only).
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Storage captures the document blob store settings.
type Storage struct {
	// Root is the filesystem directory holding per-user document prefixes.
	Root string
	// SigningKey signs time-limited document URLs.
	SigningKey string
	// SignedURLTTL bounds how long an issued document URL stays valid.
	SignedURLTTL time.Duration
}

// Auth captures token issuing settings.
type Auth struct {
	JWTSigningKey string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
}

// Audit captures audit trail settings.
type Audit struct {
	// KafkaBrokers enables the Kafka sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
	BufferSize   int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Environment: getString("VIRASAT_ENV", "development"),
		Server: Server{
			Addr:            getString("VIRASAT_ADDR", ":8080"),
			RequestTimeout:  getDuration("VIRASAT_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("VIRASAT_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			URL:          os.Getenv("VIRASAT_POSTGRES_URL"),
			MaxOpenConns: getInt("VIRASAT_POSTGRES_MAX_OPEN", 16),
			MaxIdleConns: getInt("VIRASAT_POSTGRES_MAX_IDLE", 4),
		},
		Redis: Redis{
			URL:          os.Getenv("VIRASAT_REDIS_URL"),
			PoolSize:     getInt("VIRASAT_REDIS_POOL_SIZE", 10),
			DialTimeout:  getDuration("VIRASAT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("VIRASAT_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("VIRASAT_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Storage: Storage{
			Root:         getString("VIRASAT_STORAGE_ROOT", "./data/documents"),
			SigningKey:   getString("VIRASAT_STORAGE_SIGNING_KEY", "dev-signing-key-change-in-production"),
			SignedURLTTL: getDuration("VIRASAT_SIGNED_URL_TTL", time.Hour),
		},
		Auth: Auth{
			JWTSigningKey: getString("VIRASAT_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			TokenTTL:      getDuration("VIRASAT_TOKEN_TTL", 24*time.Hour),
			ResetTokenTTL: getDuration("VIRASAT_RESET_TOKEN_TTL", 30*time.Minute),
		},
		Audit: Audit{
			KafkaBrokers: getList("VIRASAT_KAFKA_BROKERS"),
			KafkaTopic:   getString("VIRASAT_KAFKA_AUDIT_TOPIC", "virasat.audit"),
			BufferSize:   getInt("VIRASAT_AUDIT_BUFFER", 256),
		},
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
