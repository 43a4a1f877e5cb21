package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "virasat/pkg/domain"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "virasat_session_revocation_check_duration_ms",
	Help:    "Latency of session revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedSessionKeyPrefix = "vrs:sid:"

// RedisList is a Redis-backed revocation list. This is the production
// implementation for deployments where multiple instances share sign-out
// state.
type RedisList struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed revocation list.
func NewRedis(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

// Revoke marks the session as signed out with a TTL matching the token
// lifetime; after that the token is expired anyway.
func (l *RedisList) Revoke(ctx context.Context, sessionID id.SessionID, ttl time.Duration) error {
	key := revokedSessionKeyPrefix + sessionID.String()
	// Store "1" as a simple marker; the key existence is what matters
	return l.client.Set(ctx, key, "1", ttl).Err()
}

// IsRevoked checks if a session is in the revocation list.
// Returns false if the key doesn't exist (not revoked or already expired).
func (l *RedisList) IsRevoked(ctx context.Context, sessionID id.SessionID) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	key := revokedSessionKeyPrefix + sessionID.String()
	_, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
