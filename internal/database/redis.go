package database

import (
	"context"
	"fmt"
	"time"

	"github.com/madigan/timely/pkg/config"
	"github.com/madigan/timely/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisDB wraps a Redis client used for short-lived coordination state:
//   - OAuth CSRF states with 10-minute expiry and exactly-once consumption
//   - Rate limiting counters per IP address
//   - Calendar-list caching (via pkg/cache)
//
// Keeping this state in Redis instead of process-local maps allows the
// service to run as multiple instances behind a load balancer.
type RedisDB struct {
	client *redis.Client
}

// NewRedisDB creates a new Redis connection with automatic retry and
// exponential backoff, mirroring the PostgreSQL connection behavior.
func NewRedisDB(cfg *config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	retryConfig := utils.DatabaseRetryConfig()
	retryConfig.MaxAttempts = 5
	retryConfig.InitialDelay = 100 * time.Millisecond
	retryConfig.MaxDelay = 3 * time.Second

	var lastErr error
	err := utils.Retry(ctx, retryConfig, func() error {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pingCancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			lastErr = err
			log.Warn().Err(err).Msg("Failed to ping Redis, retrying...")
			return err
		}
		return nil
	})

	if err != nil {
		client.Close()
		if lastErr != nil {
			return nil, fmt.Errorf("failed to connect to Redis after retries: %w", lastErr)
		}
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Msg("Successfully connected to Redis")

	return &RedisDB{client: client}, nil
}

// NewRedisDBFromClient wraps an existing client. Used by tests with
// miniredis.
func NewRedisDBFromClient(client *redis.Client) *RedisDB {
	return &RedisDB{client: client}
}

// Close closes the Redis connection.
func (r *RedisDB) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client for advanced operations.
func (r *RedisDB) Client() *redis.Client {
	return r.client
}

// Ping checks Redis connectivity. Used by the readiness endpoint.
func (r *RedisDB) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// oauthStateKey namespaces CSRF state entries.
//
// Key pattern: "oauth_state:<state>"
func oauthStateKey(state string) string {
	return "oauth_state:" + state
}

// PutOAuthState stores a CSRF state token with the given lifetime.
// The value is unused; presence of the key is what matters.
func (r *RedisDB) PutOAuthState(ctx context.Context, state string, ttl time.Duration) error {
	if err := r.client.Set(ctx, oauthStateKey(state), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth state: %w", err)
	}
	return nil
}

// ConsumeOAuthState atomically deletes a CSRF state entry and reports
// whether it existed. DEL's return value makes consumption exactly-once: a
// replayed state observes false because the first callback already removed
// the key, and expired states are removed by Redis itself.
func (r *RedisDB) ConsumeOAuthState(ctx context.Context, state string) (bool, error) {
	deleted, err := r.client.Del(ctx, oauthStateKey(state)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return deleted == 1, nil
}

// IncrementRateLimit increments the request counter for an IP+endpoint
// pair, setting the window TTL on first increment. Returns the current
// count within the window.
//
// Key pattern: "ratelimit:<ip>:<endpoint>"
func (r *RedisDB) IncrementRateLimit(ctx context.Context, ip, endpoint string, window time.Duration) (int64, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", ip, endpoint)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	return incr.Val(), nil
}
