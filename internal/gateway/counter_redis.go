package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore implements CounterStore on Redis. The window start is
// embedded in the storage key, so a rolled-over window starts from a fresh
// key and the old one expires via TTL; INCR gives the atomic
// check-and-increment.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore creates a counter store from a Redis URL and verifies
// connectivity.
func NewRedisCounterStore(redisURL string) (*RedisCounterStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCounterStore{client: client}, nil
}

// Client exposes the underlying Redis client for shared use (flood limiter store).
func (s *RedisCounterStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *RedisCounterStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisCounterStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Increment charges the (key, window) counter for the window containing now.
func (s *RedisCounterStore) Increment(ctx context.Context, keyID string, window Window, now time.Time) (int64, error) {
	duration := window.Duration()
	windowStart := now.Truncate(duration)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", keyID, window, windowStart.Unix())

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, duration+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}

	return incr.Val(), nil
}
