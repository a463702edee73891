package gateway

import (
	"context"
	"time"

	"github.com/benvon/apigate/internal/models"
	"go.uber.org/zap"
)

// CounterStore provides atomic per-(key, window) counters. Increment charges
// the counter for the window containing now and returns the resulting count.
// The check-and-increment must be atomic: concurrent calls for the same key
// and window must never undercount.
type CounterStore interface {
	Increment(ctx context.Context, keyID string, window Window, now time.Time) (int64, error)
}

// RateLimiter enforces per-key fixed-window limits. A burst straddling a
// window boundary can briefly see up to twice the limit.
type RateLimiter struct {
	store CounterStore
	log   *zap.Logger
}

// NewRateLimiter creates a rate limiter over a counter store.
func NewRateLimiter(store CounterStore, log *zap.Logger) *RateLimiter {
	return &RateLimiter{store: store, log: log}
}

// Check charges the minute window, then the hour window, for the given key.
// The first violated window determines the returned error; a violated minute
// window leaves the hour counter uncharged. Counter store failures fail open.
func (l *RateLimiter) Check(ctx context.Context, key *models.APIKey, now time.Time) error {
	windows := []struct {
		window Window
		limit  int
	}{
		{WindowMinute, key.RequestsPerMinute},
		{WindowHour, key.RequestsPerHour},
	}

	for _, w := range windows {
		count, err := l.store.Increment(ctx, key.ID.String(), w.window, now)
		if err != nil {
			l.log.Warn("counter_store_unavailable_failing_open",
				zap.String("key_id", key.ID.String()),
				zap.String("window", string(w.window)),
				zap.Error(err),
			)
			continue
		}
		if count > int64(w.limit) {
			duration := w.window.Duration()
			windowStart := now.Truncate(duration)
			return &RateLimitError{
				Window:     w.window,
				Limit:      w.limit,
				RetryAfter: duration - now.Sub(windowStart),
			}
		}
	}

	return nil
}
