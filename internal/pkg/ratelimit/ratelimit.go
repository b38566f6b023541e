// internal/pkg/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter over redis. Windows are keyed by
// (bucket, subject) so different endpoints get independent budgets.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow increments the subject's counter and reports whether it is still
// within maxRequests for the current window. The first hit sets the TTL.
func (l *Limiter) Allow(ctx context.Context, bucket, subject string, maxRequests int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", bucket, subject)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= maxRequests, nil
}

// Reset clears the subject's counter, mainly for tests and support tooling.
func (l *Limiter) Reset(ctx context.Context, bucket, subject string) error {
	return l.client.Del(ctx, fmt.Sprintf("ratelimit:%s:%s", bucket, subject)).Err()
}
