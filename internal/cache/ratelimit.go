package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimiter applies a per-key GCRA limit shared by every instance.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	limit    redis_rate.Limit
	instance string
}

// NewRateLimiter allows perMinute requests per key per minute.
func NewRateLimiter(client *redis.Client, perMinute int, instance string) *RateLimiter {
	return &RateLimiter{
		limiter:  redis_rate.NewLimiter(client),
		limit:    redis_rate.PerMinute(perMinute),
		instance: instance,
	}
}

// Allow consumes one request for key. When it is rejected, retryAfter says
// when the next one will pass.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := l.limiter.Allow(ctx, "ratelimit:"+key, l.limit)
	if err != nil {
		return false, 0, err
	}
	if res.Allowed == 0 {
		rateLimitedTotal.WithLabelValues(l.instance).Inc()
		return false, res.RetryAfter, nil
	}
	return true, 0, nil
}
