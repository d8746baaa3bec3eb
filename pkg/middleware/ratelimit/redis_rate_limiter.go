package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

// WindowCounter increments a counter that resets after window.
// store/redis.Adapter implements it.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisRateLimiter is a fixed window counter shared by every replica.
type RedisRateLimiter struct {
	counter WindowCounter
	limit   int64
	window  time.Duration
	prefix  string
	log     logger.Logger
}

// NewRedisRateLimiter allows requestsPerSecond+burst requests per key in
// each window.
func NewRedisRateLimiter(counter WindowCounter, window time.Duration, requestsPerSecond, burst int, prefix string, log logger.Logger) (*RedisRateLimiter, error) {
	if counter == nil {
		return nil, errors.New("redis counter is required for distributed rate limiting")
	}
	if requestsPerSecond <= 0 {
		return nil, errors.New("requests_per_second must be greater than zero")
	}
	if burst < 0 {
		return nil, errors.New("burst cannot be negative")
	}
	if window <= 0 {
		window = time.Second
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{
		counter: counter,
		limit:   int64(requestsPerSecond + burst),
		window:  window,
		prefix:  prefix,
		log:     log,
	}, nil
}

// Allow fails open when Redis cannot be reached.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	count, err := r.counter.IncrWindow(ctx, fmt.Sprintf("%s:%s", r.prefix, key), r.window)
	if err != nil {
		r.log.Error("redis rate limiter increment failed", "error", err)
		return true
	}
	return count <= r.limit
}
