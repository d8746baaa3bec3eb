// Package ratelimit rejects clients that exceed a request budget with 429.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/Andi3172/fullstack-tic-project/pkg/auth"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
)

// RateLimiter decides whether a request for key may proceed.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// TokenBucketLimiter keeps one token bucket per key in process memory.
// Buckets are never evicted.
type TokenBucketLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewTokenBucketLimiter allows requestsPerSecond on average with bursts of
// up to burst requests per key.
func NewTokenBucketLimiter(requestsPerSecond int, burst int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

func (l *TokenBucketLimiter) Allow(_ context.Context, key string) bool {
	return l.getLimiter(key).Allow()
}

func (l *TokenBucketLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	return limiter.(*rate.Limiter)
}

// Config defines the configuration for rate limiting middleware.
type Config struct {
	// KeyFunc extracts the rate limiting key. Defaults to the client IP.
	KeyFunc func(router.Context) string
	// RetryAfter is sent in the Retry-After header, in seconds. Defaults to "1".
	RetryAfter string
	Logger     logger.Logger
}

// RateLimit answers 429 with a Retry-After header once limiter refuses the
// request's key.
func RateLimit(limiter RateLimiter, cfg Config) router.MiddlewareFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c router.Context) string { return ExtractIPFromRequest(c.Request()) }
	}
	if cfg.RetryAfter == "" {
		cfg.RetryAfter = "1"
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			key := cfg.KeyFunc(c)
			if limiter.Allow(c.Request().Context(), key) {
				return next(c)
			}

			requestID := logger.RequestIDFromContext(c.Request().Context())
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded", "key", key, "request_id", requestID)
			}
			c.Response().Header().Set("Retry-After", cfg.RetryAfter)
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"error":      "rate_limited",
				"message":    "rate limit exceeded",
				"request_id": requestID,
			})
		}
	}
}

// ExtractIPFromRequest returns the first X-Forwarded-For address, then
// X-Real-IP, then the host part of RemoteAddr.
func ExtractIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ExtractUserIDFromContext keys authenticated requests by token subject and
// falls back to the client IP.
func ExtractUserIDFromContext(c router.Context) string {
	if claims := auth.GetClaims(c.Request().Context()); claims != nil && claims.Subject != "" {
		return "user:" + claims.Subject
	}
	return ExtractIPFromRequest(c.Request())
}
