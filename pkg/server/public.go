package server

import (
	"github.com/Andi3172/fullstack-tic-project/pkg/config"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/logging"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/metrics"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/ratelimit"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/recovery"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/requestid"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/tracing"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
)

// PublicAPIServer serves application traffic.
type PublicAPIServer struct {
	*Server
}

// PublicOptions toggles the optional parts of the public middleware stack.
type PublicOptions struct {
	Tracing bool
	// RateLimiter, when set, throttles requests per client IP.
	RateLimiter ratelimit.RateLimiter
}

// NewPublicAPIServer applies the public middleware stack to r in order:
// request ID, logging, recovery, metrics, then tracing and rate limiting
// when enabled. Routes are registered on r by the caller.
func NewPublicAPIServer(cfg config.HTTPConfig, r router.Router, log logger.Logger, opts PublicOptions) *PublicAPIServer {
	r.Use(
		requestid.RequestID(),
		logging.Logging(log),
		recovery.Recovery(log),
		metrics.Metrics(),
	)
	if opts.Tracing {
		r.Use(tracing.Tracing(tracing.Config{}))
	}
	if opts.RateLimiter != nil {
		r.Use(ratelimit.RateLimit(opts.RateLimiter, ratelimit.Config{Logger: log}))
	}

	return &PublicAPIServer{
		Server: NewServer(Config{
			Port:         cfg.Port,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		}, r, log),
	}
}
