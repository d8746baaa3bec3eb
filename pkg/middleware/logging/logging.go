// Package logging writes one structured log line per HTTP request.
package logging

import (
	"net/http"
	"strings"
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
)

// Config configures request logging middleware behavior.
type Config struct {
	// LogStart emits a debug line when a request begins.
	LogStart bool
	// ExcludedPathPrefixes are never logged, e.g. probes.
	ExcludedPathPrefixes []string
}

// DefaultConfig returns default request logging behavior.
func DefaultConfig() Config {
	return Config{}
}

// Logging creates middleware with default configuration.
func Logging(log logger.Logger) router.MiddlewareFunc {
	return WithConfig(log, DefaultConfig())
}

// WithConfig creates request logging middleware. Requests that return an
// error or a 5xx are logged at error level, 4xx at warn, the rest at info.
func WithConfig(log logger.Logger, cfg Config) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if cfg.excluded(req.URL.Path) {
				return next(c)
			}

			reqLog := log.WithContext(req.Context())
			start := time.Now()
			if cfg.LogStart {
				reqLog.Debug("request started", "method", req.Method, "path", req.URL.Path)
			}

			err := next(c)

			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = http.StatusInternalServerError
			}
			fields := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"route", c.Route(),
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", req.RemoteAddr,
			}
			if ua := req.UserAgent(); ua != "" {
				fields = append(fields, "user_agent", ua)
			}

			switch {
			case err != nil:
				reqLog.Error("request failed", append(fields, "error", err.Error())...)
			case status >= http.StatusInternalServerError:
				reqLog.Error("request completed", fields...)
			case status >= http.StatusBadRequest:
				reqLog.Warn("request completed", fields...)
			default:
				reqLog.Info("request completed", fields...)
			}
			return err
		}
	}
}

func (c Config) excluded(path string) bool {
	for _, prefix := range c.ExcludedPathPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
