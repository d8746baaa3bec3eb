package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/config"
	"github.com/Andi3172/fullstack-tic-project/pkg/health"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/ratelimit"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/metrics"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/tracing"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
	ginrouter "github.com/Andi3172/fullstack-tic-project/pkg/server/router/gin"
	"github.com/Andi3172/fullstack-tic-project/pkg/version"
)

// LifecycleHook defines a named startup/shutdown action.
type LifecycleHook struct {
	Name string
	Fn   func(context.Context) error
}

// RunHTTPServersOptions defines inputs for building and running the servers.
type RunHTTPServersOptions struct {
	Config *config.Config

	// PublicRouter is optional; a gin router is created when nil.
	PublicRouter router.Router
	// ManagementRouter is optional; a gin router is created when nil and
	// management is enabled.
	ManagementRouter router.Router

	Logger logger.Logger

	HealthRegistry  *health.Registry
	MetricsRegistry *metrics.Registry

	// RegisterRoutes mounts the application routes after the middleware stack.
	RegisterRoutes func(router.Router)
	// CatalogRefresher backs POST /catalog/refresh on the management server.
	CatalogRefresher CatalogRefresher
	// RateLimitCounter is required when the redis rate limiter is configured.
	RateLimitCounter ratelimit.WindowCounter

	StartupHooks        []LifecycleHook
	ShutdownHooks       []LifecycleHook
	ShutdownHookTimeout time.Duration
}

// HTTPServers groups the runtime public/management servers.
type HTTPServers struct {
	Public     *PublicAPIServer
	Management *ManagementServer
}

// BuildHTTPServers constructs the servers from config and options.
func BuildHTTPServers(opts *RunHTTPServersOptions) (*HTTPServers, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		httpLogger, err := logger.NewZapLogger(logger.Config{Level: logger.InfoLevel, Format: logger.JSONFormat})
		if err != nil {
			return nil, err
		}
		opts.Logger = httpLogger
	}
	if opts.PublicRouter == nil {
		opts.PublicRouter = ginrouter.NewRouter()
	}

	limiter, err := buildRateLimiter(opts.Config.RateLimit, opts.RateLimitCounter, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}

	publicServer := NewPublicAPIServer(opts.Config.HTTP, opts.PublicRouter, opts.Logger, PublicOptions{
		Tracing:     opts.Config.Observability.TracingEnabled,
		RateLimiter: limiter,
	})
	if opts.RegisterRoutes != nil {
		opts.RegisterRoutes(opts.PublicRouter)
	}

	servers := &HTTPServers{Public: publicServer}
	if !opts.Config.Management.Enabled {
		return servers, nil
	}

	if opts.ManagementRouter == nil {
		opts.ManagementRouter = ginrouter.NewRouter()
	}
	servers.Management = NewManagementServer(opts.Config.Management, opts.ManagementRouter, opts.Logger, ManagementDeps{
		Health:    opts.HealthRegistry,
		Metrics:   opts.MetricsRegistry,
		Version:   version.Current(resolveServiceName(opts)),
		Refresher: opts.CatalogRefresher,
	})
	return servers, nil
}

func buildRateLimiter(cfg config.RateLimitConfig, counter ratelimit.WindowCounter, log logger.Logger) (ratelimit.RateLimiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", config.RateLimitLocal:
		return ratelimit.NewTokenBucketLimiter(cfg.RequestsPerSecond, cfg.Burst), nil
	case config.RateLimitRedis:
		if counter == nil {
			return nil, errors.New("redis rate limiter requires a redis connection")
		}
		limiter, err := ratelimit.NewRedisRateLimiter(counter, cfg.Window, cfg.RequestsPerSecond, cfg.Burst, cfg.Prefix, log)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	default:
		return nil, fmt.Errorf("unsupported rate limit type %q", cfg.Type)
	}
}

// RunHTTPServers starts the public server and, when built, the management
// server. The first server error cancels the other.
func RunHTTPServers(ctx context.Context, servers *HTTPServers, opts *RunHTTPServersOptions) error {
	if servers == nil || servers.Public == nil {
		return errors.New("servers and public server are required")
	}
	if opts.Logger == nil {
		return errors.New("logger is required")
	}
	if opts.Config == nil {
		return errors.New("config is required")
	}

	versionInfo := version.Current(resolveServiceName(opts))
	opts.Logger.Info("application version metadata",
		"service", versionInfo.Service,
		"version", versionInfo.Version,
		"commit", versionInfo.Commit,
		"build_time", versionInfo.BuildTime,
	)

	tracerProvider, err := initTracerProvider(ctx, opts, versionInfo)
	if err != nil {
		return fmt.Errorf("initialize tracing provider: %w", err)
	}
	defer shutdownTracerProvider(tracerProvider, opts.Logger)

	if err := runStartupHooks(ctx, opts); err != nil {
		return err
	}
	defer func() {
		if shutdownErr := runShutdownHooks(opts); shutdownErr != nil {
			opts.Logger.Error("shutdown hooks completed with errors", "error", shutdownErr)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverCount := 1
	if servers.Management != nil {
		serverCount = 2
	}

	errCh := make(chan error, serverCount)
	go func() { errCh <- servers.Public.Start(runCtx) }()
	if servers.Management != nil {
		go func() { errCh <- servers.Management.Start(runCtx) }()
	}

	var firstErr error
	for idx := 0; idx < serverCount; idx++ {
		currentErr := <-errCh
		if currentErr != nil && firstErr == nil {
			firstErr = currentErr
			cancel()
		}
	}
	return firstErr
}

func initTracerProvider(ctx context.Context, opts *RunHTTPServersOptions, info version.Info) (*tracing.TracerProvider, error) {
	return tracing.NewTracerProvider(ctx, tracing.TracerConfig{
		ServiceName:    info.Service,
		ServiceVersion: info.Version,
		Environment:    resolveEnvironment(opts),
		Endpoint:       opts.Config.Observability.TracingEndpoint,
		SampleRate:     opts.Config.Observability.TracingSampleRate,
		Enabled:        opts.Config.Observability.TracingEnabled,
	})
}

func shutdownTracerProvider(provider *tracing.TracerProvider, log logger.Logger) {
	if provider == nil {
		return
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		log.Error("failed to shutdown tracing provider", "error", err)
	}
}

func resolveServiceName(opts *RunHTTPServersOptions) string {
	if opts.Config != nil {
		if trimmed := strings.TrimSpace(opts.Config.Service.Name); trimmed != "" {
			return trimmed
		}
	}
	return version.Unknown
}

func resolveEnvironment(opts *RunHTTPServersOptions) string {
	if opts.Config != nil {
		if trimmed := strings.TrimSpace(opts.Config.Service.Environment); trimmed != "" {
			return trimmed
		}
	}
	return version.Unknown
}

func hookName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "unnamed"
	}
	return name
}

func runStartupHooks(ctx context.Context, opts *RunHTTPServersOptions) error {
	for _, hook := range opts.StartupHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook.Name)
		opts.Logger.Info("startup hook start", "hook", name)
		if err := hook.Fn(ctx); err != nil {
			opts.Logger.Error("startup hook failed", "hook", name, "error", err)
			return fmt.Errorf("startup hook %q failed: %w", name, err)
		}
		opts.Logger.Info("startup hook complete", "hook", name)
	}
	return nil
}

// runShutdownHooks runs every hook, each under its own timeout, and joins
// their errors.
func runShutdownHooks(opts *RunHTTPServersOptions) error {
	if len(opts.ShutdownHooks) == 0 {
		return nil
	}

	timeout := opts.ShutdownHookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var errs []error
	for _, hook := range opts.ShutdownHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook.Name)
		opts.Logger.Info("shutdown hook start", "hook", name)

		hookCtx, cancel := context.WithTimeout(context.Background(), timeout)
		err := hook.Fn(hookCtx)
		cancel()

		if err != nil {
			opts.Logger.Error("shutdown hook failed", "hook", name, "error", err)
			errs = append(errs, fmt.Errorf("shutdown hook %q failed: %w", name, err))
			continue
		}
		opts.Logger.Info("shutdown hook complete", "hook", name)
	}
	return errors.Join(errs...)
}
