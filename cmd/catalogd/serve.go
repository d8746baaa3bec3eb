package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/api"
	"github.com/Andi3172/fullstack-tic-project/pkg/auth"
	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
	"github.com/Andi3172/fullstack-tic-project/pkg/config"
	"github.com/Andi3172/fullstack-tic-project/pkg/health"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/ratelimit"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/metrics"
	"github.com/Andi3172/fullstack-tic-project/pkg/orders"
	"github.com/Andi3172/fullstack-tic-project/pkg/repository/document"
	"github.com/Andi3172/fullstack-tic-project/pkg/server"
	"github.com/Andi3172/fullstack-tic-project/pkg/users"
)

func runServer(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	s, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(log) }()

	metricsRegistry := metrics.NewRegistry()
	catalogMetrics, err := catalog.NewMetrics(metricsRegistry)
	if err != nil {
		return fmt.Errorf("register catalog metrics: %w", err)
	}
	orderMetrics, err := orders.NewMetrics(metricsRegistry)
	if err != nil {
		return fmt.Errorf("register order metrics: %w", err)
	}

	products := s.products()
	cache := catalog.NewCache(products, cfg.Catalog.CacheTTL, log, catalog.WithMetrics(catalogMetrics))
	catalogSvc := catalog.NewService(cache, products, log, catalog.WithQueryMode(catalog.QueryMode(cfg.Catalog.QueryMode)))

	orderOpts := []orders.Option{orders.WithMetrics(orderMetrics)}
	if len(cfg.Auth.AdminEmails) > 0 {
		orderOpts = append(orderOpts, orders.WithAdminEmails(cfg.Auth.AdminEmails...))
	}
	orderSvc := orders.NewService(s.orderStore(), catalogSvc, log, orderOpts...)

	var validator auth.TokenValidator
	if cfg.Auth.Enabled {
		keys := auth.NewJWKSClient(cfg.Auth.JWKSUrl, cfg.Auth.JWKSCacheTTL, log)
		validator = auth.NewJWKSValidator(keys, cfg.Auth.Issuer, cfg.Auth.Audience, log)
	}
	userSvc := users.NewService(document.NewUserRepository(s.exec), log)
	handler := api.NewHandler(catalogSvc, orderSvc, validator, log).WithUsers(userSvc)

	var counter ratelimit.WindowCounter
	if s.redis != nil {
		counter = s.redis
	}

	opts := &server.RunHTTPServersOptions{
		Config:           cfg,
		Logger:           log,
		HealthRegistry:   healthRegistry(cfg, s, catalogSvc),
		MetricsRegistry:  metricsRegistry,
		RegisterRoutes:   handler.Register,
		CatalogRefresher: catalogSvc,
		RateLimitCounter: counter,
		StartupHooks: []server.LifecycleHook{
			{Name: "mongodb-indexes", Fn: s.ensureIndexes},
			{Name: "postgres-migrations", Fn: func(ctx context.Context) error {
				if s.postgres == nil {
					return nil
				}
				return s.runMigrations(ctx, cfg, log, "up", 0)
			}},
			{Name: "catalog-seed", Fn: func(ctx context.Context) error {
				if !cfg.Seed.OnStartup {
					return nil
				}
				report, err := newImporter(cfg, s, log, nil).Run(ctx)
				if err != nil {
					return err
				}
				if report.Inserted() > 0 {
					catalogSvc.Invalidate()
				}
				return nil
			}},
			{Name: "catalog-warmup", Fn: func(ctx context.Context) error {
				// A cold start still serves: the first listing reloads.
				if _, err := catalogSvc.Refresh(ctx); err != nil {
					log.Warn("catalog warmup failed", "error", err)
				}
				return nil
			}},
		},
	}

	servers, err := server.BuildHTTPServers(opts)
	if err != nil {
		return err
	}
	return server.RunHTTPServers(ctx, servers, opts)
}

func healthRegistry(cfg *config.Config, s *stores, catalogSvc *catalog.Service) *health.Registry {
	registry := health.NewRegistry()
	registry.Register(health.NewDatabaseChecker("mongodb", s.mongo))
	if s.postgres != nil {
		registry.Register(health.NewDatabaseChecker("postgres", s.postgres))
	}
	if s.redis != nil {
		registry.Register(health.NewCacheChecker("redis", s.redis))
	}
	registry.Register(health.NewSnapshotChecker("catalog", 2*cfg.Catalog.CacheTTL, func() health.SnapshotInfo {
		stats := catalogSvc.Stats()
		info := health.SnapshotInfo{Loaded: stats.Loaded, Records: stats.Records}
		if stats.Loaded {
			info.Age = time.Since(stats.FetchedAt)
		}
		return info
	}))
	return registry
}
