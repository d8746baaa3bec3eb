package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Andi3172/fullstack-tic-project/pkg/catalog/seed"
	"github.com/Andi3172/fullstack-tic-project/pkg/config"
	"github.com/Andi3172/fullstack-tic-project/pkg/migrate"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/orders"
	"github.com/Andi3172/fullstack-tic-project/pkg/repository"
	"github.com/Andi3172/fullstack-tic-project/pkg/repository/document"
	"github.com/Andi3172/fullstack-tic-project/pkg/store"
	mongostore "github.com/Andi3172/fullstack-tic-project/pkg/store/mongodb"
	pgstore "github.com/Andi3172/fullstack-tic-project/pkg/store/postgres"
	redisstore "github.com/Andi3172/fullstack-tic-project/pkg/store/redis"
)

var (
	_ store.Adapter = (*mongostore.Adapter)(nil)
	_ store.Adapter = (*pgstore.Adapter)(nil)
	_ store.Adapter = (*redisstore.Adapter)(nil)
)

type namedAdapter struct {
	name    string
	adapter store.Adapter
}

// stores holds the connections a command opened. Close releases them in
// reverse order.
type stores struct {
	mongo    *mongostore.Adapter
	exec     *document.MongoDBExecutor
	postgres *pgstore.Adapter
	redis    *redisstore.Adapter
	opened   []namedAdapter
}

func (s *stores) track(name string, adapter store.Adapter) {
	s.opened = append(s.opened, namedAdapter{name: name, adapter: adapter})
}

func (s *stores) Close(log logger.Logger) error {
	var errs []error
	for i := len(s.opened) - 1; i >= 0; i-- {
		a := s.opened[i]
		if err := a.adapter.Close(); err != nil {
			log.Error("failed to close connection", "store", a.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", a.name, err))
		}
	}
	s.opened = nil
	return errors.Join(errs...)
}

// ping health-checks every open connection concurrently.
func (s *stores) ping(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range s.opened {
		g.Go(func() error {
			if err := a.adapter.HealthCheck(gctx); err != nil {
				return fmt.Errorf("%s: %w", a.name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func openMongo(cfg *config.Config, log logger.Logger, s *stores) error {
	adapter, err := mongostore.NewAdapter(mongostore.Config{
		URL:              cfg.MongoDB.URL,
		Database:         cfg.MongoDB.Database,
		ConnectTimeout:   cfg.MongoDB.ConnectTimeout,
		OperationTimeout: cfg.MongoDB.OperationTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	s.track("mongodb", adapter)

	exec, err := document.NewMongoDBExecutor(adapter, cfg.MongoDB.Database)
	if err != nil {
		return err
	}
	s.mongo = adapter
	s.exec = exec
	return nil
}

func openPostgres(cfg *config.Config, log logger.Logger, s *stores) error {
	adapter, err := pgstore.NewAdapter(pgstore.Config{
		URL:             cfg.Postgres.URL,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
		QueryTimeout:    cfg.Postgres.QueryTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	s.track("postgres", adapter)
	s.postgres = adapter
	return nil
}

func openRedis(cfg *config.Config, log logger.Logger, s *stores) error {
	adapter, err := redisstore.NewAdapter(redisstore.Config{
		URL:              cfg.Redis.URL,
		MaxConns:         cfg.Redis.MaxConns,
		OperationTimeout: cfg.Redis.OperationTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	s.track("redis", adapter)
	s.redis = adapter
	return nil
}

// openStores connects to MongoDB and, depending on configuration, to
// PostgreSQL and Redis.
func openStores(cfg *config.Config, log logger.Logger) (*stores, error) {
	s := &stores{}
	if err := openMongo(cfg, log, s); err != nil {
		return nil, err
	}
	if cfg.Orders.Store == config.OrderStorePostgres {
		if err := openPostgres(cfg, log, s); err != nil {
			_ = s.Close(log)
			return nil, err
		}
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.Type == config.RateLimitRedis {
		if err := openRedis(cfg, log, s); err != nil {
			_ = s.Close(log)
			return nil, err
		}
	}
	return s, nil
}

// orderStore returns the configured order store.
func (s *stores) orderStore() orders.Store {
	if s.postgres != nil {
		return repository.NewOrderRepository(s.postgres)
	}
	return document.NewOrderRepository(s.exec)
}

// ensureIndexes creates the product, order and user indexes the queries
// rely on.
func (s *stores) ensureIndexes(ctx context.Context) error {
	if err := s.mongo.EnsureIndexes(ctx, document.ProductsCollection, document.ProductIndexes()); err != nil {
		return fmt.Errorf("ensure product indexes: %w", err)
	}
	if err := s.mongo.EnsureIndexes(ctx, document.UsersCollection, document.UserIndexes()); err != nil {
		return fmt.Errorf("ensure user indexes: %w", err)
	}
	if s.postgres == nil {
		if err := s.mongo.EnsureIndexes(ctx, document.OrdersCollection, document.OrderIndexes()); err != nil {
			return fmt.Errorf("ensure order indexes: %w", err)
		}
	}
	return nil
}

func (s *stores) migrationManager() (*migrate.SQLManager, error) {
	if s.postgres == nil {
		return nil, errors.New("migrations require orders.store=postgres")
	}
	return migrate.NewSQLManager(s.postgres.DB(), repository.Migrations, repository.MigrationsDir)
}

func (s *stores) products() *document.ProductRepository {
	return document.NewProductRepository(s.exec)
}

func (s *stores) runMigrations(ctx context.Context, cfg *config.Config, log logger.Logger, direction string, steps int) error {
	manager, err := s.migrationManager()
	if err != nil {
		return err
	}
	return migrate.RunParsed(ctx, direction, steps, migrate.Options{
		ServiceName: cfg.Service.Name,
		Path:        "embedded:" + repository.MigrationsDir,
		Logger:      log,
	}, manager.Operations())
}

func newImporter(cfg *config.Config, s *stores, log logger.Logger, categories []string) *seed.Importer {
	return seed.NewImporter(seed.Config{
		BaseURL:          cfg.Seed.BaseURL,
		Categories:       categories,
		PerCategoryLimit: cfg.Seed.PerCategoryLimit,
		BatchSize:        cfg.Seed.BatchSize,
		Concurrency:      cfg.Seed.Concurrency,
		Timeout:          cfg.Seed.Timeout,
	}, s.products(), log)
}
