// Package postgres owns the pooled PostgreSQL connection used by the SQL
// order store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// QueryTimeout bounds statements whose context has no deadline.
	QueryTimeout time.Duration
}

// Adapter wraps a pooled *sql.DB. It satisfies repository.SQLExecutor.
type Adapter struct {
	db     *sql.DB
	logger logger.Logger
	config Config
}

// NewAdapter opens the pool and verifies it with a ping.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newAdapter(db, cfg, log)
}

func newAdapter(db *sql.DB, cfg Config, log logger.Logger) (*Adapter, error) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("PostgreSQL connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
	)
	return &Adapter{db: db, logger: log, config: cfg}, nil
}

// DB returns the underlying pool, for migrations.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// HealthCheck pings the database with a two second bound.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := a.db.PingContext(ctx); err != nil {
		a.logger.Error("PostgreSQL health check failed", "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close closes the pool.
func (a *Adapter) Close() error {
	a.logger.Info("closing PostgreSQL connection")
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close PostgreSQL connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// ExecContext runs a statement under the query timeout.
func (a *Adapter) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, cancel := a.withQueryTimeout(ctx)
	defer cancel()
	return a.db.ExecContext(ctx, query, args...)
}

// QueryContext runs a query under the query timeout. The rows outlive this
// call, so the timeout context is released by its own timer.
func (a *Adapter) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ctx, cancel := a.withQueryTimeout(ctx)
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		cancel()
		return nil, err
	}
	_ = cancel
	return rows, nil
}

// QueryRowContext runs a single-row query under the query timeout.
func (a *Adapter) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ctx, cancel := a.withQueryTimeout(ctx)
	_ = cancel
	return a.db.QueryRowContext(ctx, query, args...)
}

func (a *Adapter) withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.config.QueryTimeout)
}
