package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/tracing"
)

// DefaultCacheTTL is how long a snapshot is served before the store is read
// again.
const DefaultCacheTTL = 5 * time.Minute

type snapshot struct {
	records   []Product
	fetchedAt time.Time
}

// SnapshotStats describes the current snapshot.
type SnapshotStats struct {
	Records   int       `json:"records"`
	FetchedAt time.Time `json:"fetchedAt"`
	Age       string    `json:"age"`
	Loaded    bool      `json:"loaded"`
}

// Cache is a time-boxed in-process copy of the whole catalog. The snapshot
// is replaced wholesale; readers never observe a partially built one.
// Concurrent refreshes may each read the store; the last one to finish wins.
type Cache struct {
	store   Store
	ttl     time.Duration
	now     func() time.Time
	metrics *Metrics
	log     logger.Logger
	current atomic.Pointer[snapshot]
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces the wall clock used for TTL checks.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMetrics attaches Prometheus collectors to the cache.
func WithMetrics(m *Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// NewCache creates an empty cache over store. A non-positive ttl uses
// DefaultCacheTTL.
func NewCache(store Store, ttl time.Duration, log logger.Logger, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAll returns a defensive copy of the catalog, reading the store when
// forceRefresh is set, no snapshot exists or the snapshot has expired.
func (c *Cache) GetAll(ctx context.Context, forceRefresh bool) ([]Product, error) {
	snap := c.current.Load()
	fresh := !forceRefresh && snap != nil && c.now().Sub(snap.fetchedAt) < c.ttl

	ctx, span := tracing.StartCacheSpan(ctx, tracing.SpanOperationCacheGet,
		tracing.WithCacheSystem("in-process"),
		tracing.WithCacheKey("catalog"),
		tracing.WithCacheHit(fresh),
	)
	defer span.End()

	if fresh {
		c.metrics.hit()
		tracing.RecordSuccess(span)
		return cloneAll(snap.records), nil
	}

	c.metrics.miss()
	snap, err := c.refresh(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	tracing.RecordSuccess(span)
	return cloneAll(snap.records), nil
}

// Refresh reads the store and replaces the snapshot.
func (c *Cache) Refresh(ctx context.Context) (SnapshotStats, error) {
	ctx, span := tracing.StartCacheSpan(ctx, tracing.SpanOperationCacheRefresh,
		tracing.WithCacheSystem("in-process"),
		tracing.WithCacheKey("catalog"),
	)
	defer span.End()

	if _, err := c.refresh(ctx); err != nil {
		tracing.RecordError(span, err)
		return SnapshotStats{}, err
	}
	tracing.RecordSuccess(span)
	return c.Stats(), nil
}

// Invalidate drops the snapshot so the next read goes to the store.
func (c *Cache) Invalidate() {
	c.current.Store(nil)
}

// Stats reports on the current snapshot.
func (c *Cache) Stats() SnapshotStats {
	snap := c.current.Load()
	if snap == nil {
		return SnapshotStats{}
	}
	return SnapshotStats{
		Records:   len(snap.records),
		FetchedAt: snap.fetchedAt,
		Age:       c.now().Sub(snap.fetchedAt).Round(time.Millisecond).String(),
		Loaded:    true,
	}
}

func (c *Cache) refresh(ctx context.Context) (*snapshot, error) {
	start := c.now()
	records, err := c.store.GetAll(ctx)
	if err != nil {
		c.metrics.refreshFailed()
		if c.log != nil {
			c.log.Error("catalog refresh failed", "error", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	snap := &snapshot{records: cloneAll(records), fetchedAt: c.now()}
	c.current.Store(snap)
	c.metrics.refreshed(len(snap.records))
	if c.log != nil {
		c.log.Debug("catalog snapshot refreshed",
			"records", len(snap.records),
			"duration", snap.fetchedAt.Sub(start).String(),
		)
	}
	return snap, nil
}

func cloneAll(items []Product) []Product {
	out := make([]Product, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}
