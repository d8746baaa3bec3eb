package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

// QueryMode selects where listing candidates come from.
type QueryMode string

const (
	// QueryModeMemory answers every listing from the cached snapshot.
	QueryModeMemory QueryMode = "memory"
	// QueryModeStore pushes category, sort and cursor down to the store for
	// cursor-strategy requests. Offset requests still use the snapshot.
	QueryModeStore QueryMode = "store"
)

const minStoreBatch = 32

// Service plans and executes catalog queries.
type Service struct {
	cache *Cache
	store Store
	mode  QueryMode
	log   logger.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithQueryMode selects the candidate source for listings.
func WithQueryMode(mode QueryMode) ServiceOption {
	return func(s *Service) {
		if mode == QueryModeStore {
			s.mode = QueryModeStore
			return
		}
		s.mode = QueryModeMemory
	}
}

// NewService creates a query service reading through cache, with store used
// for lookups and store-mode range reads.
func NewService(cache *Cache, store Store, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		cache: cache,
		store: store,
		mode:  QueryModeMemory,
		log:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListProducts filters, orders and paginates the catalog.
func (s *Service) ListProducts(ctx context.Context, q Query) (Page, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	q.Limit = min(q.Limit, MaxLimit)
	if q.SortBy == "" {
		q.SortBy = DefaultSortField
	}

	if s.mode == QueryModeStore && q.Strategy == StrategyCursor && IsSortable(q.SortBy) {
		return s.listFromStore(ctx, q)
	}
	return s.listFromSnapshot(ctx, q)
}

func (s *Service) listFromSnapshot(ctx context.Context, q Query) (Page, error) {
	all, err := s.cache.GetAll(ctx, q.ForceRefresh)
	if err != nil {
		return Page{}, err
	}

	filtered := q.Criteria.Filter(all)
	cmp := NewComparator(q.SortBy, q.Desc)

	if q.Strategy == StrategyOffset {
		cmp.Sort(filtered)
		return PaginateOffset(filtered, q.Page, q.Limit), nil
	}
	cmp.SortWithID(filtered)
	return PaginateCursor(filtered, q.AfterID, q.Limit), nil
}

// listFromStore reads ordered batches until limit+1 post-filter matches are
// held or the store runs dry. TotalItems counts category matches only.
func (s *Service) listFromStore(ctx context.Context, q Query) (Page, error) {
	category := q.Criteria.Category
	if category == AllCategories {
		category = ""
	}

	batchSize := q.Limit + 1
	if batchSize < minStoreBatch {
		batchSize = minStoreBatch
	}

	matches := make([]Product, 0, min(q.Limit+1, minStoreBatch))
	after := q.AfterID
	for len(matches) <= q.Limit {
		batch, err := s.store.RangeQuery(ctx, RangeQuery{
			Category: category,
			SortBy:   q.SortBy,
			Desc:     q.Desc,
			AfterID:  after,
			Limit:    batchSize,
		})
		if err != nil {
			return Page{}, s.unavailable("range query", err)
		}
		for _, p := range batch {
			if q.Criteria.Matches(p) {
				matches = append(matches, p)
				if len(matches) > q.Limit {
					break
				}
			}
		}
		if len(batch) < batchSize {
			break
		}
		after = batch[len(batch)-1].ID
	}

	total, err := s.store.Count(ctx, category)
	if err != nil {
		return Page{}, s.unavailable("count", err)
	}

	hasMore := len(matches) > q.Limit
	if hasMore {
		matches = matches[:q.Limit]
	}
	page := newPage(matches, total, q.Limit, 0, hasMore)
	return page, nil
}

// GetProduct reads one record straight from the store.
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.unavailable("get product", err)
	}
	return p, nil
}

// Refresh forces a snapshot reload.
func (s *Service) Refresh(ctx context.Context) (SnapshotStats, error) {
	return s.cache.Refresh(ctx)
}

// Invalidate drops the snapshot.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
}

// Stats reports on the current snapshot.
func (s *Service) Stats() SnapshotStats {
	return s.cache.Stats()
}

func (s *Service) unavailable(op string, err error) error {
	if s.log != nil {
		s.log.Error("catalog store read failed", "operation", op, "error", err)
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
