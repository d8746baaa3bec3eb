package catalog

import (
	"context"
	"sync"
	"time"
)

type fakeStore struct {
	mu         sync.Mutex
	products   []Product
	err        error
	reads      int
	rangeCalls int
	counts     int
}

func newFakeStore(products ...Product) *fakeStore {
	return &fakeStore{products: products}
}

func (s *fakeStore) set(products ...Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
}

func (s *fakeStore) add(products ...Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, products...)
}

func (s *fakeStore) GetAll(ctx context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	return cloneAll(s.products), nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.products {
		if p.ID == id {
			clone := p.Clone()
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// RangeQuery mirrors the aggregation the document repository runs: order by
// (sort key, id) and resume strictly after the cursor record.
func (s *fakeStore) RangeQuery(ctx context.Context, q RangeQuery) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rangeCalls++
	if s.err != nil {
		return nil, s.err
	}
	var candidates []Product
	for _, p := range s.products {
		if q.Category == "" || p.Category == q.Category {
			candidates = append(candidates, p.Clone())
		}
	}
	cmp := NewComparator(q.SortBy, q.Desc)
	cmp.SortWithID(candidates)

	start := 0
	if q.AfterID != "" {
		for _, p := range s.products {
			if p.ID != q.AfterID {
				continue
			}
			start = len(candidates)
			for i, c := range candidates {
				if cmp.CompareWithID(c, p) > 0 {
					start = i
					break
				}
			}
			break
		}
	}
	end := start + q.Limit
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[start:end], nil
}

func (s *fakeStore) Count(ctx context.Context, category string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts++
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for _, p := range s.products {
		if category == "" || p.Category == category {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func price(v float64) *float64 {
	return &v
}

func ids(items []Product) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}
