// Package catalog implements the product catalog query engine.
//
// A listing request is answered from a time-boxed in-process snapshot of the
// whole collection (or, in store mode, from ordered range reads), reduced by
// category, price and spec filters, ordered by the sort comparator and sliced
// by one of two pagination strategies.
package catalog

import (
	"context"
	"errors"
)

var (
	// ErrStoreUnavailable is returned when the backing store read fails.
	// Callers surface it as a service error; the cache never falls back to a
	// stale snapshot when it happens.
	ErrStoreUnavailable = errors.New("catalog: store unavailable")

	// ErrNotFound is returned by single-record lookups that miss.
	ErrNotFound = errors.New("catalog: product not found")
)

// Categories lists the part categories the catalog is seeded with.
var Categories = []string{"cpu", "video-card", "motherboard", "memory", "internal-hard-drive"}

// AllCategories is the sentinel category value meaning "no category filter".
const AllCategories = "All"

// Product is one catalog record. Specs is an open attribute map whose shape
// depends on the category; the query engine only reads it.
type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Price       *float64       `json:"price"`
	Image       string         `json:"image"`
	Description string         `json:"description"`
	Stock       int            `json:"stock"`
	Specs       map[string]any `json:"specs"`
	Metadata    Metadata       `json:"metadata"`
}

// Metadata holds immutable bookkeeping fields.
type Metadata struct {
	CreatedAt string `json:"createdAt"`
}

// EffectivePrice returns the price used for range filtering: a missing
// price counts as zero.
func (p Product) EffectivePrice() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

// Clone returns a deep copy of the product, including nested spec values.
func (p Product) Clone() Product {
	out := p
	if p.Price != nil {
		price := *p.Price
		out.Price = &price
	}
	if p.Specs != nil {
		out.Specs = cloneValue(p.Specs).(map[string]any)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(typed))
		for k, inner := range typed {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(typed))
		for i, inner := range typed {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// RangeQuery describes one ordered batch read pushed down to the store.
// Records are ordered by (sort key, id); AfterID resumes strictly after the
// record with that id and is ignored when no such record exists.
type RangeQuery struct {
	Category string
	SortBy   string
	Desc     bool
	AfterID  string
	Limit    int
}

// Store is the backing document collection consumed by the catalog.
type Store interface {
	// GetAll reads the full collection.
	GetAll(ctx context.Context) ([]Product, error)
	// GetByID returns ErrNotFound when the id does not exist.
	GetByID(ctx context.Context, id string) (*Product, error)
	// RangeQuery returns one ordered batch; see RangeQuery.
	RangeQuery(ctx context.Context, q RangeQuery) ([]Product, error)
	// Count returns the number of records in category ("" counts all).
	Count(ctx context.Context, category string) (int64, error)
}
