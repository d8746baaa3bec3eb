package catalog

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Spec filter names as they appear in the query string.
const (
	FilterCores   = "cores"
	FilterVRAM    = "vram"
	FilterRAMSize = "ramSize"
)

// Price bounds applied when only one side of the range is given.
const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 100000
)

// SpecFilter constrains one structured attribute to a set of allowed values.
type SpecFilter struct {
	Name    string
	Options []float64
}

// Matches reports whether p passes the filter. Records lacking the attribute
// (or holding a non-numeric value) never match.
func (f SpecFilter) Matches(p Product) bool {
	value, ok := f.value(p)
	if !ok {
		return false
	}
	for _, option := range f.Options {
		if option == value {
			return true
		}
	}
	return false
}

func (f SpecFilter) value(p Product) (float64, bool) {
	switch f.Name {
	case FilterCores:
		return specNumber(p.Specs, "core_count")
	case FilterVRAM:
		return specNumber(p.Specs, "memory")
	case FilterRAMSize:
		modules, ok := sequence(p.Specs["modules"])
		if !ok || len(modules) < 2 {
			return 0, false
		}
		count, sizeGB := toNumber(modules[0]), toNumber(modules[1])
		total := count * sizeGB
		if math.IsNaN(total) {
			return 0, false
		}
		return total, true
	default:
		return 0, false
	}
}

func specNumber(specs map[string]any, key string) (float64, bool) {
	raw, ok := specs[key]
	if !ok || raw == nil {
		return 0, false
	}
	n := toNumber(raw)
	if math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// PriceRange is an inclusive bound on the effective price.
type PriceRange struct {
	Min float64
	Max float64
}

// Contains reports whether the effective price of p lies within the range.
func (r PriceRange) Contains(p Product) bool {
	price := p.EffectivePrice()
	return price >= r.Min && price <= r.Max
}

// Criteria groups every predicate of a listing request. The zero value
// matches everything.
type Criteria struct {
	Category string
	Price    *PriceRange
	Specs    []SpecFilter
}

// Matches applies the category, price and spec predicates with AND.
func (c Criteria) Matches(p Product) bool {
	if c.Category != "" && c.Category != AllCategories && p.Category != c.Category {
		return false
	}
	return c.matchesPostFilters(p)
}

func (c Criteria) matchesPostFilters(p Product) bool {
	if c.Price != nil && !c.Price.Contains(p) {
		return false
	}
	for _, filter := range c.Specs {
		if !filter.Matches(p) {
			return false
		}
	}
	return true
}

// Filter returns the records matching c, preserving input order.
func (c Criteria) Filter(items []Product) []Product {
	out := make([]Product, 0, len(items))
	for _, p := range items {
		if c.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// toNumber converts stored attribute values the way the catalog has always
// interpreted them: numbers as-is, numeric strings parsed (blank is zero),
// booleans as 0/1, single-element sequences unwrapped. Everything else is NaN.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	if seq, ok := sequence(v); ok {
		switch len(seq) {
		case 0:
			return 0
		case 1:
			return toNumber(seq[0])
		}
	}
	return math.NaN()
}

// sequence unwraps any slice type (including driver-specific array types)
// into []any.
func sequence(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
