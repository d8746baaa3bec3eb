package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// DefaultLimit is the page size used when none (or an invalid one) is given.
const DefaultLimit = 12

// MaxLimit caps the page size. Larger requests are served MaxLimit records.
const MaxLimit = 100

// Strategy selects how a listing is sliced into pages.
type Strategy int

const (
	// StrategyCursor resumes after the last visible record id.
	StrategyCursor Strategy = iota
	// StrategyOffset slices by 1-based page number.
	StrategyOffset
)

// Query is a parsed listing request. Parsing never fails: malformed values
// fall back to their defaults.
type Query struct {
	Criteria     Criteria
	SortBy       string
	Desc         bool
	Limit        int
	Page         int
	AfterID      string
	Strategy     Strategy
	ForceRefresh bool
}

// ParseQuery builds a Query from query-string values.
func ParseQuery(values url.Values) Query {
	q := Query{
		SortBy: DefaultSortField,
		Limit:  DefaultLimit,
		Page:   1,
	}

	q.Criteria.Category = strings.TrimSpace(values.Get("category"))
	q.Criteria.Price = parsePriceRange(values.Get("minPrice"), values.Get("maxPrice"))
	for _, name := range []string{FilterCores, FilterVRAM, FilterRAMSize} {
		if options, ok := parseOptions(values.Get(name)); ok {
			q.Criteria.Specs = append(q.Criteria.Specs, SpecFilter{Name: name, Options: options})
		}
	}

	if sortBy := strings.TrimSpace(values.Get("sortBy")); sortBy != "" {
		q.SortBy = sortBy
	}
	q.Desc = strings.EqualFold(strings.TrimSpace(values.Get("order")), "desc")

	if limit, err := strconv.Atoi(strings.TrimSpace(values.Get("limit"))); err == nil && limit > 0 {
		q.Limit = min(limit, MaxLimit)
	}

	cursor := values.Get("lastVisibleId")
	if cursor == "" {
		cursor = values.Get("lastVisible")
	}
	rawPage := strings.TrimSpace(values.Get("page"))
	switch {
	case cursor != "":
		q.Strategy = StrategyCursor
		q.AfterID = cursor
	case rawPage != "":
		q.Strategy = StrategyOffset
		if page, err := strconv.Atoi(rawPage); err == nil && page >= 1 {
			q.Page = page
		}
	default:
		q.Strategy = StrategyCursor
	}

	q.ForceRefresh = parseBool(values.Get("forceRefresh"))
	return q
}

func parsePriceRange(rawMin, rawMax string) *PriceRange {
	minValue, hasMin := parseBound(rawMin)
	maxValue, hasMax := parseBound(rawMax)
	if !hasMin && !hasMax {
		return nil
	}
	r := &PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice}
	if hasMin {
		r.Min = minValue
	}
	if hasMax {
		r.Max = maxValue
	}
	return r
}

func parseBound(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseOptions reads a comma-separated numeric set. Unparseable entries are
// kept as NaN so they never match anything.
func parseOptions(raw string) ([]float64, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	parts := strings.Split(raw, ",")
	options := make([]float64, 0, len(parts))
	for _, part := range parts {
		options = append(options, toNumber(part))
	}
	return options, true
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
