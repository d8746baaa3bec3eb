package catalog

import (
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultSortField is used when the request names no sort field.
const DefaultSortField = "price"

var sortableFields = map[string]bool{
	"price":       true,
	"name":        true,
	"category":    true,
	"description": true,
	"image":       true,
	"id":          true,
	"stock":       true,
	"createdAt":   true,
}

// IsSortable reports whether field names a sortable record attribute.
func IsSortable(field string) bool {
	return sortableFields[field]
}

// Comparator orders records by one field. It holds a collator, which is not
// safe for concurrent use, so each request builds its own.
type Comparator struct {
	field    string
	desc     bool
	collator *collate.Collator
}

// NewComparator returns a comparator for field in the given direction.
func NewComparator(field string, desc bool) *Comparator {
	return &Comparator{
		field:    field,
		desc:     desc,
		collator: collate.New(language.Und),
	}
}

// Compare returns a negative number when a sorts before b, positive when
// after, zero when they tie.
func (c *Comparator) Compare(a, b Product) int {
	result := c.compareAsc(a, b)
	if c.desc {
		return -result
	}
	return result
}

// CompareWithID breaks ties on the record id, ascending in both directions.
func (c *Comparator) CompareWithID(a, b Product) int {
	if result := c.Compare(a, b); result != 0 {
		return result
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

func (c *Comparator) compareAsc(a, b Product) int {
	va, vb := SortKey(a, c.field), SortKey(b, c.field)

	sa, aIsString := va.(string)
	sb, bIsString := vb.(string)
	if aIsString && bIsString {
		return c.collator.CompareString(sa, sb)
	}

	na, nb := toSortNumber(va), toSortNumber(vb)
	switch {
	case math.IsNaN(na) || math.IsNaN(nb):
		return 0
	case na < nb:
		return -1
	case na > nb:
		return 1
	default:
		return 0
	}
}

// SortKey extracts the value a record sorts on. A missing price is +Inf so
// unknown prices land last ascending and first descending.
func SortKey(p Product, field string) any {
	switch field {
	case "price":
		if p.Price == nil {
			return math.Inf(1)
		}
		return *p.Price
	case "name":
		return p.Name
	case "category":
		return p.Category
	case "description":
		return p.Description
	case "image":
		return p.Image
	case "id":
		return p.ID
	case "stock":
		return float64(p.Stock)
	case "createdAt":
		return p.Metadata.CreatedAt
	default:
		return nil
	}
}

func toSortNumber(v any) float64 {
	if v == nil {
		return math.NaN()
	}
	return toNumber(v)
}

// Sort orders items in place. Ties keep their input order.
func (c *Comparator) Sort(items []Product) {
	sort.SliceStable(items, func(i, j int) bool {
		return c.Compare(items[i], items[j]) < 0
	})
}

// SortWithID orders items in place by (field, id), a total order.
func (c *Comparator) SortWithID(items []Product) {
	sort.SliceStable(items, func(i, j int) bool {
		return c.CompareWithID(items[i], items[j]) < 0
	})
}
