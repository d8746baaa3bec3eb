// Package document implements the MongoDB-backed product, order and user
// repositories on top of a map-based executor.
package document

// Filter is an equality filter on document fields.
type Filter map[string]interface{}

// Sort orders results by one field.
type Sort struct {
	Field string
	Order SortOrder
}

// SortOrder is the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Pagination caps the number of returned documents. Zero means no cap.
type Pagination struct {
	Limit int
}

// QueryOptions groups filtering, sorting and pagination for Find.
type QueryOptions struct {
	Filter     Filter
	Sort       Sort
	Pagination Pagination
}
