package catalog

// Page is one slice of a listing plus its continuation metadata. Both
// strategies return the same shape.
type Page struct {
	Products      []Product `json:"products"`
	TotalItems    int64     `json:"totalItems"`
	TotalPages    int64     `json:"totalPages"`
	CurrentPage   int       `json:"currentPage,omitempty"`
	LastVisibleID *string   `json:"lastVisibleId"`
	HasMore       bool      `json:"hasMore"`
}

func totalPages(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total-1)/int64(limit) + 1
}

// PaginateOffset returns the page-th (1-based) window of limit records.
func PaginateOffset(items []Product, page, limit int) Page {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if page < 1 {
		page = 1
	}
	total := len(items)
	// (page-1)*limit can overflow; compare before multiplying.
	if page-1 > total/limit {
		return newPage(nil, int64(total), limit, page, false)
	}
	start := (page - 1) * limit
	end := start + min(limit, total-start)
	return newPage(items[start:end], int64(total), limit, page, end < total)
}

// PaginateCursor returns the limit records following afterID. An unknown or
// empty afterID starts from the first record.
func PaginateCursor(items []Product, afterID string, limit int) Page {
	if limit <= 0 {
		limit = DefaultLimit
	}
	start := 0
	if afterID != "" {
		for i := range items {
			if items[i].ID == afterID {
				start = i + 1
				break
			}
		}
	}
	end := start + min(limit, len(items)-start)
	current := 0
	if start < end {
		current = start/limit + 1
	}
	return newPage(items[start:end], int64(len(items)), limit, current, end < len(items))
}

func newPage(window []Product, total int64, limit, current int, hasMore bool) Page {
	products := make([]Product, len(window))
	copy(products, window)
	page := Page{
		Products:    products,
		TotalItems:  total,
		TotalPages:  totalPages(total, limit),
		CurrentPage: current,
		HasMore:     hasMore,
	}
	if len(products) > 0 {
		id := products[len(products)-1].ID
		page.LastVisibleID = &id
	}
	return page
}
