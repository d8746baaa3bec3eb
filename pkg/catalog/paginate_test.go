package catalog

import (
	"fmt"
	"math"
	"reflect"
	"testing"
)

func numbered(n int) []Product {
	out := make([]Product, n)
	for i := range out {
		out[i] = Product{ID: fmt.Sprintf("p%02d", i)}
	}
	return out
}

func TestPaginateOffset(t *testing.T) {
	items := numbered(5)

	tests := []struct {
		name      string
		page      int
		limit     int
		wantIDs   []string
		wantPages int64
		wantMore  bool
	}{
		{"first page", 1, 2, []string{"p00", "p01"}, 3, true},
		{"last partial page", 3, 2, []string{"p04"}, 3, false},
		{"past the end", 9, 2, []string{}, 3, false},
		{"page below one", 0, 2, []string{"p00", "p01"}, 3, true},
		{"invalid limit", 1, 0, []string{"p00", "p01", "p02", "p03", "p04"}, 1, false},
		{"max int page", math.MaxInt, 2, []string{}, 3, false},
		{"max int limit", 1, math.MaxInt, []string{"p00", "p01", "p02", "p03", "p04"}, 1, false},
		{"max int limit second page", 2, math.MaxInt, []string{}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := PaginateOffset(items, tt.page, tt.limit)
			if got := ids(page.Products); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Fatalf("products = %v, want %v", got, tt.wantIDs)
			}
			if page.TotalItems != 5 || page.TotalPages != tt.wantPages || page.HasMore != tt.wantMore {
				t.Fatalf("unexpected metadata %+v", page)
			}
		})
	}
}

func TestPaginateCursor(t *testing.T) {
	items := numbered(5)

	page := PaginateCursor(items, "", 2)
	if got := ids(page.Products); !reflect.DeepEqual(got, []string{"p00", "p01"}) {
		t.Fatalf("first page = %v", got)
	}
	if page.LastVisibleID == nil || *page.LastVisibleID != "p01" || !page.HasMore || page.CurrentPage != 1 {
		t.Fatalf("unexpected metadata %+v", page)
	}

	page = PaginateCursor(items, "p03", 2)
	if got := ids(page.Products); !reflect.DeepEqual(got, []string{"p04"}) {
		t.Fatalf("tail page = %v", got)
	}
	if page.HasMore || page.CurrentPage != 3 {
		t.Fatalf("unexpected tail metadata %+v", page)
	}

	page = PaginateCursor(items, "missing", 2)
	if got := ids(page.Products); !reflect.DeepEqual(got, []string{"p00", "p01"}) {
		t.Fatalf("unknown cursor should restart at 0, got %v", got)
	}

	page = PaginateCursor(items, "p04", 2)
	if len(page.Products) != 0 || page.LastVisibleID != nil || page.HasMore {
		t.Fatalf("expected empty final page, got %+v", page)
	}
	if page.Products == nil {
		t.Fatal("products must never be nil")
	}
}

func TestPaginateCursor_HugeLimit(t *testing.T) {
	items := numbered(5)

	page := PaginateCursor(items, "p00", math.MaxInt)
	if got := ids(page.Products); !reflect.DeepEqual(got, []string{"p01", "p02", "p03", "p04"}) {
		t.Fatalf("products = %v", got)
	}
	if page.HasMore || page.TotalPages != 1 || page.CurrentPage != 1 {
		t.Fatalf("unexpected metadata %+v", page)
	}
}
