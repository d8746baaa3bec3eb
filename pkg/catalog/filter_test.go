package catalog

import (
	"math"
	"testing"
)

func TestSpecFilter_RAMSize(t *testing.T) {
	filter := SpecFilter{Name: FilterRAMSize, Options: []float64{32}}

	tests := []struct {
		name  string
		specs map[string]any
		want  bool
	}{
		{"2x16 matches", map[string]any{"modules": []any{2, 16}}, true},
		{"1x16 does not match", map[string]any{"modules": []any{1, 16}}, false},
		{"modules absent", map[string]any{"speed": []any{5, 6000}}, false},
		{"nil specs", nil, false},
		{"single module entry", map[string]any{"modules": []any{32}}, false},
		{"typed int32 slice", map[string]any{"modules": []int32{4, 8}}, true},
		{"numeric strings", map[string]any{"modules": []any{"2", "16"}}, true},
		{"non numeric", map[string]any{"modules": []any{"two", 16}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filter.Matches(Product{ID: "x", Specs: tt.specs})
			if got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpecFilter_CoresAndVRAM(t *testing.T) {
	cores := SpecFilter{Name: FilterCores, Options: []float64{6, 8}}
	vram := SpecFilter{Name: FilterVRAM, Options: []float64{12}}

	tests := []struct {
		name   string
		filter SpecFilter
		specs  map[string]any
		want   bool
	}{
		{"cores float", cores, map[string]any{"core_count": 8.0}, true},
		{"cores int64", cores, map[string]any{"core_count": int64(6)}, true},
		{"cores string", cores, map[string]any{"core_count": " 8 "}, true},
		{"cores not in set", cores, map[string]any{"core_count": 4}, false},
		{"cores missing", cores, map[string]any{"boost_clock": 5.1}, false},
		{"cores null", cores, map[string]any{"core_count": nil}, false},
		{"vram match", vram, map[string]any{"memory": 12}, true},
		{"vram other field", vram, map[string]any{"core_count": 12}, false},
		{"unknown filter", SpecFilter{Name: "tdp", Options: []float64{65}}, map[string]any{"tdp": 65}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(Product{Specs: tt.specs}); got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCriteria_Matches(t *testing.T) {
	p := Product{
		ID:       "ryzen-5",
		Category: "cpu",
		Price:    price(199.99),
		Specs:    map[string]any{"core_count": 6},
	}

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{"zero criteria", Criteria{}, true},
		{"category match", Criteria{Category: "cpu"}, true},
		{"category All", Criteria{Category: AllCategories}, true},
		{"category mismatch", Criteria{Category: "memory"}, false},
		{"price inside", Criteria{Price: &PriceRange{Min: 100, Max: 200}}, true},
		{"price inclusive bounds", Criteria{Price: &PriceRange{Min: 199.99, Max: 199.99}}, true},
		{"price outside", Criteria{Price: &PriceRange{Min: 200, Max: 300}}, false},
		{"all predicates", Criteria{
			Category: "cpu",
			Price:    &PriceRange{Min: 0, Max: 500},
			Specs:    []SpecFilter{{Name: FilterCores, Options: []float64{6}}},
		}, true},
		{"one failing spec", Criteria{
			Category: "cpu",
			Specs: []SpecFilter{
				{Name: FilterCores, Options: []float64{6}},
				{Name: FilterVRAM, Options: []float64{8}},
			},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.criteria.Matches(p); got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriceRange_NullPriceFiltersAsZero(t *testing.T) {
	p := Product{ID: "unknown"}
	if !(PriceRange{Min: 0, Max: 10}).Contains(p) {
		t.Fatal("expected null price to be treated as 0")
	}
	if (PriceRange{Min: 1, Max: 10}).Contains(p) {
		t.Fatal("expected null price to be excluded when min > 0")
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{"", 0},
		{"  ", 0},
		{"12.5", 12.5},
		{true, 1},
		{false, 0},
		{int32(7), 7},
		{[]any{}, 0},
		{[]any{"3"}, 3},
	}
	for _, tt := range tests {
		if got := toNumber(tt.in); got != tt.want {
			t.Fatalf("toNumber(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, in := range []any{"abc", []any{1, 2}, map[string]any{}} {
		if got := toNumber(in); !math.IsNaN(got) {
			t.Fatalf("toNumber(%#v) = %v, want NaN", in, got)
		}
	}
}

func TestCriteria_FilterPreservesOrder(t *testing.T) {
	items := []Product{
		{ID: "c", Category: "cpu"},
		{ID: "m", Category: "memory"},
		{ID: "a", Category: "cpu"},
	}
	got := ids(Criteria{Category: "cpu"}.Filter(items))
	if len(got) != 2 || got[0] != "c" || got[1] != "a" {
		t.Fatalf("Filter() = %v, want [c a]", got)
	}
}
