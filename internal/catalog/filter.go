package catalog

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

// Sort orders accepted by Filter.
const (
	SortNone    = ""
	SortLowHigh = "low-high"
	SortHighLow = "high-low"
	SortNewest  = "newest"
)

// AllCategories is the category filter value that matches every product.
const AllCategories = "All"

// DefaultPriceCeiling is the price slider maximum for an empty catalog.
var DefaultPriceCeiling = decimal.NewFromInt(15000)

// Query narrows and orders a product list.
type Query struct {
	Category string           // Exact label; "" or "All" matches everything
	Keyword  string           // Case-insensitive substring of the title
	MaxPrice *decimal.Decimal // Inclusive USD bound; nil or zero disables
	Sort     string
}

// ValidSort reports whether s is an accepted sort order.
func ValidSort(s string) bool {
	switch s {
	case SortNone, SortLowHigh, SortHighLow, SortNewest:
		return true
	}
	return false
}

// Filter returns the products matching q in the requested order.
// The input slice is not modified. Sorting is stable.
func Filter(products []model.Product, q Query) []model.Product {
	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if q.Category != "" && q.Category != AllCategories && p.Category != q.Category {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(p.Title), keyword) {
			continue
		}
		if q.MaxPrice != nil && !q.MaxPrice.IsZero() && p.PriceUSD.GreaterThan(*q.MaxPrice) {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortLowHigh:
		slices.SortStableFunc(out, func(a, b model.Product) int { return a.PriceUSD.Cmp(b.PriceUSD) })
	case SortHighLow:
		slices.SortStableFunc(out, func(a, b model.Product) int { return b.PriceUSD.Cmp(a.PriceUSD) })
	case SortNewest:
		slices.SortStableFunc(out, func(a, b model.Product) int {
			switch {
			case a.ID > b.ID:
				return -1
			case a.ID < b.ID:
				return 1
			}
			return 0
		})
	}
	return out
}

// Categories lists distinct non-empty category labels in first-seen order.
func Categories(products []model.Product) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

// PriceCeiling returns the highest USD price, or DefaultPriceCeiling when empty.
func PriceCeiling(products []model.Product) decimal.Decimal {
	if len(products) == 0 {
		return DefaultPriceCeiling
	}
	ceiling := products[0].PriceUSD
	for _, p := range products[1:] {
		if p.PriceUSD.GreaterThan(ceiling) {
			ceiling = p.PriceUSD
		}
	}
	return ceiling
}
