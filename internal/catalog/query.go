// Package catalog computes product listings: category and text filtering,
// ordering, and the summary figures shown above a listing.
package catalog

import (
	"sort"
	"strings"

	"inventory/internal/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// AllCategories disables the category filter.
const AllCategories = "All"

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortName      SortKey = "name"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
)

// ParseSort maps a request value to a SortKey. Unknown values sort newest
// first.
func ParseSort(s string) SortKey {
	switch SortKey(s) {
	case SortName, SortPriceAsc, SortPriceDesc:
		return SortKey(s)
	default:
		return SortNewest
	}
}

// Query is a product listing request.
type Query struct {
	Category string
	Search   string
	Sort     SortKey
}

// Matches reports whether p passes the category and search filters. The
// search text is matched as given, surrounding whitespace included; only the
// empty string disables it.
func (q Query) Matches(p models.Product) bool {
	if q.Category != "" && q.Category != AllCategories && p.Category != q.Category {
		return false
	}
	needle := strings.ToLower(q.Search)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle) ||
		strings.Contains(strings.ToLower(p.Brand), needle)
}

// Apply filters and orders products without modifying the input slice.
// Products with equal sort keys keep their input order.
func Apply(products []models.Product, q Query) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if q.Matches(p) {
			out = append(out, p)
		}
	}

	switch ParseSort(string(q.Sort)) {
	case SortName:
		// Collators are not safe for concurrent use.
		coll := collate.New(language.English)
		sort.SliceStable(out, func(i, j int) bool {
			return coll.CompareString(out[i].Name, out[j].Name) < 0
		})
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}
