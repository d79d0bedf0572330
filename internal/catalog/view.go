// Package catalog derives the visible page of products from the full listing
// and the user's search and price filters.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"katalog/internal/models"
)

// PageSize is the fixed number of products per page.
const PageSize = 8

// State is the filter and navigation state of a catalog view.
// Price bounds are kept as typed; a bound that does not parse as a number is ignored.
type State struct {
	SearchTerm  string `json:"searchTerm"`
	MinPrice    string `json:"minPrice"`
	MaxPrice    string `json:"maxPrice"`
	CurrentPage int    `json:"currentPage"`
}

// NewState returns an unfiltered state on the first page.
func NewState() State {
	return State{CurrentPage: 1}
}

// WithSearchTerm changes the search term and returns to the first page.
func (s State) WithSearchTerm(term string) State {
	s.SearchTerm = term
	s.CurrentPage = 1
	return s
}

// WithPriceRange changes both price bounds and returns to the first page.
func (s State) WithPriceRange(minPrice, maxPrice string) State {
	s.MinPrice = minPrice
	s.MaxPrice = maxPrice
	s.CurrentPage = 1
	return s
}

// WithProducts is applied whenever the listing is reloaded. The filters
// survive but the view returns to the first page.
func (s State) WithProducts() State {
	s.CurrentPage = 1
	return s
}

// ClearFilters drops the search term and both price bounds.
func (s State) ClearFilters() State {
	return NewState()
}

// GoToPage moves to page, clamped to [1, totalPages].
func (s State) GoToPage(page, totalPages int) State {
	s.CurrentPage = clamp(page, totalPages)
	return s
}

// Page is one page of the filtered listing.
type Page struct {
	Items      []models.Product
	Number     int
	TotalPages int
	TotalItems int
}

// Filter keeps the products matching every active filter of s, in input order.
func Filter(products []models.Product, s State) []models.Product {
	term := strings.ToLower(s.SearchTerm)
	lo, hasLo := parseBound(s.MinPrice)
	hi, hasHi := parseBound(s.MaxPrice)

	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		if hasLo && p.Price.LessThan(lo) {
			continue
		}
		if hasHi && p.Price.GreaterThan(hi) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// TotalPages returns ceil(n / PageSize).
func TotalPages(n int) int {
	return (n + PageSize - 1) / PageSize
}

// Paginate returns page number of items. The page number is clamped first.
func Paginate(items []models.Product, number int) Page {
	total := TotalPages(len(items))
	number = clamp(number, total)

	start := (number - 1) * PageSize
	end := min(start+PageSize, len(items))
	if start > end {
		start = end
	}
	return Page{
		Items:      items[start:end],
		Number:     number,
		TotalPages: total,
		TotalItems: len(items),
	}
}

// Compute filters products by s and returns the current page.
func Compute(products []models.Product, s State) Page {
	return Paginate(Filter(products, s), s.CurrentPage)
}

// clamp limits page to [1, totalPages]. With no pages at all the view stays on page 1.
func clamp(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// parseBound reads a price bound. Blank or non-numeric input means no bound.
func parseBound(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
