package favorites

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 10

// PageSizes are the page sizes a view may offer.
var PageSizes = []int{10, 20, 50, 100}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// Filter is the query state of the collection. CategoryID and TagID hold raw
// select values; "" means no filter.
type Filter struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	Search     string `json:"search"`
	CategoryID string `json:"categoryId"`
	TagID      string `json:"tagId"`
}

// DefaultFilter returns page 1 with the default page size and no filters.
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: DefaultPageSize}
}

// Query returns the query parameters of GET /api/favorites. Empty filter
// values are kept so the server sees them as "no filter".
func (f Filter) Query() map[string]string {
	return map[string]string{
		"page":        strconv.Itoa(f.Page),
		"per_page":    strconv.Itoa(f.PageSize),
		"search":      f.Search,
		"category_id": f.CategoryID,
		"tag_id":      f.TagID,
	}
}

// LastPage returns ceil(total/pageSize), 0 for an empty result.
func LastPage(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Pagination is what a view needs to render the pager.
type Pagination struct {
	Page         int    `json:"page"`
	LastPage     int    `json:"lastPage"`
	Label        string `json:"label"`
	PrevDisabled bool   `json:"prevDisabled"`
	NextDisabled bool   `json:"nextDisabled"`
}

// NewPagination builds the pager for page out of lastPage.
func NewPagination(page, lastPage int) Pagination {
	shown := lastPage
	if shown < 1 {
		shown = 1
	}
	return Pagination{
		Page:         page,
		LastPage:     lastPage,
		Label:        fmt.Sprintf("page %d of %d", page, shown),
		PrevDisabled: page <= 1,
		NextDisabled: lastPage == 0 || page >= lastPage,
	}
}

// Snippet shortens s to at most n runes for one-line display.
func Snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
