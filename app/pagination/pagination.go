// Package pagination slices ordered collections into numbered pages.
package pagination

import "strconv"

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 10

// Page is one slice of an ordered collection plus the metadata templates need
// to render navigation links.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Number     int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	Count      int  `json:"count"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
	NextNumber int  `json:"next_page,omitempty"`
	PrevNumber int  `json:"prev_page,omitempty"`
}

// ParsePage reads a page number from a query value. Anything that is not an
// integer yields page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return n
}

// Paginate returns page number of items, keeping their order. Out of range
// numbers clamp to the first or last page, and an empty collection is a single
// empty page.
func Paginate[T any](items []T, pageSize, number int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	count := len(items)
	totalPages := (count + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > totalPages {
		number = totalPages
	}

	start := (number - 1) * pageSize
	end := min(start+pageSize, count)

	page := Page[T]{
		Items:      make([]T, 0, end-start),
		Number:     number,
		TotalPages: totalPages,
		Count:      count,
		HasNext:    number < totalPages,
		HasPrev:    number > 1,
	}
	page.Items = append(page.Items, items[start:end]...)
	if page.HasNext {
		page.NextNumber = number + 1
	}
	if page.HasPrev {
		page.PrevNumber = number - 1
	}
	return page
}

// WithItems returns a page with the same metadata as page carrying items
// instead, typically page.Items transformed one to one.
func WithItems[T, U any](page Page[T], items []U) Page[U] {
	return Page[U]{
		Items:      items,
		Number:     page.Number,
		TotalPages: page.TotalPages,
		Count:      page.Count,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
		NextNumber: page.NextNumber,
		PrevNumber: page.PrevNumber,
	}
}
