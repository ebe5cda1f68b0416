package listing

// DefaultPageSize is the number of rows in one table page.
const DefaultPageSize = 10

// PageState is the viewport over the ordered collection.
type PageState struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
}

// NewPageState returns page 1 with the given size. Non-positive sizes fall
// back to DefaultPageSize.
func NewPageState(size int) PageState {
	if size <= 0 {
		size = DefaultPageSize
	}
	return PageState{CurrentPage: 1, PageSize: size}
}

// TotalPages is ceil(count/size), with one empty page for an empty
// collection.
func TotalPages(count, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// SetPage clamps n into [1, total] and returns the updated state.
func (p PageState) SetPage(n, total int) PageState {
	if total < 1 {
		total = 1
	}
	switch {
	case n < 1:
		n = 1
	case n > total:
		n = total
	}
	p.CurrentPage = n
	return p
}

// Reset moves back to the first page. Used after any mutation that changes
// the collection size.
func (p PageState) Reset() PageState {
	p.CurrentPage = 1
	return p
}

// GetPage returns the window [(page-1)*size, page*size) clipped to items.
// Pages past the end yield an empty, non-nil window. The window aliases
// items; callers that hand it out must copy it.
func GetPage[T any](items []T, p PageState) []T {
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := p.CurrentPage
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	return items[start:end]
}
