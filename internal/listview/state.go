// Package listview holds the paginated book list shown to a visitor: its
// state, the actions that change it, and the loader that keeps it in sync
// with the catalog API.
package listview

import (
	"bookcatalog/internal/book"
	"bookcatalog/internal/platform/catalogapi"
)

// PageSizeOptions are the choices offered in the results-per-page select.
var PageSizeOptions = []int{5, 10, 20}

// ViewState is what the visitor has selected. It is a value: actions return
// a new state and never modify the old one.
type ViewState struct {
	PageSize  int
	PageNum   int
	SortOrder book.SortOrder
}

// Initial is the state a new visitor starts with.
func Initial() ViewState {
	return ViewState{
		PageSize:  book.DefaultPageSize,
		PageNum:   book.DefaultPageNum,
		SortOrder: book.SortAsc,
	}
}

// Action is a user intent applied by Reduce.
type Action interface {
	apply(s ViewState) ViewState
}

type GoToPage struct{ N int }

type PrevPage struct{}

type NextPage struct{}

// SetPageSize changes the page size and returns to the first page.
type SetPageSize struct{ N int }

type SetSortOrder struct{ Order book.SortOrder }

func (a GoToPage) apply(s ViewState) ViewState {
	if a.N >= 1 {
		s.PageNum = a.N
	}
	return s
}

func (PrevPage) apply(s ViewState) ViewState {
	if s.PageNum > 1 {
		s.PageNum--
	}
	return s
}

func (NextPage) apply(s ViewState) ViewState {
	s.PageNum++
	return s
}

func (a SetPageSize) apply(s ViewState) ViewState {
	if a.N >= 1 {
		s.PageSize = a.N
		s.PageNum = 1
	}
	return s
}

func (a SetSortOrder) apply(s ViewState) ViewState {
	s.SortOrder = book.ParseSortOrder(string(a.Order))
	return s
}

// Reduce returns the state that results from applying a to s.
func Reduce(s ViewState, a Action) ViewState {
	if a == nil {
		return s
	}
	return a.apply(s)
}

// FetchParams is the API query for s. The list is always sorted by title.
func FetchParams(s ViewState) catalogapi.Params {
	return catalogapi.Params{
		PageSize:  s.PageSize,
		PageNum:   s.PageNum,
		SortBy:    book.SortByTitle,
		SortOrder: s.SortOrder,
	}
}

// TotalPages is ceil(total/pageSize).
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total-1)/pageSize + 1
}

// Pager describes the pagination buttons.
type Pager struct {
	Pages        []int
	Current      int
	PrevDisabled bool
	NextDisabled bool
}

func NewPager(s ViewState, total int) Pager {
	n := TotalPages(total, s.PageSize)
	pages := make([]int, n)
	for i := range pages {
		pages[i] = i + 1
	}
	return Pager{
		Pages:        pages,
		Current:      s.PageNum,
		PrevDisabled: s.PageNum <= 1,
		NextDisabled: s.PageNum >= n,
	}
}

// allows reports whether the pager has a as an enabled button.
func (p Pager) allows(a Action) bool {
	switch a.(type) {
	case PrevPage:
		return !p.PrevDisabled
	case NextPage:
		return !p.NextDisabled
	}
	return true
}
