package book

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrStorageUnavailable is returned when the backing store cannot be queried.
var ErrStorageUnavailable = errors.New("storage unavailable")

// StorageError records the repository operation that failed.
// It matches ErrStorageUnavailable under errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageUnavailable, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Book represents a catalog entry.
type Book struct {
	ID             int64   `json:"bookID"`
	Title          string  `json:"title" validate:"notblank"`
	Author         string  `json:"author" validate:"notblank"`
	Publisher      string  `json:"publisher" validate:"notblank"`
	ISBN           string  `json:"isbn" validate:"notblank"`
	Classification string  `json:"classification" validate:"notblank"`
	Category       string  `json:"category" validate:"notblank"`
	PageCount      int     `json:"pageCount" validate:"gt=0"`
	Price          float64 `json:"price" validate:"gte=0"`
}

// SortOrder is the direction applied to the title comparator.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPageSize = 5
	DefaultPageNum  = 1

	// SortByTitle is the only recognized sort field.
	SortByTitle = "title"
)

// Query defines paging and ordering for listing books.
type Query struct {
	PageSize  int
	PageNum   int
	SortBy    string
	SortOrder SortOrder
}

// DefaultQuery is the query issued when the caller supplies no parameters.
func DefaultQuery() Query {
	return Query{
		PageSize:  DefaultPageSize,
		PageNum:   DefaultPageNum,
		SortBy:    SortByTitle,
		SortOrder: SortAsc,
	}
}

// Normalize clamps paging values and canonicalizes the sort fields.
// Non-positive page sizes and page numbers fall back to the defaults;
// unknown sort fields are cleared so the store's default order applies.
func (q Query) Normalize() Query {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageNum <= 0 {
		q.PageNum = DefaultPageNum
	}

	if strings.EqualFold(strings.TrimSpace(q.SortBy), SortByTitle) {
		q.SortBy = SortByTitle
	} else {
		q.SortBy = ""
	}

	q.SortOrder = ParseSortOrder(string(q.SortOrder))
	return q
}

// ParseSortOrder maps "desc" (any case) to SortDesc and everything else to SortAsc.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// Limit is the number of rows a page holds.
func (q Query) Limit() int { return q.PageSize }

// Offset is the number of rows skipped before the page. It saturates at
// math.MaxInt rather than overflowing for absurd page numbers.
func (q Query) Offset() int {
	if q.PageSize <= 0 || q.PageNum <= 1 {
		return 0
	}
	skipped := q.PageNum - 1
	if skipped > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return skipped * q.PageSize
}

// Page is one slice of the catalog plus the full record count.
type Page struct {
	Books      []Book `json:"books"`
	TotalBooks int    `json:"totalBooks"`
}
