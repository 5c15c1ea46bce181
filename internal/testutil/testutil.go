package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"bookcatalog/internal/book"
)

// TestBook is a fully populated book for testing
var TestBook = book.Book{
	ID:             42,
	Title:          "Test Book Title",
	Author:         "Test Author",
	Publisher:      "Test Publisher",
	ISBN:           "978-0-123456-78-9",
	Classification: "Fiction",
	Category:       "Testing",
	PageCount:      123,
	Price:          9.99,
}

// MemoryRepo is an in-memory book.Repository that orders rows the way the
// Postgres repository does (title, then id, in the requested direction).
type MemoryRepo struct {
	mu     sync.Mutex
	books  []book.Book
	nextID int64
	Err    error
}

// NewMemoryRepo returns a repository holding copies of books with fresh IDs.
func NewMemoryRepo(books ...book.Book) *MemoryRepo {
	r := &MemoryRepo{nextID: 1}
	for _, b := range books {
		b := b
		_ = r.Insert(context.Background(), &b)
	}
	return r
}

// SeededRepo returns a MemoryRepo holding the built-in twelve books.
func SeededRepo() *MemoryRepo {
	return NewMemoryRepo(book.SeedBooks()...)
}

func (r *MemoryRepo) Insert(_ context.Context, b *book.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	b.ID = r.nextID
	r.nextID++
	r.books = append(r.books, *b)
	return nil
}

func (r *MemoryRepo) List(_ context.Context, q book.Query) ([]book.Book, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}

	sorted := append([]book.Book(nil), r.books...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if q.SortBy != book.SortByTitle {
			return a.ID < b.ID
		}
		if q.SortOrder == book.SortDesc {
			a, b = b, a
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})

	total := len(sorted)
	offset := q.Offset()
	if offset >= total {
		return []book.Book{}, total, nil
	}
	end := total
	if q.Limit() < total-offset {
		end = offset + q.Limit()
	}
	return sorted[offset:end], total, nil
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]interface{}
}

// RecordHTTPResponse records the HTTP response. A body that is not a JSON
// object fails the test.
func RecordHTTPResponse(t testing.TB, w *httptest.ResponseRecorder) RecordResponse {
	t.Helper()
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, err := io.ReadAll(result.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}

	var bodyMap map[string]interface{}
	if len(bodyBytes) > 0 {
		if err := json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(&bodyMap); err != nil {
			t.Fatalf("decode response body %q: %v", bodyBytes, err)
		}
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}
