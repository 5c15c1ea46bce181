package book

import (
	"context"
	"fmt"
)

// Service provides the catalog's read path and the seeding write path.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListBooks returns the page selected by q together with the total book count.
// The query is normalized first, so callers may pass raw request values.
func (s *Service) ListBooks(ctx context.Context, q Query) (Page, error) {
	books, total, err := s.repo.List(ctx, q.Normalize())
	if err != nil {
		return Page{}, err
	}
	if books == nil {
		books = []Book{}
	}
	return Page{Books: books, TotalBooks: total}, nil
}

// Create validates b and stores it. Used by seeding; there is no public write endpoint.
func (s *Service) Create(ctx context.Context, b *Book) error {
	if err := Validate(b); err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, b); err != nil {
		return fmt.Errorf("insert book %q: %w", b.ISBN, err)
	}
	return nil
}
