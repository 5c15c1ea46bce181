package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	// List returns one page of books and the total number of books in storage.
	List(ctx context.Context, q Query) ([]Book, int, error)
	// Insert persists a book and sets its generated ID.
	Insert(ctx context.Context, b *Book) error
}
