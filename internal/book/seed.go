package book

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
)

//go:embed seed_books.json
var seedBooks []byte

// SeedBooks returns the built-in twelve-book catalog.
func SeedBooks() []Book {
	books, err := DecodeBooks(bytes.NewReader(seedBooks))
	if err != nil {
		panic(fmt.Sprintf("embedded seed data: %v", err))
	}
	return books
}

// DecodeBooks reads a JSON array of books. IDs in the input are ignored.
func DecodeBooks(r io.Reader) ([]Book, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var books []Book
	if err := dec.Decode(&books); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	for i := range books {
		books[i].ID = 0
	}
	return books, nil
}
