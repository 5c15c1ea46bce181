package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"bookcatalog/internal/book"
	"bookcatalog/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	var (
		reset    = flag.Bool("reset", false, "Delete all books before seeding")
		generate = flag.Int("generate", 0, "Bulk load this many generated books instead of the seed catalog")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := run(logger, *reset, *generate); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, reset bool, generate int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", config.RedactDSN(cfg.DatabaseDSN), err)
	}
	defer pool.Close()

	repo := book.NewPostgresRepo(pool, cfg.DBTimeout)
	svc := book.NewService(repo)

	if reset {
		if err := repo.Reset(ctx); err != nil {
			return err
		}
		logger.Info("books table reset")
	}

	if generate > 0 {
		books := generateBooks(generate, rand.New(rand.NewSource(time.Now().UnixNano())))
		for i := range books {
			if err := book.Validate(&books[i]); err != nil {
				return fmt.Errorf("generated book %d: %w", i, err)
			}
		}
		logger.Info("inserting generated books", slog.Int("count", len(books)))
		n, err := repo.CopyBooks(ctx, books)
		if err != nil {
			return err
		}
		logger.Info("generated books inserted", slog.Int64("count", n))
		return nil
	}

	books, err := loadBooks(cfg.SeedFile)
	if err != nil {
		return err
	}
	for i := range books {
		if err := svc.Create(ctx, &books[i]); err != nil {
			return err
		}
	}

	page, err := svc.ListBooks(ctx, book.DefaultQuery())
	if err != nil {
		return err
	}
	logger.Info("seed complete", slog.Int("inserted", len(books)), slog.Int("total_books", page.TotalBooks))
	return nil
}

// loadBooks reads path, or returns the built-in catalog when path is empty.
func loadBooks(path string) ([]book.Book, error) {
	if path == "" {
		return book.SeedBooks(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return book.DecodeBooks(f)
}

var (
	classifications = []string{"Fiction", "Non-Fiction"}
	categories      = []string{"Classic", "Biography", "Historical", "Self-Help", "Business", "Thrillers", "Action"}
	publishers      = []string{"Penguin", "HarperCollins", "Random House", "Simon & Schuster", "Scribner", "Portfolio"}
	words           = []string{"Algorithm", "Database", "Network", "Security", "Cloud", "River", "Harbor", "Winter", "Empire", "Garden"}
)

func generateBooks(n int, rng *rand.Rand) []book.Book {
	books := make([]book.Book, n)
	for i := range books {
		books[i] = book.Book{
			Title:          fmt.Sprintf("%s %s %d", words[rng.Intn(len(words))], words[rng.Intn(len(words))], i+1),
			Author:         fmt.Sprintf("Author %d", rng.Intn(500)+1),
			Publisher:      publishers[rng.Intn(len(publishers))],
			ISBN:           fmt.Sprintf("978-%010d", i+1),
			Classification: classifications[rng.Intn(len(classifications))],
			Category:       categories[rng.Intn(len(categories))],
			PageCount:      100 + rng.Intn(800),
			Price:          float64(500+rng.Intn(3000)) / 100,
		}
	}
	return books
}
