package book

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
	tracer  trace.Tracer
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{
		db:      db,
		timeout: timeout,
		tracer:  otel.Tracer("bookcatalog/book"),
	}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// orderBy returns the ORDER BY clause for q. The id tie-breaker runs in the
// same direction as the title so asc and desc pages are exact mirrors.
func orderBy(q Query) string {
	if q.SortBy != SortByTitle {
		return "id ASC"
	}
	if q.SortOrder == SortDesc {
		return "title DESC, id DESC"
	}
	return "title ASC, id ASC"
}

// List reads the total count and the requested page inside one read-only
// snapshot so the two numbers agree.
func (r *PostgresRepo) List(ctx context.Context, q Query) (books []Book, total int, err error) {
	ctx, span := r.tracer.Start(ctx, "book.list",
		trace.WithAttributes(
			attribute.Int("page.size", q.PageSize),
			attribute.Int("page.num", q.PageNum),
			attribute.String("sort.by", q.SortBy),
			attribute.String("sort.order", string(q.SortOrder)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list books failed")
		}
		span.End()
	}()

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(timeoutCtx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, 0, storageErr("begin list", err)
	}
	defer tx.Rollback(timeoutCtx)

	if err := tx.QueryRow(timeoutCtx, "SELECT COUNT(*) FROM books").Scan(&total); err != nil {
		return nil, 0, storageErr("count books", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id, title, author, publisher, isbn, classification, category, page_count, price
		FROM books
		ORDER BY %s
		LIMIT $1 OFFSET $2`, orderBy(q))

	rows, err := tx.Query(timeoutCtx, dataSQL, q.Limit(), q.Offset())
	if err != nil {
		return nil, 0, storageErr("select books", err)
	}
	defer rows.Close()

	books = []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(
			&b.ID, &b.Title, &b.Author, &b.Publisher, &b.ISBN,
			&b.Classification, &b.Category, &b.PageCount, &b.Price,
		); err != nil {
			return nil, 0, storageErr("scan book", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr("read books", err)
	}

	if err := tx.Commit(timeoutCtx); err != nil {
		return nil, 0, storageErr("commit list", err)
	}

	span.SetAttributes(
		attribute.Int("result.count", len(books)),
		attribute.Int("result.total", total),
	)
	return books, total, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, b *Book) error {
	const sql = `
		INSERT INTO books (title, author, publisher, isbn, classification, category, page_count, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	ctx, span := r.tracer.Start(ctx, "book.insert", trace.WithAttributes(attribute.String("book.isbn", b.ISBN)))
	defer span.End()

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, sql,
		b.Title, b.Author, b.Publisher, b.ISBN, b.Classification, b.Category, b.PageCount, b.Price,
	).Scan(&b.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert book failed")
		return storageErr("insert book", err)
	}
	return nil
}

// CopyBooks bulk loads books with COPY. IDs are generated by the table and
// not written back.
func (r *PostgresRepo) CopyBooks(ctx context.Context, books []Book) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "book.copy", trace.WithAttributes(attribute.Int("book.count", len(books))))
	defer span.End()

	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"books"},
		[]string{"title", "author", "publisher", "isbn", "classification", "category", "page_count", "price"},
		pgx.CopyFromSlice(len(books), func(i int) ([]any, error) {
			b := books[i]
			return []any{b.Title, b.Author, b.Publisher, b.ISBN, b.Classification, b.Category, b.PageCount, b.Price}, nil
		}),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "copy books failed")
		return n, storageErr("copy books", err)
	}
	return n, nil
}

// Reset removes every book and restarts id generation.
func (r *PostgresRepo) Reset(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Exec(timeoutCtx, "TRUNCATE TABLE books RESTART IDENTITY"); err != nil {
		return storageErr("reset books", err)
	}
	return nil
}
