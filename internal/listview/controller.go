package listview

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"bookcatalog/internal/book"
	"bookcatalog/internal/platform/catalogapi"
)

// Fetcher loads one page of books. *catalogapi.Client satisfies it.
type Fetcher interface {
	ListBooks(ctx context.Context, p catalogapi.Params) (book.Page, error)
}

// Snapshot is a consistent copy of a controller's state and data.
type Snapshot struct {
	State      ViewState
	Books      []book.Book
	TotalBooks int
	Loaded     bool
}

func (s Snapshot) Pager() Pager {
	return NewPager(s.State, s.TotalBooks)
}

// Controller owns one visitor's list. Every state change triggers a fetch
// tagged with a token; only the response carrying the newest token is
// applied, so a slow response can never overwrite a newer one.
type Controller struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu     sync.Mutex
	state  ViewState
	books  []book.Book
	total  int
	loaded bool
	latest uint64
}

func NewController(fetcher Fetcher, logger *slog.Logger) *Controller {
	return &Controller{
		fetcher: fetcher,
		logger:  logger,
		state:   Initial(),
		books:   []book.Book{},
	}
}

// Snapshot returns the current state without fetching.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:      c.state,
		Books:      slices.Clone(c.books),
		TotalBooks: c.total,
		Loaded:     c.loaded,
	}
}

// Load fetches the current state's page.
func (c *Controller) Load(ctx context.Context) Snapshot {
	c.mu.Lock()
	state := c.state
	c.latest++
	token := c.latest
	c.mu.Unlock()

	return c.fetch(ctx, state, token)
}

// Dispatch applies a and fetches if the state changed. Prev and Next are
// ignored while the pager has them disabled.
func (c *Controller) Dispatch(ctx context.Context, a Action) Snapshot {
	c.mu.Lock()
	if c.loaded && !NewPager(c.state, c.total).allows(a) {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	next := Reduce(c.state, a)
	if next == c.state && c.loaded {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	c.state = next
	c.latest++
	token := c.latest
	c.mu.Unlock()

	return c.fetch(ctx, next, token)
}

func (c *Controller) fetch(ctx context.Context, state ViewState, token uint64) Snapshot {
	page, err := c.fetcher.ListBooks(ctx, FetchParams(state))

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.latest {
		c.logger.Debug("discarding stale book page",
			slog.Uint64("token", token),
			slog.Uint64("latest", c.latest),
		)
		return c.snapshotLocked()
	}
	if err != nil {
		c.logger.Error("fetch books failed",
			slog.Int("page_size", state.PageSize),
			slog.Int("page_num", state.PageNum),
			slog.String("sort_order", string(state.SortOrder)),
			slog.Any("error", err),
		)
		return c.snapshotLocked()
	}

	c.books = page.Books
	if c.books == nil {
		c.books = []book.Book{}
	}
	c.total = page.TotalBooks
	c.loaded = true
	return c.snapshotLocked()
}
