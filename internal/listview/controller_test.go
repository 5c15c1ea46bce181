package listview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookcatalog/internal/book"
	"bookcatalog/internal/platform/catalogapi"
	"bookcatalog/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serviceFetcher answers from a book.Service, the way the API would.
type serviceFetcher struct {
	svc *book.Service
}

func (f serviceFetcher) ListBooks(ctx context.Context, p catalogapi.Params) (book.Page, error) {
	return f.svc.ListBooks(ctx, book.Query{
		PageSize:  p.PageSize,
		PageNum:   p.PageNum,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
	})
}

func seededFetcher() serviceFetcher {
	return serviceFetcher{svc: book.NewService(testutil.SeededRepo())}
}

// gatedFetcher returns a single book identifying the requested page. Calls
// for a gated page block until the gate is closed.
type gatedFetcher struct {
	mu      sync.Mutex
	gates   map[int]chan struct{}
	started chan int
	err     error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: map[int]chan struct{}{}, started: make(chan int, 16)}
}

func (f *gatedFetcher) gate(page int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[page] = g
	return g
}

func (f *gatedFetcher) ListBooks(ctx context.Context, p catalogapi.Params) (book.Page, error) {
	f.started <- p.PageNum
	f.mu.Lock()
	g := f.gates[p.PageNum]
	err := f.err
	f.mu.Unlock()
	if g != nil {
		<-g
	}
	if err != nil {
		return book.Page{}, err
	}
	return book.Page{
		Books:      []book.Book{{ID: int64(p.PageNum), Title: fmt.Sprintf("page %d", p.PageNum)}},
		TotalBooks: 100,
	}, nil
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) ListBooks(ctx context.Context, p catalogapi.Params) (book.Page, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(book.Page), args.Error(1)
}

func TestController_FetchesTitleSortedPages(t *testing.T) {
	f := &mockFetcher{}
	f.On("ListBooks", mock.Anything, catalogapi.Params{PageSize: 5, PageNum: 1, SortBy: "title", SortOrder: book.SortAsc}).
		Return(book.Page{Books: []book.Book{}, TotalBooks: 40}, nil).Once()
	f.On("ListBooks", mock.Anything, catalogapi.Params{PageSize: 10, PageNum: 1, SortBy: "title", SortOrder: book.SortAsc}).
		Return(book.Page{Books: []book.Book{}, TotalBooks: 40}, nil).Once()
	f.On("ListBooks", mock.Anything, catalogapi.Params{PageSize: 10, PageNum: 2, SortBy: "title", SortOrder: book.SortAsc}).
		Return(book.Page{Books: []book.Book{}, TotalBooks: 40}, nil).Once()
	f.On("ListBooks", mock.Anything, catalogapi.Params{PageSize: 10, PageNum: 2, SortBy: "title", SortOrder: book.SortDesc}).
		Return(book.Page{Books: []book.Book{}, TotalBooks: 40}, nil).Once()

	ctx := context.Background()
	c := NewController(f, discardLogger())
	c.Load(ctx)
	c.Dispatch(ctx, SetPageSize{N: 10})
	c.Dispatch(ctx, NextPage{})
	snap := c.Dispatch(ctx, SetSortOrder{Order: "DESC"})

	f.AssertExpectations(t)
	assert.Equal(t, ViewState{PageSize: 10, PageNum: 2, SortOrder: book.SortDesc}, snap.State)
	assert.Equal(t, []int{1, 2, 3, 4}, snap.Pager().Pages)
}

func TestController_Load(t *testing.T) {
	c := NewController(seededFetcher(), discardLogger())

	assert.False(t, c.Snapshot().Loaded)

	snap := c.Load(context.Background())
	require.True(t, snap.Loaded)
	assert.Equal(t, Initial(), snap.State)
	assert.Equal(t, 12, snap.TotalBooks)
	require.Len(t, snap.Books, 5)
	assert.Equal(t, "American Ulysses", snap.Books[0].Title)
}

func TestController_Dispatch(t *testing.T) {
	ctx := context.Background()
	c := NewController(seededFetcher(), discardLogger())
	c.Load(ctx)

	snap := c.Dispatch(ctx, SetSortOrder{Order: book.SortDesc})
	assert.Equal(t, "Unbroken", snap.Books[0].Title)

	snap = c.Dispatch(ctx, GoToPage{N: 3})
	assert.Equal(t, 3, snap.State.PageNum)
	require.Len(t, snap.Books, 2)
	assert.Equal(t, "American Ulysses", snap.Books[1].Title)

	snap = c.Dispatch(ctx, SetPageSize{N: 20})
	assert.Equal(t, 1, snap.State.PageNum)
	assert.Len(t, snap.Books, 12)
	assert.Empty(t, snap.Pager().Pages[1:])
}

func TestController_DisabledButtonsDoNotFetch(t *testing.T) {
	ctx := context.Background()
	f := newGatedFetcher()
	c := NewController(f, discardLogger())
	c.Load(ctx)
	<-f.started

	snap := c.Dispatch(ctx, PrevPage{})
	assert.Equal(t, 1, snap.State.PageNum)
	assert.Len(t, f.started, 0)

	snap = c.Dispatch(ctx, GoToPage{N: 1})
	assert.Equal(t, 1, snap.State.PageNum)
	assert.Len(t, f.started, 0, "unchanged state must not refetch")

	c.Dispatch(ctx, GoToPage{N: 20})
	<-f.started
	snap = c.Dispatch(ctx, NextPage{})
	assert.Equal(t, 20, snap.State.PageNum)
	assert.Len(t, f.started, 0)
}

func TestController_DiscardsStaleResponse(t *testing.T) {
	ctx := context.Background()
	f := newGatedFetcher()
	c := NewController(f, discardLogger())
	c.Load(ctx)
	<-f.started

	slow := f.gate(2)
	staleDone := make(chan Snapshot, 1)
	go func() {
		staleDone <- c.Dispatch(ctx, GoToPage{N: 2})
	}()
	require.Equal(t, 2, <-f.started)

	snap := c.Dispatch(ctx, GoToPage{N: 3})
	<-f.started
	require.Len(t, snap.Books, 1)
	assert.Equal(t, "page 3", snap.Books[0].Title)

	close(slow)
	stale := <-staleDone
	assert.Equal(t, "page 3", stale.Books[0].Title, "late page 2 response must be dropped")

	final := c.Snapshot()
	assert.Equal(t, 3, final.State.PageNum)
	assert.Equal(t, "page 3", final.Books[0].Title)
}

func TestController_FailureKeepsLastKnownBooks(t *testing.T) {
	ctx := context.Background()
	f := newGatedFetcher()
	c := NewController(f, discardLogger())
	c.Load(ctx)
	<-f.started

	f.mu.Lock()
	f.err = fmt.Errorf("%w: connection refused", catalogapi.ErrNetworkFailure)
	f.mu.Unlock()

	snap := c.Dispatch(ctx, GoToPage{N: 4})
	<-f.started
	assert.Equal(t, 4, snap.State.PageNum)
	require.Len(t, snap.Books, 1)
	assert.Equal(t, "page 1", snap.Books[0].Title)
	assert.Equal(t, 100, snap.TotalBooks)
}

func TestController_FailureBeforeFirstLoad(t *testing.T) {
	f := newGatedFetcher()
	f.err = errors.New("boom")
	c := NewController(f, discardLogger())

	snap := c.Load(context.Background())
	assert.False(t, snap.Loaded)
	assert.NotNil(t, snap.Books)
	assert.Empty(t, snap.Books)
}
