// Package catalogapi is a client for the book catalog's list endpoint.
package catalogapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"bookcatalog/internal/book"
)

// ErrNetworkFailure is returned when the request fails in transit or the API
// answers with a non-success status. The client never retries.
var ErrNetworkFailure = errors.New("network failure")

// errCallerGone marks failures caused by the caller's own context. They say
// nothing about the API's health and do not count against the breaker.
var errCallerGone = errors.New("caller context done")

type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

type Options struct {
	Timeout time.Duration
	// RPS caps outgoing requests per second; zero disables the limiter.
	RPS float64
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenFor is how long the breaker stays open before probing again.
	OpenFor time.Duration
}

func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}

	maxFailures := opts.MaxFailures
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(limit, 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "catalog-api",
			Timeout: opts.OpenFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errCallerGone)
			},
		}),
	}
}

// Params mirrors the query string of GET /Book/AllBooks.
type Params struct {
	PageSize  int
	PageNum   int
	SortBy    string
	SortOrder book.SortOrder
}

// Encode renders p as a query string in the contract's parameter order.
func (p Params) Encode() string {
	return fmt.Sprintf("pageSize=%s&pageNum=%s&sortBy=%s&sortOrder=%s",
		strconv.Itoa(p.PageSize),
		strconv.Itoa(p.PageNum),
		url.QueryEscape(p.SortBy),
		url.QueryEscape(string(p.SortOrder)),
	)
}

// ListBooks fetches one page of books.
func (c *Client) ListBooks(ctx context.Context, p Params) (book.Page, error) {
	u := fmt.Sprintf("%s/Book/AllBooks?%s", c.baseURL, p.Encode())

	if err := c.limiter.Wait(ctx); err != nil {
		return book.Page{}, fmt.Errorf("%w: %w: %v", ErrNetworkFailure, errCallerGone, err)
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		var page book.Page
		if err := c.get(ctx, u, &page); err != nil {
			return nil, err
		}
		return page, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return book.Page{}, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
		}
		return book.Page{}, err
	}

	page := res.(book.Page)
	if page.Books == nil {
		page.Books = []book.Book{}
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportErr(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: unexpected status code: %d", ErrNetworkFailure, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		if ctx.Err() != nil {
			return transportErr(ctx, err)
		}
		return fmt.Errorf("%w: decode response: %v", ErrNetworkFailure, err)
	}
	return nil
}

func transportErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w: %v", ErrNetworkFailure, errCallerGone, err)
	}
	return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
}
