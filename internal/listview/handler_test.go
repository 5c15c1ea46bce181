package listview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcatalog/internal/book"
	"bookcatalog/internal/platform/catalogapi"
)

func newTestMux(t *testing.T) (*Handler, *http.ServeMux) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := NewHandler(ctx, seededFetcher(), discardLogger(), time.Minute, 0)
	mux := http.NewServeMux()
	h.Register(mux)
	return h, mux
}

func visitorCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == VisitorCookie {
			return c
		}
	}
	t.Fatal("no visitor cookie set")
	return nil
}

func post(mux *http.ServeMux, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/action", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func get(mux *http.ServeMux, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_FirstVisit(t *testing.T) {
	h, mux := newTestMux(t)

	rec := get(mux, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	visitorCookie(t, rec)
	assert.Equal(t, 0, h.visitorCount(), "viewing alone must not store a controller")

	body := rec.Body.String()
	assert.Contains(t, body, "American Ulysses")
	assert.Contains(t, body, "Moby Dick")
	assert.Contains(t, body, "$13.60")
	assert.NotContains(t, body, "Sycamore Row")
	assert.Equal(t, 5, strings.Count(body, `class="card `))
	assert.Contains(t, body, `value="prev" disabled`)
	assert.Contains(t, body, `name="page" value="3"`)
	assert.NotContains(t, body, `name="page" value="4"`)
}

func TestHandler_Actions(t *testing.T) {
	_, mux := newTestMux(t)
	cookie := visitorCookie(t, get(mux, nil))

	rec := post(mux, cookie, url.Values{"action": {"sort"}, "order": {"desc"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	body := get(mux, cookie).Body.String()
	assert.Contains(t, body, "Unbroken")
	assert.Contains(t, body, `value="desc" disabled`)

	post(mux, cookie, url.Values{"page": {"3"}})
	body = get(mux, cookie).Body.String()
	assert.Contains(t, body, "Deep Work")
	assert.Contains(t, body, "American Ulysses")
	assert.Contains(t, body, `value="next" disabled`)

	post(mux, cookie, url.Values{"action": {"size"}, "size": {"20"}})
	body = get(mux, cookie).Body.String()
	assert.Equal(t, 12, strings.Count(body, `class="card `))
	assert.Contains(t, body, `<option value="20" selected>`)
}

func TestHandler_VisitorsAreIsolated(t *testing.T) {
	h, mux := newTestMux(t)
	alice := visitorCookie(t, get(mux, nil))
	bob := visitorCookie(t, get(mux, nil))
	require.NotEqual(t, alice.Value, bob.Value)

	post(mux, alice, url.Values{"action": {"sort"}, "order": {"desc"}})

	assert.Contains(t, get(mux, bob).Body.String(), `value="asc" disabled`)
	assert.Contains(t, get(mux, alice).Body.String(), `value="desc" disabled`)
	assert.Equal(t, 1, h.visitorCount())
}

func TestHandler_Evict(t *testing.T) {
	h, mux := newTestMux(t)
	cookie := visitorCookie(t, get(mux, nil))
	post(mux, cookie, url.Values{"page": {"2"}})
	require.Equal(t, 1, h.visitorCount())

	h.evict(time.Now().Add(30 * time.Second))
	assert.Equal(t, 1, h.visitorCount())

	h.evict(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, h.visitorCount())
}

type countingFetcher struct {
	serviceFetcher
	calls atomic.Int32
}

func (f *countingFetcher) ListBooks(ctx context.Context, p catalogapi.Params) (book.Page, error) {
	f.calls.Add(1)
	return f.serviceFetcher.ListBooks(ctx, p)
}

func TestHandler_CookielessViewsAreNotStored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &countingFetcher{serviceFetcher: seededFetcher()}
	h := NewHandler(ctx, f, discardLogger(), time.Minute, 0)
	mux := http.NewServeMux()
	h.Register(mux)

	const n = 2000
	for i := 0; i < n; i++ {
		require.Equal(t, http.StatusOK, get(mux, nil).Code)
	}
	assert.Equal(t, 0, h.visitorCount())
	assert.Equal(t, int32(n), f.calls.Load())

	rec := get(mux, &http.Cookie{Name: VisitorCookie, Value: uuid.New().String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, h.visitorCount(), "unknown ids are not stored by a view")

	post(mux, &http.Cookie{Name: VisitorCookie, Value: uuid.New().String()}, url.Values{"action": {"delete"}})
	assert.Equal(t, 0, h.visitorCount(), "unrecognized actions are not stored")
}

func TestHandler_VisitorCap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHandler(ctx, seededFetcher(), discardLogger(), time.Minute, 3)
	mux := http.NewServeMux()
	h.Register(mux)

	var last *http.Cookie
	for i := 0; i < 10; i++ {
		last = &http.Cookie{Name: VisitorCookie, Value: uuid.New().String()}
		require.Equal(t, http.StatusSeeOther, post(mux, last, url.Values{"page": {"2"}}).Code)
		assert.LessOrEqual(t, h.visitorCount(), 3)
	}
	assert.Equal(t, 3, h.visitorCount())

	_, ok := h.lookup(last.Value)
	assert.True(t, ok, "most recent visitor must survive eviction")
	assert.Contains(t, get(mux, last).Body.String(), `active" name="page" value="2"`)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want Action
		ok   bool
	}{
		{"prev", url.Values{"action": {"prev"}}, PrevPage{}, true},
		{"next", url.Values{"action": {"next"}}, NextPage{}, true},
		{"sort", url.Values{"action": {"sort"}, "order": {"desc"}}, SetSortOrder{Order: book.SortDesc}, true},
		{"size", url.Values{"action": {"size"}, "size": {"10"}}, SetPageSize{N: 10}, true},
		{"bad size", url.Values{"action": {"size"}, "size": {"ten"}}, nil, false},
		{"page", url.Values{"page": {"2"}}, GoToPage{N: 2}, true},
		{"bad page", url.Values{"page": {"0"}}, nil, false},
		{"unknown", url.Values{"action": {"delete"}}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAction(tt.form)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
