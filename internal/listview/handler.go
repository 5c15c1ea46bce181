package listview

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookcatalog/internal/book"
	"bookcatalog/internal/httpx"
)

//go:embed templates/list.html
var templateFS embed.FS

var listTemplate = template.Must(template.New("list.html").
	Funcs(template.FuncMap{
		"price": func(p float64) string { return fmt.Sprintf("%.2f", p) },
	}).
	ParseFS(templateFS, "templates/list.html"))

// VisitorCookie names the cookie that ties a browser to its controller.
const VisitorCookie = "bookcatalog_visitor"

// DefaultMaxVisitors bounds the stored controllers when NewHandler is given
// no limit.
const DefaultMaxVisitors = 10000

type visitor struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Handler serves the book list page. A visitor's Controller is stored once
// they submit an action; until then each view is served from a fresh one.
// Stored controllers idle for longer than the TTL are dropped, and the least
// recently seen one makes room when maxVisitors is reached.
type Handler struct {
	fetcher     Fetcher
	logger      *slog.Logger
	ttl         time.Duration
	maxVisitors int

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewHandler starts a janitor goroutine that runs until ctx is done.
func NewHandler(ctx context.Context, fetcher Fetcher, logger *slog.Logger, ttl time.Duration, maxVisitors int) *Handler {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxVisitors <= 0 {
		maxVisitors = DefaultMaxVisitors
	}
	h := &Handler{
		fetcher:     fetcher,
		logger:      logger,
		ttl:         ttl,
		maxVisitors: maxVisitors,
		visitors:    make(map[string]*visitor),
	}
	go h.cleanupVisitors(ctx)
	return h
}

// Register mounts the list page routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Page)
	mux.HandleFunc("POST /action", h.Action)
}

func (h *Handler) cleanupVisitors(ctx context.Context) {
	ticker := time.NewTicker(h.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.evict(time.Now())
		}
	}
}

func (h *Handler) evict(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, v := range h.visitors {
		if now.Sub(v.lastSeen) > h.ttl {
			delete(h.visitors, id)
		}
	}
}

// visitorID returns the id from the request cookie, issuing a new id and
// cookie when the request carries none.
func visitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(VisitorCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) newController(id string) *Controller {
	return NewController(h.fetcher, h.logger.With(slog.String("visitor", id)))
}

// lookup returns the stored controller for id, if any.
func (h *Handler) lookup(id string) (*Controller, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.visitors[id]
	if !ok {
		return nil, false
	}
	v.lastSeen = time.Now()
	return v.ctrl, true
}

// store returns the controller for id, creating and storing it if needed.
func (h *Handler) store(id string) *Controller {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if v, ok := h.visitors[id]; ok {
		v.lastSeen = now
		return v.ctrl
	}
	if len(h.visitors) >= h.maxVisitors {
		h.evictOldestLocked()
	}
	v := &visitor{ctrl: h.newController(id), lastSeen: now}
	h.visitors[id] = v
	return v.ctrl
}

func (h *Handler) evictOldestLocked() {
	oldestID := ""
	var oldest time.Time
	for id, v := range h.visitors {
		if oldestID == "" || v.lastSeen.Before(oldest) {
			oldestID, oldest = id, v.lastSeen
		}
	}
	delete(h.visitors, oldestID)
}

func (h *Handler) visitorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.visitors)
}

// Page renders the visitor's current list, loading it on first view.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	id := visitorID(w, r)
	ctrl, ok := h.lookup(id)
	if !ok {
		ctrl = h.newController(id)
	}

	snap := ctrl.Snapshot()
	if !snap.Loaded {
		snap = ctrl.Load(r.Context())
	}
	h.render(w, r, snap)
}

// Action applies the submitted form as an Action and redirects back to the page.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	id := visitorID(w, r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if a, ok := ParseAction(r.PostForm); ok {
		h.store(id).Dispatch(r.Context(), a)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ParseAction maps a submitted form to an Action. A bare page number is a
// GoToPage.
func ParseAction(form url.Values) (Action, bool) {
	switch form.Get("action") {
	case "prev":
		return PrevPage{}, true
	case "next":
		return NextPage{}, true
	case "sort":
		return SetSortOrder{Order: book.SortOrder(form.Get("order"))}, true
	case "size":
		n, err := strconv.Atoi(form.Get("size"))
		if err != nil || n < 1 {
			return nil, false
		}
		return SetPageSize{N: n}, true
	case "":
		n, err := strconv.Atoi(form.Get("page"))
		if err != nil || n < 1 {
			return nil, false
		}
		return GoToPage{N: n}, true
	}
	return nil, false
}

type pageData struct {
	Books           []book.Book
	SortOrder       string
	PageSize        int
	PageSizeOptions []int
	Pager           Pager
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, snap Snapshot) {
	data := pageData{
		Books:           snap.Books,
		SortOrder:       string(snap.State.SortOrder),
		PageSize:        snap.State.PageSize,
		PageSizeOptions: PageSizeOptions,
		Pager:           snap.Pager(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := listTemplate.Execute(w, data); err != nil {
		h.logger.Error("render list page failed",
			slog.String("request_id", httpx.RequestIDFrom(r)),
			slog.Any("error", err),
		)
	}
}
