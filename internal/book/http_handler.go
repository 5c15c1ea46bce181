package book

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"bookcatalog/internal/httpx"
)

type HTTPHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewHTTPHandler(service *Service, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

// Register mounts the book routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /Book/AllBooks", h.AllBooks)
}

// ParseQuery reads the paging and sort parameters. Missing or unparsable
// numbers become zero and are clamped later by Query.Normalize.
func ParseQuery(values url.Values) Query {
	q := Query{
		SortBy:    values.Get("sortBy"),
		SortOrder: SortOrder(values.Get("sortOrder")),
	}
	q.PageSize, _ = strconv.Atoi(values.Get("pageSize"))
	q.PageNum, _ = strconv.Atoi(values.Get("pageNum"))
	return q
}

// AllBooks handles GET /Book/AllBooks
// @Summary List books
// @Description Get one page of books sorted by title, plus the total book count
// @Tags books
// @Produce json
// @Param pageSize query int false "Books per page" default(5)
// @Param pageNum query int false "1-indexed page number" default(1)
// @Param sortBy query string false "Sort field (only title)"
// @Param sortOrder query string false "asc or desc" default(asc)
// @Success 200 {object} book.Page
// @Failure 500 {object} httpx.ErrorResponse
// @Router /Book/AllBooks [get]
func (h *HTTPHandler) AllBooks(w http.ResponseWriter, r *http.Request) {
	q := ParseQuery(r.URL.Query())

	page, err := h.service.ListBooks(r.Context(), q)
	if err != nil {
		h.logger.Error("list books failed",
			slog.String("request_id", httpx.RequestIDFrom(r)),
			slog.Any("error", err),
		)
		if errors.Is(err, ErrStorageUnavailable) {
			httpx.JSONError(w, r, http.StatusInternalServerError, "STORAGE_UNAVAILABLE", "Book storage is unavailable", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, page)
}
