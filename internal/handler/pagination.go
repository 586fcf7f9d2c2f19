package handler

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// Paginator implements page-number pagination: ?page=N&limit=M, with M
// defaulting to DefaultSize and capped at MaxSize.
type Paginator struct {
	DefaultSize int
	MaxSize     int
}

// PageRequest is a parsed ?page= and ?limit= pair.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Options() repository.ListOptions {
	return repository.ListOptions{Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
}

// Parse reads page and limit from the query string. Missing or invalid
// values fall back to the first page and the default size; oversized pages
// are clamped.
func (p Paginator) Parse(r *http.Request) PageRequest {
	q := r.URL.Query()
	req := PageRequest{Page: 1, Limit: p.DefaultSize}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		req.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		req.Limit = min(n, p.MaxSize)
	}
	// Keep page*limit within int32 so the offset and the next-page check
	// cannot overflow. A page that far out is empty anyway.
	req.Page = min(req.Page, math.MaxInt32/max(req.Limit, 1))
	return req
}

// newPage wraps one page of results with absolute next and previous links.
func newPage[T any](r *http.Request, req PageRequest, results []T, total int) model.Page[T] {
	if results == nil {
		results = []T{}
	}
	page := model.Page[T]{Count: total, Results: results}
	if req.Page*req.Limit < total {
		page.Next = pageURL(r, req.Page+1)
	}
	if req.Page > 1 {
		page.Previous = pageURL(r, req.Page-1)
	}
	return page
}

func pageURL(r *http.Request, page int) *string {
	u := url.URL{
		Scheme: "http",
		Host:   r.Host,
		Path:   r.URL.Path,
	}
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	q := r.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
