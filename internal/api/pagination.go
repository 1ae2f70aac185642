package api

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/foodgram/backend/config"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/types"
)

// Paginator reads page and limit query parameters and builds page envelopes
type Paginator struct {
	cfg config.PaginationConfig
}

func NewPaginator(cfg config.PaginationConfig) Paginator {
	return Paginator{cfg: cfg}
}

// Parse returns the requested page. A missing limit falls back to the
// default size and oversized limits are capped.
func (p Paginator) Parse(c *gin.Context) (service.Pagination, error) {
	page := service.Pagination{Page: 1, Limit: p.cfg.DefaultPageSize}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, service.NewValidationError("page", "A valid positive integer is required.")
		}
		page.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, service.NewValidationError("limit", "A valid positive integer is required.")
		}
		page.Limit = n
	}
	if page.Limit > p.cfg.MaxPageSize {
		page.Limit = p.cfg.MaxPageSize
	}
	return page, nil
}

// newPage wraps results with the total count and neighbour page links
func newPage[T any](c *gin.Context, page service.Pagination, total int64, results []T) types.Page[T] {
	if results == nil {
		results = []T{}
	}
	out := types.Page[T]{Count: total, Results: results}
	if int64(page.Offset()+page.Limit) < total {
		next := pageURL(c, page.Page+1)
		out.Next = &next
	}
	if page.Page > 1 {
		prev := pageURL(c, page.Page-1)
		out.Previous = &prev
	}
	return out
}

// pageURL is the absolute URL of the current request pointing at page n.
// The first page carries no page parameter.
func pageURL(c *gin.Context, n int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	query := c.Request.URL.Query()
	if n <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(n))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	return u.String()
}
