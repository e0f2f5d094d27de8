package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Query holds parsed pagination parameters. Page is 1-based.
type Query struct {
	Page int
	Size int
}

// FromContext extracts and validates pagination params from the request.
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.DefaultQuery("page", "1"), DefaultPage)
	size := parseIntOr(c.DefaultQuery("size", "10"), DefaultSize)

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	return Query{Page: page, Size: size}
}

// BackendPage returns the 0-based page index the backend expects.
func (q Query) BackendPage() int { return q.Page - 1 }

// FromPage builds response metadata from a backend page.
func FromPage[T any](p models.Page[T]) response.Pagination {
	current := p.Number + 1
	return response.Pagination{
		Total:       p.TotalElements,
		CurrentPage: current,
		TotalPage:   p.TotalPages,
		Size:        p.Size,
		HasNextPage: current < p.TotalPages,
	}
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
