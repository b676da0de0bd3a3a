package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination is a page window over a listing.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads page and limit from the query. Limit is clamped to [1, 100].
func ParsePagination(c *fiber.Ctx) Pagination {
	return NewPagination(atoiOr(c.Query("page"), 1), atoiOr(c.Query("limit"), defaultPageSize))
}

// NewPagination normalizes a page and limit pair.
func NewPagination(page, limit int) Pagination {
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return Pagination{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// Meta describes the window for a listing of total rows.
func (p Pagination) Meta(total int64) fiber.Map {
	pages := (total + int64(p.Limit) - 1) / int64(p.Limit)
	return fiber.Map{
		"current_page":   p.Page,
		"items_per_page": p.Limit,
		"total_items":    total,
		"total_pages":    pages,
	}
}

func atoiOr(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
