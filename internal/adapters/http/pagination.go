package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Plot-listing page bounds. The mobile client renders 50 cards per screenful
// and never asks for more than two screenfuls at once.
const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// pageParams reads offset/limit from the query string and clamps them to
// the plot-listing bounds.
func pageParams(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	limit = c.QueryInt("limit", defaultPageSize)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return offset, limit
}

// SetLinkHeaders adds RFC 8288 Link headers (first/prev/next/last) for a
// paginated listing, built from the current request path.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()
	link := func(rel string, offset int) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel=%q`, base, offset, p.Limit, rel)
	}

	links := []string{link("first", 0)}

	if p.Offset > 0 {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		links = append(links, link("prev", prev))
	}

	if p.Offset+p.Limit < p.Total {
		links = append(links, link("next", p.Offset+p.Limit))
	}

	last := p.Total - p.Limit
	if last < 0 {
		last = 0
	}
	links = append(links, link("last", last))

	c.Set("Link", strings.Join(links, ", "))
}
