package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type PaginationParams struct {
	Limit  int
	Before *Cursor
}

// Cursor points at the last row of a page. Rows are ordered newest date
// first, then by item code, so the next page starts strictly after it.
type Cursor struct {
	Date     time.Time
	ItemCode string
}

func (c Cursor) String() string {
	if c.ItemCode == "" {
		return c.Date.Format(time.DateOnly)
	}
	return c.Date.Format(time.DateOnly) + "," + c.ItemCode
}

// ParseCursor reads "YYYY-MM-DD" or "YYYY-MM-DD,<item_code>".
func ParseCursor(s string) (Cursor, error) {
	date, item, _ := strings.Cut(s, ",")
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor %q: %w", s, err)
	}
	return Cursor{Date: d, ItemCode: item}, nil
}

type CursorResponse struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

func ParsePagination(c *gin.Context) PaginationParams {
	p := PaginationParams{Limit: DefaultLimit}

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			p.Limit = l
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if beforeStr := c.Query("before"); beforeStr != "" {
		if cur, err := ParseCursor(beforeStr); err == nil {
			p.Before = &cur
		}
	}

	return p
}

func (p PaginationParams) cacheKey() string {
	before := ""
	if p.Before != nil {
		before = p.Before.String()
	}
	return fmt.Sprintf("%d:%s", p.Limit, before)
}
