package pagination

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 25
	MaxLimit     = 200
)

// Params holds the window requested through the limit and offset query
// parameters.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Page describes the window that was cut out of a collection.
type Page struct {
	Params
	Total int
}

// Slice cuts the requested window out of items. An offset past the end is
// clamped to the last full window so a shrinking collection never renders
// an empty page while records remain.
func Slice[T any](items []T, p Params) ([]T, Page) {
	total := len(items)
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Offset >= total && total > 0 {
		p.Offset = (total - 1) / p.Limit * p.Limit
	}
	if p.Offset < 0 || total == 0 {
		p.Offset = 0
	}
	end := p.Offset + p.Limit
	if end > total {
		end = total
	}
	return items[p.Offset:end], Page{Params: p, Total: total}
}

// HasNext returns true if there are more results after the current page.
func (p Page) HasNext() bool {
	return p.Offset+p.Limit < p.Total
}

// HasPrevious returns true if there are results before the current page.
func (p Page) HasPrevious() bool {
	return p.Offset > 0
}

// From is the one-based position of the first record on the page.
func (p Page) From() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset + 1
}

// To is the one-based position of the last record on the page.
func (p Page) To() int {
	to := p.Offset + p.Limit
	if to > p.Total {
		return p.Total
	}
	return to
}

// Multiple reports whether the collection spans more than one page.
func (p Page) Multiple() bool {
	return p.Total > p.Limit
}

// NextURL and PreviousURL link to the neighbouring windows of basePath,
// keeping every other query parameter of query.
func (p Page) NextURL(basePath string, query url.Values) string {
	return p.link(basePath, query, p.Offset+p.Limit)
}

func (p Page) PreviousURL(basePath string, query url.Values) string {
	prev := p.Offset - p.Limit
	if prev < 0 {
		prev = 0
	}
	return p.link(basePath, query, prev)
}

func (p Page) link(basePath string, query url.Values, offset int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	q.Del("offset")
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if p.Limit != DefaultLimit {
		q.Set("limit", strconv.Itoa(p.Limit))
	} else {
		q.Del("limit")
	}
	if len(q) == 0 {
		return basePath
	}
	return basePath + "?" + q.Encode()
}
