package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// GetPaginationParams extracts pagination parameters from request
func GetPaginationParams(c echo.Context) PaginationParams {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("limit"))

	if page <= 0 {
		page = 1
	}

	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// TailWindow returns the [start, end) bounds of the page counted from the
// newest end of an ascending list of length total. Page 1 holds the newest
// items.
func (p PaginationParams) TailWindow(total int) (int, int) {
	end := total - p.Offset
	if end <= 0 {
		return 0, 0
	}
	start := end - p.PageSize
	if start < 0 {
		start = 0
	}
	return start, end
}
