package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGetPaginationParamsDefaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?page=0&limit=1000", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	p := GetPaginationParams(c)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, 0, p.Offset)
}

func TestTailWindow(t *testing.T) {
	p := PaginationParams{Page: 1, PageSize: 10, Offset: 0}
	start, end := p.TailWindow(25)
	assert.Equal(t, 15, start)
	assert.Equal(t, 25, end)

	p = PaginationParams{Page: 3, PageSize: 10, Offset: 20}
	start, end = p.TailWindow(25)
	assert.Equal(t, 0, start)
	assert.Equal(t, 5, end)

	p = PaginationParams{Page: 4, PageSize: 10, Offset: 30}
	start, end = p.TailWindow(25)
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}
