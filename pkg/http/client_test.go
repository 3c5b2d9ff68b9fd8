package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "rapwatch-test", r.Header.Get("User-Agent"))
			assert.Equal(t, "1028606", r.URL.Query().Get("id"))
			_, _ = w.Write([]byte(`{"success":true}`))
		default:
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second), WithUserAgent("rapwatch-test"))

	var out struct {
		Success bool `json:"success"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL+"/ok", url.Values{"id": {"1028606"}}, &out))
	assert.True(t, out.Success)

	err := c.GetJSON(context.Background(), srv.URL+"/down", nil, &out)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

type probeRequest struct {
	ID   string `param:"id" validate:"required,numeric"`
	Days int    `query:"days" default:"7" validate:"gte=1,lte=90"`
}

func TestBindAndValidate(t *testing.T) {
	e := echo.New()
	var got probeRequest
	var errs []ValidationError
	e.GET("/items/:id", func(c echo.Context) error {
		got = probeRequest{}
		errs = BindAndValidate(c, &got)
		if errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, got)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/1028606", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, probeRequest{ID: "1028606", Days: 7}, got)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/abc?days=200", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, errs, 2)
	assert.Equal(t, "id", errs[0].Field)
	assert.Equal(t, "ERR_NUMERIC", errs[0].Code)
	assert.Equal(t, "days", errs[1].Field)
	assert.Equal(t, "ERR_LTE", errs[1].Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/1?days=soon", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundErrorf("item %s not found", "9"))
	})
	e.GET("/opaque", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("db down"))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/opaque", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}
