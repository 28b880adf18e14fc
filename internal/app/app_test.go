package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/config"
)

func newTestEcho(t *testing.T, handler echo.HandlerFunc) *echo.Echo {
	t.Helper()
	a := &App{Config: &config.Config{}}
	e := echo.New()
	e.HTTPErrorHandler = a.errorHandler
	e.GET("/api/thing", handler)
	e.GET("/page", handler)
	return e
}

func do(e *echo.Echo, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestErrorHandler_APIServiceUnavailable(t *testing.T) {
	e := newTestEcho(t, func(echo.Context) error {
		return apperror.NewServiceUnavailable("could not start playback", errors.New("stream did not connect before timeout"))
	})

	rec := do(e, "/api/thing")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "could not start playback", body["message"])
	assert.Equal(t, "stream did not connect before timeout", body["error"])
	assert.Equal(t, "service_unavailable", body["type"])
}

func TestErrorHandler_InternalHidesCause(t *testing.T) {
	e := newTestEcho(t, func(echo.Context) error {
		return apperror.NewInternal(errors.New("dial tcp 10.0.0.5:3306: refused"))
	})

	rec := do(e, "/api/thing")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestErrorHandler_BrowserUnauthorizedRedirects(t *testing.T) {
	e := newTestEcho(t, func(echo.Context) error { return apperror.NewUnauthorized("authentication required") })

	rec := do(e, "/page")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestErrorHandler_BrowserErrorPage(t *testing.T) {
	e := newTestEcho(t, func(echo.Context) error { return apperror.NewNotFound("station not found") })

	rec := do(e, "/page")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "station not found")
}

func TestErrorHandler_FetchGetsJSON(t *testing.T) {
	e := newTestEcho(t, func(echo.Context) error { return apperror.NewForbidden("administrator access required") })

	rec := do(e, "/page", echo.HeaderAccept, echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"type":"forbidden","message":"administrator access required"}`, rec.Body.String())
}

func TestErrorHandler_RouterNotFound(t *testing.T) {
	e := newTestEcho(t, func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := do(e, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body["type"])
}

func TestStaticFS_HasStylesheet(t *testing.T) {
	data, err := staticFS.ReadFile("static/radio.css")
	require.NoError(t, err)
	assert.Contains(t, string(data), "#snackbar")
}
