package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func newServer(cfg Config) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/page", ok)
	e.POST("/submit", ok)
	e.POST("/webhook", ok)
	return e
}

func TestGetIssuesToken(t *testing.T) {
	e := newServer(Config{EnforceSameOrigin: false})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-CSRF-Token"))

	var found bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "XSRF-TOKEN" && ck.Value != "" {
			found = true
		}
	}
	require.True(t, found, "expected XSRF-TOKEN cookie")
}

func TestPostWithoutTokenIsRejected(t *testing.T) {
	e := newServer(Config{EnforceSameOrigin: false})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPostWithEchoedTokenPasses(t *testing.T) {
	e := newServer(Config{EnforceSameOrigin: false})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page", nil))
	token := rec.Header().Get("X-CSRF-Token")

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.Header.Set("X-CSRF-Token", token)
	for _, ck := range rec.Result().Cookies() {
		req.AddCookie(ck)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSkipPaths(t *testing.T) {
	e := newServer(Config{EnforceSameOrigin: false, SkipPaths: []string{"/webhook"}})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
