package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/sleepfit-stats/internal/config"
	sqliteRepo "github.com/sakif/sleepfit-stats/internal/repository/sqlite"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Port:        "0",
		DBPath:      ":memory:",
		FrontendURL: "http://localhost:3000",
		JWT:         config.JWT{Secret: "test-secret-at-least-16-chars!!", ExpiresIn: time.Hour},
		Fitbit: config.Fitbit{
			APIURL:          "http://127.0.0.1:1",
			Timeout:         time.Second,
			RequestsPerHour: 150,
		},
		RateLimit: config.RateLimit{PerMinute: 100},
	}
	if mutate != nil {
		mutate(cfg)
	}

	s, err := New(cfg, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s.Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sleepfit_http_requests_total")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newTestServer(t, nil)

	for _, path := range []string{"/api/sleep", "/api/fitness/summaries", "/api/users/profile", "/api/fitbit/status", "/api/auth/me"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRegisterThenUseToken(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"a@example.com","password":"password123","name":"A"}`))
	rec := serve(h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := rec.Body.String()
	i := strings.Index(body, `"token":"`)
	require.GreaterOrEqual(t, i, 0)
	token := body[i+len(`"token":"`):]
	token = token[:strings.Index(token, `"`)]

	req = httptest.NewRequest(http.MethodGet, "/api/sleep/statistics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestFitbitConnectDisabledWithoutCredentials(t *testing.T) {
	h := newTestServer(t, nil)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/auth/fitbit", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h = newTestServer(t, func(c *config.Config) {
		c.Fitbit.ClientID = "id"
		c.Fitbit.ClientSecret = "secret"
	})
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/auth/fitbit", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "client_id=id")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/sleep", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestLoginIsRateLimited(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.RateLimit.PerMinute = 2 })

	var last int
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"nobody@example.com","password":"whatever"}`))
		req.RemoteAddr = "203.0.113.7:5555"
		last = serve(h, req).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
