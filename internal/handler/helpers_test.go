package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/sakif/sleepfit-stats/internal/auth"
	"github.com/sakif/sleepfit-stats/internal/fitbit"
	"github.com/sakif/sleepfit-stats/internal/repository/sqlite"
	"github.com/sakif/sleepfit-stats/internal/service"
)

const testFrontend = "http://frontend.test"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAPI stands in for the Fitbit client behind SyncService.
type stubAPI struct {
	err   error
	sleep []fitbit.SleepLog
}

func (s *stubAPI) SleepByDateRange(ctx context.Context, userID, start, end string) ([]fitbit.SleepLog, error) {
	return s.sleep, s.err
}

func (s *stubAPI) ActivitiesByDate(ctx context.Context, userID, date string) (*fitbit.DailyActivity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &fitbit.DailyActivity{}, nil
}

func (s *stubAPI) HeartRateByDate(ctx context.Context, userID, date string) (*fitbit.HeartRateDay, error) {
	return nil, s.err
}

// testEnv is the API wired over an in-memory database, routed the same
// way the server routes it.
type testEnv struct {
	t      *testing.T
	db     *sqlite.DB
	tokens *auth.TokenService
	api    *stubAPI
	router chi.Router
}

func newTestEnv(t *testing.T, provider *auth.FitbitProvider) *testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)

	logger := quietLogger()
	api := &stubAPI{}

	authH := NewAuthHandler(
		service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(4), logger),
		provider, testFrontend, time.Hour, logger,
	)
	userH := NewUserHandler(service.NewUserService(db, logger), logger)
	sleepH := NewSleepHandler(service.NewSleepService(db, logger), logger)
	fitnessH := NewFitnessHandler(service.NewFitnessService(db, logger), logger)
	fitbitH := NewFitbitHandler(service.NewSyncService(api, db, logger), logger)

	requireAuth := auth.RequireAuth(tokens, db, logger)

	r := chi.NewRouter()
	r.Get("/healthz", HandleHealth(db, logger))
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.HandleRegister)
			r.Post("/login", authH.HandleLogin)
			r.Post("/logout", authH.HandleLogout)
			r.With(requireAuth).Get("/me", authH.HandleMe)
			r.Get("/fitbit", authH.HandleFitbitConnect)
			r.With(auth.OptionalAuth(tokens, db)).Get("/fitbit/callback", authH.HandleFitbitCallback)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/users/profile", userH.HandleGetProfile)
			r.Put("/users/profile", userH.HandleUpdateProfile)
			r.Put("/users/preferences", userH.HandleUpdatePreferences)

			r.Get("/sleep", sleepH.HandleList)
			r.Get("/sleep/statistics", sleepH.HandleStatistics)
			r.Post("/sleep", sleepH.HandleCreate)
			r.Put("/sleep/{id}", sleepH.HandleUpdate)
			r.Delete("/sleep/{id}", sleepH.HandleDelete)

			r.Get("/fitness/activities", fitnessH.HandleListActivities)
			r.Post("/fitness/activities", fitnessH.HandleCreateActivity)
			r.Put("/fitness/activities/{id}", fitnessH.HandleUpdateActivity)
			r.Delete("/fitness/activities/{id}", fitnessH.HandleDeleteActivity)
			r.Get("/fitness/summaries", fitnessH.HandleListSummaries)

			r.Get("/fitbit/status", fitbitH.HandleStatus)
			r.Post("/fitbit/sync/sleep", fitbitH.HandleSyncSleep)
			r.Post("/fitbit/sync/activity", fitbitH.HandleSyncActivity)
			r.Post("/fitbit/sync/all", fitbitH.HandleSyncAll)
			r.Delete("/fitbit/disconnect", fitbitH.HandleDisconnect)
		})
	})

	return &testEnv{t: t, db: db, tokens: tokens, api: api, router: r}
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signup registers an account and returns its token and id.
func (e *testEnv) signup(email string) (token, id string) {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "password": "password123", "name": "Tester",
	}, "")
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())

	var res struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decode(e.t, rec, &res)
	return res.Token, res.User.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	decode(t, rec, &e)
	return e
}
