// Package server wires handlers, middleware and routes, and runs the HTTP
// server until its context is cancelled.
//
// ROUTES:
//
//	GET    /healthz                         → database ping
//	GET    /metrics                         → Prometheus
//	POST   /api/auth/register|login         → accounts (rate limited per IP)
//	POST   /api/auth/logout, GET /api/auth/me
//	GET    /api/auth/fitbit[/callback]      → Fitbit connect flow
//	*      /api/users/...                   → profile, preferences
//	*      /api/sleep/...                   → sleep entries and statistics
//	*      /api/fitness/...                 → activities and daily summaries
//	*      /api/fitbit/...                  → status, sync, disconnect
//
// Everything under /api except register, login, logout and the Fitbit
// connect flow requires a bearer token.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/sakif/sleepfit-stats/internal/auth"
	"github.com/sakif/sleepfit-stats/internal/config"
	"github.com/sakif/sleepfit-stats/internal/fitbit"
	"github.com/sakif/sleepfit-stats/internal/handler"
	"github.com/sakif/sleepfit-stats/internal/metrics"
	"github.com/sakif/sleepfit-stats/internal/middleware"
	sqliteRepo "github.com/sakif/sleepfit-stats/internal/repository/sqlite"
	"github.com/sakif/sleepfit-stats/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// Server is the HTTP API. It does not own the database handle; the caller
// opens it before New and closes it after Start returns.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

func New(cfg *config.Config, db *sqliteRepo.DB, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes builds the dependency chain and the route table.
//
// Middleware runs in the order it is added: request id, real IP, panic
// recovery, metrics, logging, CORS.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.cfg.JWT.Secret, s.cfg.JWT.ExpiresIn)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	provider := auth.NewFitbitProvider(auth.FitbitConfig{
		ClientID:     s.cfg.Fitbit.ClientID,
		ClientSecret: s.cfg.Fitbit.ClientSecret,
		CallbackURL:  s.cfg.Fitbit.CallbackURL,
		AuthURL:      s.cfg.Fitbit.AuthURL,
		TokenURL:     s.cfg.Fitbit.TokenURL,
		APIURL:       s.cfg.Fitbit.APIURL,
	})
	// The connect flow is only offered with real credentials. The provider
	// still backs token refresh for connections made earlier.
	connect := provider
	if !s.cfg.Fitbit.Enabled() {
		s.logger.Warn("FITBIT_CLIENT_ID/FITBIT_CLIENT_SECRET not set, Fitbit connect is disabled")
		connect = nil
	}

	client := fitbit.NewClient(fitbit.ClientConfig{
		BaseURL:         s.cfg.Fitbit.APIURL,
		Timeout:         s.cfg.Fitbit.Timeout,
		RequestsPerHour: s.cfg.Fitbit.RequestsPerHour,
	}, fitbit.NewTokenManager(s.db, provider, s.logger), s.logger)

	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)

	authHandler := handler.NewAuthHandler(authService, connect, s.cfg.FrontendURL, s.cfg.JWT.ExpiresIn, s.logger)
	userHandler := handler.NewUserHandler(service.NewUserService(s.db, s.logger), s.logger)
	sleepHandler := handler.NewSleepHandler(service.NewSleepService(s.db, s.logger), s.logger)
	fitnessHandler := handler.NewFitnessHandler(service.NewFitnessService(s.db, s.logger), s.logger)
	fitbitHandler := handler.NewFitbitHandler(service.NewSyncService(client, s.db, s.logger), s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Metrics)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Get("/healthz", handler.HandleHealth(s.db, s.logger))
	s.router.Handle("/metrics", metrics.Handler())

	requireAuth := auth.RequireAuth(tokens, s.db, s.logger)
	limitLogin := httprate.LimitByIP(s.cfg.RateLimit.PerMinute, time.Minute)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(limitLogin).Post("/register", authHandler.HandleRegister)
			r.With(limitLogin).Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
			r.Get("/fitbit", authHandler.HandleFitbitConnect)
			r.With(auth.OptionalAuth(tokens, s.db)).Get("/fitbit/callback", authHandler.HandleFitbitCallback)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/users", func(r chi.Router) {
				r.Get("/profile", userHandler.HandleGetProfile)
				r.Put("/profile", userHandler.HandleUpdateProfile)
				r.Put("/preferences", userHandler.HandleUpdatePreferences)
			})

			r.Route("/sleep", func(r chi.Router) {
				r.Get("/", sleepHandler.HandleList)
				r.Get("/statistics", sleepHandler.HandleStatistics)
				r.Post("/", sleepHandler.HandleCreate)
				r.Put("/{id}", sleepHandler.HandleUpdate)
				r.Delete("/{id}", sleepHandler.HandleDelete)
			})

			r.Route("/fitness", func(r chi.Router) {
				r.Get("/activities", fitnessHandler.HandleListActivities)
				r.Post("/activities", fitnessHandler.HandleCreateActivity)
				r.Put("/activities/{id}", fitnessHandler.HandleUpdateActivity)
				r.Delete("/activities/{id}", fitnessHandler.HandleDeleteActivity)
				r.Get("/summaries", fitnessHandler.HandleListSummaries)
			})

			r.Route("/fitbit", func(r chi.Router) {
				r.Get("/status", fitbitHandler.HandleStatus)
				r.Post("/sync/sleep", fitbitHandler.HandleSyncSleep)
				r.Post("/sync/activity", fitbitHandler.HandleSyncActivity)
				r.Post("/sync/all", fitbitHandler.HandleSyncAll)
				r.Delete("/disconnect", fitbitHandler.HandleDisconnect)
			})
		})
	})

	return nil
}

// Start serves until ctx is cancelled, then stops accepting connections
// and gives in-flight requests up to 30 seconds to finish.
func (s *Server) Start(ctx context.Context) error {
	// WriteTimeout leaves room for a sync-all run, which makes one Fitbit
	// call per day of the range.
	srv := &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("port", s.cfg.Port),
			slog.String("url", "http://localhost:"+s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
