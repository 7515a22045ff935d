// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware and
// routes, and it owns the background scheduler so the process has a single
// lifecycle:
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the HTTP server and the scheduler start and stop together
//
// DEPENDENCY INJECTION FLOW:
// Wire(cfg) creates:
//
//	social.Client → social.Fetcher ─┐
//	classifier.New ─────────────────┼─► tracker.Engine
//	notify.Sender → notify.Dispatcher ┘
//
//	sqlite.DB ─┬─► UserService ─────────────► UserHandler, PageHandler
//	           ├─► tracker.Engine ──────────► JobsHandler, Scheduler
//	           └─► NotificationService ─────► JobsHandler
//
// New(cfg, deps) adds the session layer:
//
//	TokenService → AuthService → AuthHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place rather than scattered across the codebase. cmd/shipctl reuses Wire
// to run jobs without the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/shiptrack/internal/auth"
	"github.com/sakif/shiptrack/internal/classifier"
	"github.com/sakif/shiptrack/internal/config"
	"github.com/sakif/shiptrack/internal/handler"
	"github.com/sakif/shiptrack/internal/metrics"
	"github.com/sakif/shiptrack/internal/middleware"
	"github.com/sakif/shiptrack/internal/notify"
	sqliteRepo "github.com/sakif/shiptrack/internal/repository/sqlite"
	"github.com/sakif/shiptrack/internal/scheduler"
	"github.com/sakif/shiptrack/internal/service"
	"github.com/sakif/shiptrack/internal/social"
	"github.com/sakif/shiptrack/internal/tracker"
)

const shutdownTimeout = 30 * time.Second

// Deps is everything the process needs, built once by Wire.
//
// RESOURCE MANAGEMENT:
// Deps owns the database connection. Close it when the process exits so
// pending writes are flushed and the file lock is released.
type Deps struct {
	DB            *sqliteRepo.DB
	Users         *service.UserService
	Notifications *service.NotificationService
	Engine        *tracker.Engine
}

// Wire builds the dependency graph described by cfg.
//
// Missing X or OpenAI credentials only produce a warning: fetches or
// classifications then fail per user and the run carries on. Without a
// Resend key emails are logged instead of sent.
func Wire(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Deps, error) {
	// === CREATE DATABASE ===
	if cfg.Database.Path != ":memory:" {
		dir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// === TRACKER PIPELINE ===
	if cfg.Twitter.BearerToken == "" {
		logger.Warn("TWITTER_BEARER_TOKEN not set; every post fetch will fail")
	}
	client := social.NewClient(social.Options{
		BaseURL:     cfg.Twitter.BaseURL,
		BearerToken: cfg.Twitter.BearerToken,
		RPS:         cfg.Twitter.RPS,
		Burst:       cfg.Twitter.Burst,
		MaxAttempts: cfg.Twitter.MaxAttempts,
		BaseBackoff: time.Duration(cfg.Twitter.BaseBackoffMS) * time.Millisecond,
	})
	fetcher := social.NewFetcher(client, cfg.Twitter.MaxResults, logger)

	if cfg.LLM.APIKey == "" {
		logger.Warn("LLM API key not set; post classification will fail", slog.String("provider", cfg.LLM.Provider))
	}
	clf, err := classifier.New(ctx, classifier.Options{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating classifier: %w", err)
	}

	var sender notify.Sender
	if cfg.Email.APIKey != "" {
		sender = notify.NewResendSender(cfg.Email.APIKey, cfg.Email.BaseURL, nil)
	} else {
		logger.Warn("RESEND_API_KEY not set; emails will be logged, not sent")
		sender = notify.LogSender{Logger: logger}
	}
	dispatcher := notify.NewDispatcher(sender, cfg.Email.From, logger)

	engine := tracker.New(db, fetcher, clf, dispatcher, logger,
		tracker.WithLocation(cfg.Scheduler.Location()),
	)

	return &Deps{
		DB:            db,
		Users:         service.NewUserService(db, logger),
		Notifications: service.NewNotificationService(db, dispatcher, logger),
		Engine:        engine,
	}, nil
}

// Server represents the HTTP server and the background scheduler.
type Server struct {
	router    *chi.Mux
	config    config.Config
	logger    *slog.Logger
	deps      *Deps
	tokens    *auth.TokenService
	scheduler *scheduler.Scheduler // nil when an external cron drives the tracker
}

// New creates a Server on top of already wired dependencies. Sessions need
// a JWT secret, so unlike Wire this fails when auth is not configured.
func New(cfg config.Config, deps *Deps, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		deps:   deps,
		tokens: tokens,
	}
	if cfg.Scheduler.Enabled {
		s.scheduler = scheduler.New(deps.Engine, cfg.Scheduler.Interval, cfg.Scheduler.RunOnStart, logger)
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /                        → landing page (HTML)
//	GET    /login, /onboarding, /dashboard, /leaderboard → pages (HTML)
//	GET    /auth/twitter/login      → start X OAuth
//	GET    /auth/twitter/callback   → finish X OAuth
//	POST   /api/auth/logout         → clear session
//	GET    /api/users/me            → current user            [auth]
//	PUT    /api/users/me            → update profile          [auth]
//	DELETE /api/users/me            → delete account          [auth]
//	GET    /api/onboarding/status   → onboarding flag         [auth]
//	POST   /api/onboarding          → complete onboarding     [auth]
//	GET    /api/leaderboard         → top users
//	GET    /api/check-tweets        → run tracker once        [cron]
//	GET    /api/test-notifications  → send sample emails      [cron]
//	GET    /metrics, /healthz       → ops
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns a unique id to each request
//  2. RealIP: extracts the client IP from proxy headers
//  3. Logger: logs each request, including the request id
//  4. Recoverer: turns panics into 500s (inside Logger so they get logged)
func (s *Server) setupRoutes() error {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Ops ===
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.deps.DB.Ping(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", metrics.Handler())

	// === Handlers ===
	secure := s.config.Server.SecureCookies()

	provider := auth.NewTwitterProvider(
		s.config.Auth.TwitterClientID,
		s.config.Auth.TwitterClientSecret,
		s.config.Auth.TwitterCallbackURL,
		auth.TwitterEndpoint,
		s.config.Twitter.BaseURL,
	)
	authService := service.NewAuthService(s.deps.DB, s.tokens, s.logger)
	authHandler := handler.NewAuthHandler(provider, authService, s.tokens.TTL(), secure, s.logger)
	userHandler := handler.NewUserHandler(s.deps.Users, secure, s.logger)

	cron, err := auth.NewSecretVerifier(s.config.Auth.CronSecretHash)
	if err != nil {
		return fmt.Errorf("cron secret: %w", err)
	}
	if cron == nil {
		s.logger.Warn("CRON_SECRET_HASH not set; job endpoints are open")
	}
	jobsHandler := handler.NewJobsHandler(s.deps.Engine, s.deps.Notifications, cron, s.logger)

	pageHandler, err := handler.NewPageHandler(s.deps.Users, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	// === Page Routes ===
	// OptionalAuth: pages render for visitors and signed-in users alike.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(s.tokens))
		r.Get("/", pageHandler.HandleHome)
		r.Get("/login", pageHandler.HandleLogin)
		r.Get("/onboarding", pageHandler.HandleOnboarding)
		r.Get("/dashboard", pageHandler.HandleDashboard)
		r.Get("/leaderboard", pageHandler.HandleLeaderboard)
	})

	// === OAuth ===
	s.router.Get("/auth/twitter/login", authHandler.HandleTwitterLogin)
	s.router.Get("/auth/twitter/callback", authHandler.HandleTwitterCallback)

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Get("/leaderboard", userHandler.HandleLeaderboard)

		// Cron endpoints check their own bearer secret.
		r.Get("/check-tweets", jobsHandler.HandleCheckTweets)
		r.Get("/test-notifications", jobsHandler.HandleTestNotifications)

		// PROTECTED ROUTES: RequireAuth answers 401 before the handler runs.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))
			r.Get("/users/me", userHandler.HandleGetMe)
			r.Put("/users/me", userHandler.HandleUpdateMe)
			r.Delete("/users/me", userHandler.HandleDeleteMe)
			r.Get("/onboarding/status", userHandler.HandleOnboardingStatus)
			r.Post("/onboarding", userHandler.HandleOnboard)
		})
	})

	return nil
}

// Start runs the HTTP server and, when enabled, the scheduler until ctx is
// cancelled, then shuts both down.
//
// GRACEFUL SHUTDOWN:
//  1. ctx is cancelled (main wires it to SIGINT/SIGTERM)
//  2. the scheduler stops after its current run
//  3. the HTTP server stops accepting connections and waits for in-flight
//     requests (30s timeout)
//
// errgroup ties the goroutines together: if the listener fails, the group
// context is cancelled and the scheduler stops too.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// check-tweets blocks for a whole tracker run.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", s.config.Server.BaseURL),
			slog.String("database", s.config.Database.Path),
			slog.Bool("scheduler", s.scheduler != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	if s.scheduler != nil {
		g.Go(func() error {
			return s.scheduler.Start(gctx)
		})
	}

	return g.Wait()
}
