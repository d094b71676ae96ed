// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  sqlite.DB → repositories → services → handlers
//	  sqlite.DB.Sessions() → scs.SessionManager (flash messages, login renewal)
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/qanda/internal/auth"
	"github.com/sakif/qanda/internal/config"
	"github.com/sakif/qanda/internal/handler"
	"github.com/sakif/qanda/internal/middleware"
	sqliteRepo "github.com/sakif/qanda/internal/repository/sqlite"
	"github.com/sakif/qanda/internal/service"
)

const (
	loginPath       = "/login"
	sessionCookie   = "session"
	shutdownTimeout = 30 * time.Second
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it after the HTTP
// server has drained; callers that never Start (tests) call Close.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *scs.SessionManager
}

// New opens the database and wires every layer.
//
// The data directory is created if needed, and expired sessions left over
// from earlier runs are purged once.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if n, err := db.Sessions().DeleteExpired(context.Background()); err != nil {
		logger.Warn("purging expired sessions failed", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("expired sessions purged", slog.Int64("count", n))
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the root handler. Tests drive it through httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) newSessionManager() *scs.SessionManager {
	sm := scs.New()
	sm.Store = s.db.Sessions()
	sm.Lifetime = s.config.SessionLifetime
	sm.Cookie.Name = sessionCookie
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = s.config.SecureCookies
	sm.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Error("session error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
	return sm
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET       /                        → question list (?page=N)
//	GET       /question/{id}           → question detail
//	GET|POST  /question/create         → ask (auth)
//	GET|POST  /question/{id}/update    → edit (author, else 404)
//	GET|POST  /question/{id}/delete    → confirm / soft delete (author, else 404)
//	GET|POST  /question/{id}/answer    → answer (auth, not the question's author)
//	GET|POST  /answer/{id}/update      → edit (author, else 404)
//	GET|POST  /answer/{id}/delete      → confirm / soft delete (author, else 404)
//	POST      /answer/{id}/like        → like / unlike (auth)
//	GET|POST  /register, /login        → account forms (POST rate limited)
//	POST      /logout                  → (auth)
//	GET       /auth/github/*           → GitHub sign-in, when configured
//	GET       /healthz, /metrics
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID, RealIP: request id for the logs, client IP for the rate limiter
//  2. Logger, Metrics: outermost of ours, so they see panics as 500s
//  3. Recoverer: catches panics and returns 500 instead of crashing
//  4. LoadAndSave: loads the scs session and saves it before the response
//  5. OptionalAuth, LoadUser: who is asking, if anyone
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.SessionLifetime)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.BcryptCost)

	var github *auth.GitHubProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
	}

	s.sessions = s.newSessionManager()

	// === Services ===
	users := s.db.Users()
	questions := s.db.Questions()
	answers := s.db.Answers()

	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	questionService := service.NewQuestionService(questions, answers, s.logger)
	answerService := service.NewAnswerService(answers, questions, s.logger)

	// === Handlers ===
	render, err := handler.NewRenderer(s.sessions, s.logger, github != nil)
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}
	authHandler := handler.NewAuthHandler(authService, github, s.sessions, render, handler.CookieOptions{
		MaxAge: tokens.Lifetime(),
		Secure: s.config.SecureCookies,
	}, s.logger)
	questionHandler := handler.NewQuestionHandler(questionService, render, s.logger)
	answerHandler := handler.NewAnswerHandler(answerService, questionService, render, s.logger)

	limiter := middleware.NewRateLimiter(s.config.LoginRateLimit, s.config.LoginRateBurst)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(s.sessions.LoadAndSave)
	s.router.Use(auth.OptionalAuth(tokens))
	s.router.Use(handler.LoadUser(authService, s.sessions, s.logger))

	s.router.NotFound(render.NotFound)

	// === Operational ===
	s.router.Get("/healthz", handler.HandleHealth(s.db, s.logger))
	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	// === Public pages ===
	s.router.Get("/", questionHandler.HandleHome)
	s.router.Get("/question/{id}", questionHandler.HandleDetail)

	// === Accounts ===
	s.router.Get("/register", authHandler.HandleRegisterForm)
	s.router.With(limiter.Limit).Post("/register", authHandler.HandleRegister)
	s.router.Get(loginPath, authHandler.HandleLoginForm)
	s.router.With(limiter.Limit).Post(loginPath, authHandler.HandleLogin)
	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	// === Authenticated ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(loginPath))

		r.Post("/logout", authHandler.HandleLogout)

		// Registered flat: a mounted /question sub-router would take
		// /question/{id}/... away from the public detail route.
		r.Get("/question/create", questionHandler.HandleCreateForm)
		r.Post("/question/create", questionHandler.HandleCreate)
		r.Get("/question/{id}/update", questionHandler.HandleUpdateForm)
		r.Post("/question/{id}/update", questionHandler.HandleUpdate)
		r.Get("/question/{id}/delete", questionHandler.HandleDeleteForm)
		r.Post("/question/{id}/delete", questionHandler.HandleDelete)
		r.Get("/question/{id}/answer", answerHandler.HandleCreateForm)
		r.Post("/question/{id}/answer", answerHandler.HandleCreate)

		r.Get("/answer/{id}/update", answerHandler.HandleUpdateForm)
		r.Post("/answer/{id}/update", answerHandler.HandleUpdate)
		r.Get("/answer/{id}/delete", answerHandler.HandleDeleteForm)
		r.Post("/answer/{id}/delete", answerHandler.HandleDelete)
		r.Post("/answer/{id}/like", answerHandler.HandleLike)
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("github", s.config.GitHub.Enabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
