// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB → repositories
//	repositories  → AuthService, PostService, SubscriptionService
//	services      → AuthHandler, PostHandler, SubscriptionHandler
//
// This is the "composition root": all dependencies are assembled in New, so
// no other package constructs its own collaborators.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/config"
	"github.com/sakif/blog/internal/flash"
	"github.com/sakif/blog/internal/handler"
	"github.com/sakif/blog/internal/middleware"
	sqliteRepo "github.com/sakif/blog/internal/repository/sqlite"
	"github.com/sakif/blog/internal/service"
	"github.com/sakif/blog/web"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it during graceful
// shutdown; callers that never Start (tests) must call Close.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	tokens  *auth.TokenService
	metrics *middleware.Metrics
}

// Option customises a Server before its routes are built.
type Option func(*options)

type options struct {
	github handler.GitHubAuthenticator
	bcrypt int
	assets fs.FS
}

// WithGitHub overrides the GitHub OAuth client built from the config.
func WithGitHub(g handler.GitHubAuthenticator) Option {
	return func(o *options) { o.github = g }
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.bcrypt = cost }
}

// New creates a Server from cfg.
//
// WIRING ORDER:
//  1. Open the database (runs migrations)
//  2. Build auth utilities: JWT tokens, bcrypt, GitHub OAuth (if configured)
//  3. Build services on top of the repositories
//  4. Build handlers on top of the services
//  5. Register middleware and routes
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	o := options{assets: web.FS}
	for _, opt := range opts {
		opt(&o)
	}

	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		tokens:  tokens,
		metrics: middleware.NewMetrics(),
	}
	s.metrics.Registry().MustRegister(collectors.NewDBStatsCollector(db.Conn(), "blog"))

	if err := s.setupRoutes(o); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET       /                        → public post list
//	GET|POST  /register/ /login/       → auth forms
//	GET|POST  /logout/                 → clear session
//	GET       /auth/github/login       → GitHub OAuth (when configured)
//	GET       /auth/github/callback
//	GET       /healthz /metrics /static/*
//
//	login required:
//	GET|POST  /post/new/               → create
//	GET|POST  /post/{id}/              → detail + comment
//	GET|POST  /post/{id}/edit/         → edit (author only)
//	GET|POST  /post/{id}/delete/       → delete (author only)
//	GET|POST  /subscribe/{username}/   → toggle subscription
//	GET       /subscriptions/          → feed
//	GET       /user/{username}/        → author's posts
//	GET       /profile/                → own profile
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
//  1. RequestID, RealIP, Recoverer (chi built-ins)
//  2. Logger and metrics
//  3. OptionalAuth + LoadCurrentUser: every page knows who is signed in
//  4. RequireAuth + RequireUser on the login-only group
func (s *Server) setupRoutes(o options) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(s.metrics.Instrument)

	// === Services ===
	passwords := auth.NewPasswordService()
	if o.bcrypt > 0 {
		passwords = auth.NewPasswordServiceWithCost(o.bcrypt)
	}
	users, profiles, posts, comments := s.db.Users(), s.db.Profiles(), s.db.Posts(), s.db.Comments()

	authService := service.NewAuthService(users, s.tokens, passwords, s.logger)
	postService := service.NewPostService(posts, comments, users, profiles, s.logger)
	subService := service.NewSubscriptionService(users, profiles, s.logger)

	// === Handlers ===
	view, err := handler.NewRenderer(o.assets, &flash.Store{Secure: s.config.Auth.Secure}, s.logger)
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}

	// A nil *auth.GitHubProvider inside the interface would not compare equal
	// to nil, so the interface is only assigned when GitHub is configured.
	github := o.github
	if github == nil && s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		)
	}

	authHandler := handler.NewAuthHandler(authService, github, view, s.config.Auth.Secure, s.logger)
	postHandler := handler.NewPostHandler(postService, view, s.logger)
	subHandler := handler.NewSubscriptionHandler(subService, postService, view, s.logger)

	// === Operational endpoints ===
	static, err := fs.Sub(o.assets, "static")
	if err != nil {
		return fmt.Errorf("locating static assets: %w", err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	// === Pages ===
	// Every page, the 404 page included, knows who is signed in.
	withUser := chi.Chain(
		auth.OptionalAuth(s.tokens),
		handler.LoadCurrentUser(authService, view),
	)
	s.router.NotFound(withUser.HandlerFunc(view.NotFound).ServeHTTP)

	s.router.Group(func(r chi.Router) {
		r.Use(withUser...)

		r.Get("/", postHandler.HandleList)
		r.Get("/register/", authHandler.HandleRegister)
		r.Post("/register/", authHandler.HandleRegister)
		r.Get("/login/", authHandler.HandleLogin)
		r.Post("/login/", authHandler.HandleLogin)
		r.Get("/logout/", authHandler.HandleLogout)
		r.Post("/logout/", authHandler.HandleLogout)

		if github != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))
			r.Use(handler.RequireUser(s.config.Auth.Secure))

			r.Get("/post/new/", postHandler.HandleCreate)
			r.Post("/post/new/", postHandler.HandleCreate)
			r.Get("/post/{id}/", postHandler.HandleDetail)
			r.Post("/post/{id}/", postHandler.HandleDetail)
			r.Get("/post/{id}/edit/", postHandler.HandleEdit)
			r.Post("/post/{id}/edit/", postHandler.HandleEdit)
			r.Get("/post/{id}/delete/", postHandler.HandleDelete)
			r.Post("/post/{id}/delete/", postHandler.HandleDelete)

			r.Get("/subscribe/{username}/", subHandler.HandleToggle)
			r.Post("/subscribe/{username}/", subHandler.HandleToggle)
			r.Get("/subscriptions/", subHandler.HandleFeed)
			r.Get("/user/{username}/", subHandler.HandleUserPosts)
			r.Get("/profile/", subHandler.HandleProfile)
		})
	})

	return nil
}

// handleHealth reports whether the database answers.
//
// HTTP: GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("database unavailable\n"))
		return
	}
	w.Write([]byte("ok\n"))
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start does this itself on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
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
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Path),
			slog.Bool("github", s.config.GitHubEnabled()),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
