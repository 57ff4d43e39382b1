// Package server is the composition root: it builds every dependency from
// a config.Config, wires handlers to routes and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config → sqlite.DB (+ optional Redis) → services → handlers → chi routes
//
// Handlers only see services, services only see repository interfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/config"
	"github.com/sakif/item-catalog/internal/handler"
	"github.com/sakif/item-catalog/internal/markup"
	"github.com/sakif/item-catalog/internal/metrics"
	"github.com/sakif/item-catalog/internal/middleware"
	sqliteRepo "github.com/sakif/item-catalog/internal/repository/sqlite"
	"github.com/sakif/item-catalog/internal/service"
	"github.com/sakif/item-catalog/internal/web"
)

const (
	shutdownTimeout = 30 * time.Second
	redisTimeout    = 5 * time.Second
)

// Server owns the database and Redis connections and closes them when it
// stops.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	rdb    *redis.Client // nil without REDIS_ADDR
	google auth.Provider // nil when Google sign-in is off
}

// Option customises a Server before its routes are built.
type Option func(*Server)

// WithGoogleProvider replaces the Google provider built from config.
func WithGoogleProvider(p auth.Provider) Option {
	return func(s *Server) { s.google = p }
}

// New opens the database, connects to Redis when configured and builds the
// router. On error everything opened so far is closed again.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
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

	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
		defer cancel()
		if s.rdb, err = auth.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
			db.Close()
			return nil, err
		}
	}

	if cfg.GoogleEnabled() {
		s.google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes builds the dependency chain and registers every route.
//
// MIDDLEWARE ORDER:
//  1. RequestID, RealIP, Recoverer (chi)
//  2. Logger, Metrics
//  3. StripSlashes so /categories/x/ matches /categories/x
//  4. OptionalAuth attaches the caller's identity, if any
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return err
	}

	var sessions auth.SessionStore = auth.NewMemorySessionStore()
	if s.rdb != nil {
		sessions = auth.NewRedisSessionStore(s.rdb)
	}

	validator := service.NewValidator()
	catalogService := service.NewCatalogService(s.db, validator, s.logger, s.config.LatestItemsLimit)
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), sessions, validator, s.logger)

	flashes := handler.NewFlashes([]byte(s.config.SessionKey), s.config.SecureCookies, s.logger)
	pages, err := handler.NewRenderer(web.Templates(), catalogService, flashes, s.logger)
	if err != nil {
		return err
	}

	md := markup.New()
	highlightCSS, err := handler.HighlightCSS(md)
	if err != nil {
		return err
	}

	loginLimiter, err := middleware.NewLimiter(s.config.LoginRateLimit, s.rdb)
	if err != nil {
		return err
	}
	rateLimit := middleware.RateLimit(loginLimiter, s.logger)

	catalogHandler := handler.NewCatalogHandler(catalogService, md, pages, flashes, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.google, pages, flashes, s.config.SecureCookies, s.logger)
	apiHandler := handler.NewAPIHandler(catalogService, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.StripSlashes)
	s.router.Use(auth.OptionalAuth(tokens, sessions, s.logger))

	// === Operational ===
	s.router.Handle("/metrics", metrics.Handler())
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/static/highlight.css", highlightCSS)
	s.router.Handle("/static/*", http.StripPrefix("/static/", web.StaticFileServer()))

	// === Public pages ===
	s.router.Get("/", catalogHandler.HandleIndex)
	s.router.Get("/items.json", apiHandler.HandleExport)
	s.router.Get("/api/me", authHandler.HandleMe)
	s.router.Get("/categories/{category}", catalogHandler.HandleShowCategory)
	s.router.Get("/categories/{category}/{item}", catalogHandler.HandleShowItem)

	// === Authentication ===
	s.router.Get("/login", authHandler.HandleLoginPage)
	s.router.With(rateLimit).Post("/login", authHandler.HandleLogin)
	s.router.Get("/register", authHandler.HandleRegisterPage)
	s.router.With(rateLimit).Post("/register", authHandler.HandleRegister)
	s.router.Get("/login/google", authHandler.HandleGoogleLogin)
	s.router.Get("/login/google/authorized", authHandler.HandleGoogleCallback)

	// === Logged-in only ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/logout", authHandler.HandleLogout)

		r.Post("/categories/create", catalogHandler.HandleCreateCategory)
		r.Get("/categories/{category}/edit", catalogHandler.HandleEditCategory)
		r.Post("/categories/{category}/edit", catalogHandler.HandleUpdateCategory)
		r.Get("/categories/{category}/delete", catalogHandler.HandleConfirmDeleteCategory)
		r.Post("/categories/{category}/delete", catalogHandler.HandleDeleteCategory)

		r.Get("/categories/{category}/create", catalogHandler.HandleNewItem)
		r.Post("/categories/{category}/create", catalogHandler.HandleCreateItem)
		r.Get("/categories/{category}/{item}/edit", catalogHandler.HandleEditItem)
		r.Post("/categories/{category}/{item}/edit", catalogHandler.HandleUpdateItem)
		r.Get("/categories/{category}/{item}/delete", catalogHandler.HandleConfirmDeleteItem)
		r.Post("/categories/{category}/{item}/delete", catalogHandler.HandleDeleteItem)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check: database unreachable", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			s.logger.Error("health check: redis unreachable", slog.String("error", err.Error()))
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Write([]byte("ok"))
}

// Close releases the database and Redis connections.
func (s *Server) Close() error {
	var errs []error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, drains in-flight requests for up to
// 30 seconds and then closes the connections.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

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
			slog.Bool("redis", s.rdb != nil),
			slog.Bool("google", s.google != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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
