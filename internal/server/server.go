// Package server is the composition root: it opens the store, builds the
// services and handlers, and mounts them on a chi router.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB → Access → *Service → *Handler → routes
//
// Each layer only receives what it needs. Services get repository
// interfaces, handlers get services, and nothing below this package knows
// about the router.
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

	"github.com/sakif/chat-memo/internal/auth"
	"github.com/sakif/chat-memo/internal/config"
	"github.com/sakif/chat-memo/internal/handler"
	"github.com/sakif/chat-memo/internal/middleware"
	sqliteRepo "github.com/sakif/chat-memo/internal/repository/sqlite"
	"github.com/sakif/chat-memo/internal/service"
)

// Server owns the router and every resource that must be released on
// shutdown: the database and, when configured, the Redis client.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	revoker auth.Revoker
}

// New wires the whole application. The caller must Close the server if it
// never calls Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	revoker, err := newRevoker(ctx, cfg.Redis, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		revoker: revoker,
	}

	if err := s.setupRoutes(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func newRevoker(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (auth.Revoker, error) {
	if cfg.Addr == "" {
		logger.Info("token revocations kept in memory")
		return auth.NewMemoryRevoker(), nil
	}

	r := auth.NewRedisRevoker(cfg.Addr, cfg.Password)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		r.Close()
		return nil, err
	}
	logger.Info("token revocations kept in redis", slog.String("addr", cfg.Addr))
	return r, nil
}

// setupRoutes configures middleware and routes.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns the id the logger prints
//  2. RealIP: client IP from proxy headers
//  3. Logger
//  4. Recoverer: a panic becomes a 500 instead of a crash
func (s *Server) setupRoutes(ctx context.Context) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return err
	}
	authenticator := auth.NewAuthenticator(tokens, s.revoker)

	// s.db implements every repository interface.
	access := service.NewAccess(s.db, s.db, s.db, s.db)
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.revoker, s.logger)
	providerService := service.NewAIProviderService(access, s.db, s.logger)

	// The defaults are shared rows; seeding them here means every user sees
	// them without calling ensureDefaults first.
	if _, err := providerService.EnsureDefaults(ctx); err != nil {
		return err
	}

	var google *auth.GoogleProvider
	if g := s.config.Auth.Google; g.Enabled() {
		google = auth.NewGoogleProvider(g.ClientID, g.ClientSecret, g.CallbackURL)
	}

	authHandler := handler.NewAuthHandler(authService, google, s.config.Auth.SecureCookie, s.logger)
	snippetHandler := handler.NewSnippetHandler(
		service.NewSnippetService(access, s.db, s.db, s.logger), s.logger)
	messageHandler := handler.NewMessageHandler(
		service.NewMessageService(access, s.db, s.db, s.logger), s.logger)
	tagHandler := handler.NewTagHandler(
		service.NewTagService(access, s.db, s.logger), s.logger)
	providerHandler := handler.NewAIProviderHandler(providerService, s.logger)
	settingsHandler := handler.NewSettingsHandler(
		service.NewSettingsService(s.db, s.logger), s.logger)

	s.router.Get("/healthz", s.handleHealth)

	if google != nil {
		s.router.Get("/auth/google/login", authHandler.HandleGoogleLogin)
		s.router.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
	}

	s.router.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authenticator.RequireAuth)

			r.Post("/auth/logout", authHandler.HandleLogout)
			r.Get("/me", authHandler.HandleMe)

			r.Route("/snippets", func(r chi.Router) {
				r.Get("/", snippetHandler.HandleList)
				r.Post("/", snippetHandler.HandleCreate)
				r.Get("/search", snippetHandler.HandleSearch)
				r.Get("/filter", snippetHandler.HandleFilter)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", snippetHandler.HandleGet)
					r.Patch("/", snippetHandler.HandleUpdate)
					r.Delete("/", snippetHandler.HandleDelete)

					r.Get("/messages", messageHandler.HandleList)
					r.Post("/messages", messageHandler.HandleCreate)

					r.Get("/tags", tagHandler.HandleListForSnippet)
					r.Put("/tags/{tagId}", tagHandler.HandleAttach)
					r.Delete("/tags/{tagId}", tagHandler.HandleDetach)
				})
			})

			r.Patch("/messages/{id}", messageHandler.HandleUpdate)
			r.Delete("/messages/{id}", messageHandler.HandleDelete)

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", tagHandler.HandleList)
				r.Post("/", tagHandler.HandleCreate)
				r.Patch("/{id}", tagHandler.HandleUpdate)
				r.Delete("/{id}", tagHandler.HandleDelete)
			})

			r.Route("/ai-providers", func(r chi.Router) {
				r.Get("/", providerHandler.HandleList)
				r.Post("/", providerHandler.HandleCreate)
				r.Get("/defaults", providerHandler.HandleDefaults)
				r.Post("/defaults", providerHandler.HandleEnsureDefaults)
				r.Get("/active", providerHandler.HandleActive)
				r.Put("/{id}", providerHandler.HandleUpdate)
				r.Delete("/{id}", providerHandler.HandleDelete)
				r.Put("/{id}/active", providerHandler.HandleToggleActive)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", settingsHandler.HandleGet)
				r.Patch("/", settingsHandler.HandleUpdate)
				r.Put("/user-name", settingsHandler.HandleUserName)
				r.Put("/display-mode", settingsHandler.HandleDisplayMode)
				r.Post("/custom-ais", settingsHandler.HandleAddCustomAI)
				r.Delete("/custom-ais/{name}", settingsHandler.HandleRemoveCustomAI)
			})
		})
	})

	return nil
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}

// Handler exposes the router, for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and the revocation store.
func (s *Server) Close() error {
	var errs []error
	if closer, ok := s.revoker.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully: stop
// accepting connections, give in-flight requests 30 seconds, close the
// database (flushes the WAL and releases the file lock).
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Listen,
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
			slog.String("listen", s.config.Listen),
			slog.String("database", s.config.Database.Path),
			slog.Bool("google", s.config.Auth.Google.Enabled()),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
