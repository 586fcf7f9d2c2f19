// Package server wires the repositories, services and handlers into the
// HTTP router and runs it with graceful shutdown.
//
// DEPENDENCY INJECTION FLOW:
//
//	cmd/server: config.Load → sqlite.New → storage (local | s3) → server.New
//	server.New: TokenService, PasswordService, GitHubProvider → NewRouter
//	NewRouter:  *sqlite.DB → services → handlers → routes
//
// This is the composition root: it is the only place that knows the
// concrete types. Services see repository interfaces and storage.Store,
// handlers see services, and tests build the same router over an
// in-memory database by calling NewRouter directly.
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

	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/config"
	sqliteRepo "github.com/sakif/foodgram/internal/repository/sqlite"
	"github.com/sakif/foodgram/internal/storage"
)

// Server owns the database connection and closes it on shutdown.
type Server struct {
	handler http.Handler
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
}

// New builds the auth services from cfg and assembles the router.
// GitHub sign-in is wired only when its client credentials are set.
func New(cfg *config.Config, db *sqliteRepo.DB, images storage.Store, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	var github *auth.GitHubProvider
	if cfg.Auth.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.Auth.GitHubCallbackURL)
		logger.Info("github sign-in enabled", slog.String("callback", cfg.Auth.GitHubCallbackURL))
	}

	h := NewRouter(Deps{
		Config:    cfg,
		DB:        db,
		Images:    images,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(cfg.Auth.BcryptCost),
		GitHub:    github,
		Logger:    logger,
	})

	return &Server{handler: h, config: cfg, logger: logger, db: db}, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests
// within the configured shutdown timeout and closes the database.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections.
//  2. Wait for in-flight requests (a recipe write, a shopping list
//     download) to finish, up to server.shutdown_timeout.
//  3. Close the database, which checkpoints the WAL and releases the file.
//
// Skipping step 3 leaves a -wal file next to the database; SQLite replays
// it on the next open, but an orderly close keeps the directory clean.
func (s *Server) Start() error {
	defer s.db.Close()

	sc := s.config.Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", sc.Port),
		Handler:      s.handler,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", sc.Port),
			slog.String("database", s.config.Database.Path),
			slog.String("storage", s.config.Storage.Backend),
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

		ctx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
