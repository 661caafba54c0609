// Package internal provides the main application initialization and runtime logic.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/botpilote/ghlbridge/internal/api"
	"github.com/botpilote/ghlbridge/internal/ghl"
	"github.com/botpilote/ghlbridge/internal/mapping"
	"github.com/botpilote/ghlbridge/internal/match"
	"github.com/botpilote/ghlbridge/internal/resolver"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger unless one was injected.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("ghl_base_url", cfg.GHL.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the mapping store.
	store, err := mapping.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init mapping store: %w", err)
	}
	defer store.Close()

	// Build the upstream client and resolver.
	client := ghl.NewClient(ghl.Options{
		BaseURL:        cfg.GHL.BaseURL,
		LegacyBaseURL:  cfg.GHL.LegacyBaseURL,
		Version:        cfg.GHL.Version,
		AttemptTimeout: cfg.GHL.AttemptTimeoutDuration(),
		MaxRetries:     cfg.GHL.MaxRetries,
	}, logger)
	res := resolver.NewService(client, cfg.GHL.CacheTTLDuration(), logger)

	// Optional vocabulary override, hot-reloaded on file change.
	if cfg.Vocab.Path != "" {
		vocab, err := match.LoadVocabulary(cfg.Vocab.Path)
		if err != nil {
			return fmt.Errorf("load vocabulary: %w", err)
		}
		res.SetVocabulary(vocab)
		logger.Info("Vocabulary override loaded",
			slog.String("path", cfg.Vocab.Path),
			slog.Int("welcome_terms", len(vocab.WelcomeTerms)))
	}

	apiRouter := api.NewRouter(res, store, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Shutdown must cancel this context so the watcher goroutine exits
	// and g.Wait() can return.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the vocabulary file for edits.
	if cfg.Vocab.Path != "" {
		g.Go(func() error {
			err := match.WatchVocabulary(gCtx, cfg.Vocab.Path, logger, func(v match.Vocabulary) {
				res.SetVocabulary(v)
			})
			if err != nil {
				logger.Warn("vocabulary watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
