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

	"github.com/starford/notelog/internal/api"
	"github.com/starford/notelog/internal/index"
	"github.com/starford/notelog/internal/mcpserver"
	"github.com/starford/notelog/internal/noteservice"
	"github.com/starford/notelog/internal/sse"
	"github.com/starford/notelog/internal/storage"
)

// Components are the opened notes directory, index and service.
type Components struct {
	Store   storage.Provider
	DB      *index.DB
	Service *noteservice.Service
}

// Close releases the index connection.
func (c *Components) Close() error {
	return c.DB.Close()
}

// Open prepares the notes directory and index described by cfg and brings
// the index up to date.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...noteservice.Option) (*Components, error) {
	sch, err := cfg.Schema()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Notes.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create notes dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Notes.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	opts = append([]noteservice.Option{noteservice.WithFuzzyThreshold(cfg.Query.FuzzyThreshold)}, opts...)
	svc := noteservice.NewService(sch, store, db, logger, opts...)
	if err := svc.Sync(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sync index: %w", err)
	}
	return &Components{Store: store, DB: db, Service: svc}, nil
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("notes_dir", cfg.Notes.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("fields", len(cfg.Fields)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// API writes notify directly; the watcher reports edits made elsewhere.
	c, err := Open(ctx, cfg, logger, noteservice.WithNotifier(broker.PublishNoteEvent))
	if err != nil {
		return err
	}
	defer c.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(logger))
	r.Use(middleware.Recoverer)

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

	r.Mount("/api", api.NewRouter(c.Service, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := index.Watch(gCtx, c.DB, c.Store, cfg.Notes.Dir, logger, broker.PublishNoteEvent)
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
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

// RunMCP serves the MCP tools over stdin/stdout. Logs go to stderr since
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}

	c, err := Open(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return index.Watch(gCtx, c.DB, c.Store, app.config.Notes.Dir, logger, nil)
	})
	g.Go(func() error {
		// The watcher stops once the client closes stdin.
		defer cancel()
		return mcpserver.New(c.Service, c.Store).ServeStdio()
	})
	return g.Wait()
}
