// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/indexsync/internal/api"
	"github.com/starford/indexsync/internal/apperr"
	"github.com/starford/indexsync/internal/cliout"
	"github.com/starford/indexsync/internal/mcpserver"
	"github.com/starford/indexsync/internal/models"
	"github.com/starford/indexsync/internal/sse"
	"github.com/starford/indexsync/internal/syncservice"
	"github.com/starford/indexsync/internal/target"
	"github.com/starford/indexsync/internal/watch"
)

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

func (a *application) check() error {
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if err := app.check(); err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_path", cfg.Content.Path),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("watch_target", cfg.Watch.Target),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := build(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.Close()

	apiRouter := api.NewRouter(c.service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", readyHandler(c))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Republish watch.target after content changes. Requests that arrive
	// while another run holds the gate wait for it.
	var rep *syncservice.Republisher
	if cfg.Watch.Target != "" {
		rep = c.service.Republisher(cfg.Watch.Target)
		g.Go(func() error { return rep.Run(gCtx) })
	}

	// Watch the content tree; changes are announced and optionally republished.
	g.Go(func() error {
		err := watch.Watch(gCtx, c.root, cfg.Watch.Debounce, logger, func(_ context.Context, changes []watch.Change) {
			paths := make([]string, len(changes))
			for i, ch := range changes {
				paths[i] = ch.Path
			}
			broker.PublishContentChanged(paths...)
			if rep != nil {
				rep.Request()
			}
		})
		if err != nil {
			logger.Warn("content watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

func readyHandler(c *components) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.tree.Root(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"content root unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// Publish runs one reconciliation against rawTarget and prints its progress
// lines as they happen.
func Publish(ctx context.Context, rawTarget string, override *models.Override, dryRun bool, opts ...Option) error {
	app := newApplication(opts)
	if err := app.check(); err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config)
	c, err := build(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	return publishOnce(ctx, c, cliout.NewPrinter(app.out), rawTarget, override, dryRun)
}

func publishOnce(ctx context.Context, c *components, out *cliout.Printer, rawTarget string, override *models.Override, dryRun bool) error {
	p, req, err := c.request(rawTarget)
	if err != nil {
		out.Error(err)
		return err
	}
	req.Override = override
	req.DryRun = dryRun
	for line, err := range target.Stream(ctx, p, *req) {
		if err != nil {
			out.Error(err)
			return err
		}
		out.Line(line)
	}
	return nil
}

// Watch publishes rawTarget once and again after every batch of content
// changes until ctx is cancelled. Failed runs are reported and watching
// continues.
func Watch(ctx context.Context, rawTarget string, override *models.Override, opts ...Option) error {
	app := newApplication(opts)
	if err := app.check(); err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(os.Stderr, cfg)
	c, err := build(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	out := cliout.NewPrinter(app.out)
	if err := publishOnce(ctx, c, out, rawTarget, override, false); errors.Is(err, apperr.ErrInvalidTarget) {
		return err
	}

	err = watch.Watch(ctx, c.root, cfg.Watch.Debounce, logger, func(ctx context.Context, changes []watch.Change) {
		out.Line(fmt.Sprintf("%d content changes, republishing %s.", len(changes), rawTarget))
		_ = publishOnce(ctx, c, out, rawTarget, override, false)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// History prints the most recent journaled runs.
func History(ctx context.Context, limit int, opts ...Option) error {
	app := newApplication(opts)
	if err := app.check(); err != nil {
		return err
	}
	c, err := build(app.config, newLogger(os.Stderr, app.config), nil)
	if err != nil {
		return err
	}
	defer c.Close()
	if c.journal == nil {
		return errNoJournal
	}

	runs, err := c.service.Runs(ctx, limit)
	if err != nil {
		return err
	}
	cliout.NewPrinter(app.out).Runs(runs)
	return nil
}

// Records prints the records a publish would upsert, one JSON object per line.
func Records(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if err := app.check(); err != nil {
		return err
	}
	c, err := build(app.config, newLogger(os.Stderr, app.config), nil)
	if err != nil {
		return err
	}
	defer c.Close()

	recs, err := c.service.Records(ctx)
	if err != nil {
		return err
	}
	return cliout.NewPrinter(app.out).Records(recs)
}

// ServeMCP serves the MCP tools on stdin/stdout until the client disconnects.
func ServeMCP(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	if err := app.check(); err != nil {
		return err
	}
	// stdout carries the protocol; logs go to stderr.
	logger := newLogger(os.Stderr, app.config)
	c, err := build(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(c.service, app.version).ServeStdio()
}
