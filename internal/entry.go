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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/hooktriage/internal/api"
	"github.com/starford/hooktriage/internal/apperr"
	"github.com/starford/hooktriage/internal/credential"
	"github.com/starford/hooktriage/internal/github"
	"github.com/starford/hooktriage/internal/index"
	"github.com/starford/hooktriage/internal/ledger"
	"github.com/starford/hooktriage/internal/mcpserver"
	"github.com/starford/hooktriage/internal/parser"
	"github.com/starford/hooktriage/internal/pipeline"
	"github.com/starford/hooktriage/internal/publish"
	"github.com/starford/hooktriage/internal/sse"
	"github.com/starford/hooktriage/internal/triage"
)

// components are the collaborators shared by every entry point.
type components struct {
	cfg     *Config
	logger  *slog.Logger
	ledger  *ledger.Ledger
	service *pipeline.Service
}

func newApplication(defaultLog io.Writer, opts []Option) (*application, error) {
	app := &application{logOutput: defaultLog}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// build opens the ledger and wires the triage pipeline.
func (a *application) build(logger *slog.Logger) (*components, error) {
	cfg := a.config

	root, err := ExpandHome(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(root)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	tokens := credential.New(cfg.GitHub.Token, cfg.GitHub.TokenCommand)

	fetcher := a.fetcher
	if fetcher == nil {
		client, err := github.NewClient(github.Config{
			BaseURL: cfg.GitHub.BaseURL,
			Owner:   cfg.GitHub.Owner,
			Repo:    cfg.GitHub.Repo,
			Tokens:  tokens,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init github client: %w", err)
		}
		fetcher = client
	}

	svcOpts := []pipeline.Option{pipeline.WithLogger(logger)}
	switch {
	case a.publisher != nil:
		svcOpts = append(svcOpts, pipeline.WithPublisher(a.publisher))
	case cfg.Publish.Enabled:
		svcOpts = append(svcOpts, pipeline.WithPublisher(publish.New(publish.Config{
			Root:         l.Root(),
			ViewsCommand: cfg.Publish.ViewsCommand,
			Remote:       cfg.Publish.Remote,
			Branch:       cfg.Publish.Branch,
			RemoteURL:    cfg.Publish.RemoteURL,
			Tokens:       tokens,
			Logger:       logger,
		})))
	default:
		logger.Info("publication disabled")
	}

	svc := pipeline.New(triage.New(cfg.Agent.Name), fetcher, l, svcOpts...)
	return &components{cfg: cfg, logger: logger, ledger: l, service: svc}, nil
}

// openIndex opens the ledger index and brings it up to date.
func (c *components) openIndex() (*index.DB, error) {
	path, err := ExpandHome(c.cfg.SQLite.Path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if _, err := index.Sync(db, c.ledger, c.logger); err != nil {
		c.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return db, nil
}

// HandleHook runs a single hook message through the pipeline. Logs go to
// stderr unless WithLogOutput says otherwise.
func HandleHook(ctx context.Context, message string, opts ...Option) (*pipeline.Outcome, error) {
	app, err := newApplication(os.Stderr, opts)
	if err != nil {
		return nil, err
	}
	// A parse gap is reported before the ledger or the fetcher is touched.
	if intent := parser.Parse(message); !intent.HasIssue() {
		return &pipeline.Outcome{Intent: intent}, apperr.ErrNoIssueNumber
	}
	c, err := app.build(app.newLogger())
	if err != nil {
		return nil, err
	}
	return c.service.Handle(ctx, message)
}

// TailLedger returns the last n ledger lines.
func TailLedger(n int, opts ...Option) ([]ledger.Line, error) {
	app, err := newApplication(os.Stderr, opts)
	if err != nil {
		return nil, err
	}
	root, err := ExpandHome(app.config.Ledger.Path)
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(root)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return l.Tail(n)
}

// SearchLedger syncs the index and runs a full-text query against it.
func SearchLedger(query string, limit int, opts ...Option) ([]index.SearchResult, error) {
	app, err := newApplication(os.Stderr, opts)
	if err != nil {
		return nil, err
	}
	c, err := app.build(app.newLogger())
	if err != nil {
		return nil, err
	}
	db, err := c.openIndex()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.Search(query, limit)
}

// ServeMCP serves the MCP tools on stdio until the client disconnects.
// Logs go to stderr because stdout carries the protocol.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()
	c, err := app.build(logger)
	if err != nil {
		return err
	}
	db, err := c.openIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("MCP server starting", slog.String("agent", app.config.Agent.Name))
	return mcpserver.New(c.service, db, c.ledger, logger).ServeStdio()
}

// notifyingHooks publishes a hook.handled event after every HTTP-triggered run.
type notifyingHooks struct {
	*pipeline.Service
	broker *sse.Broker
}

func (n notifyingHooks) Handle(ctx context.Context, raw string) (*pipeline.Outcome, error) {
	out, err := n.Service.Handle(ctx, raw)
	data := map[string]any{"ok": err == nil}
	if out != nil {
		data["run_id"] = out.RunID
		data["issue"] = out.Intent.IssueNumber
		data["published"] = out.Published
		if out.Event != nil {
			data["event"] = out.Event.Event
			data["task"] = out.Event.Task
		}
	}
	if err != nil {
		data["error"] = err.Error()
	}
	n.broker.Publish(sse.Event{Type: sse.TypeHookHandled, Data: data})
	return out, err
}

// Run starts the HTTP hook receiver with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.String("agent", cfg.Agent.Name),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("publish", cfg.Publish.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := app.build(logger)
	if err != nil {
		return err
	}

	db, err := c.openIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	hooks := notifyingHooks{Service: c.service, broker: broker}
	apiRouter := api.NewRouter(hooks, db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, err := os.Stat(c.ledger.Root()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"ledger unavailable"}`))
			return
		}
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

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	// Start ledger watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(watchCtx, db, c.ledger, c.ledger.Root(), logger, func(row index.EventRow) {
			broker.PublishLedgerEvent(row.Line, row.LedgerEvent)
		}); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
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
		stopWatch()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
