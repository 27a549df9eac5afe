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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sift/internal/api"
	"github.com/starford/sift/internal/cache"
	"github.com/starford/sift/internal/index"
	"github.com/starford/sift/internal/mcpserver"
	"github.com/starford/sift/internal/monitor"
	"github.com/starford/sift/internal/noteservice"
	"github.com/starford/sift/internal/query"
	"github.com/starford/sift/internal/search"
	"github.com/starford/sift/internal/sse"
	"github.com/starford/sift/internal/storage"
)

// components is everything both run modes share.
type components struct {
	logger   *slog.Logger
	store    *storage.FS
	db       *index.DB
	cache    *cache.Store
	broker   *sse.Broker
	svc      *noteservice.Service
	registry *prometheus.Registry
}

func (c *components) close() {
	c.broker.Close()
	c.cache.Close()
	if err := c.db.Close(); err != nil {
		c.logger.Warn("close index", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// bootstrap opens the vault and the index, runs the initial sync and wires
// the cache, monitor and note service together.
func bootstrap(ctx context.Context, app *application) (*components, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("cache_max_size", cfg.Cache.MaxSize),
		slog.Duration("cache_ttl", cfg.Cache.DefaultTTL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if _, err := index.Sync(ctx, db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	qc := cache.New(cfg.Cache.Store(), cache.WithRegisterer(reg))
	mon := monitor.New(cfg.Monitor.Monitor(),
		monitor.WithLogger(logger),
		monitor.WithRegisterer(reg))
	exec := query.NewExecutor(qc, mon, cfg.Cache.QueryTTL, logger)

	engine := search.NewEngine(
		search.WithMaxKeywords(cfg.Search.MaxKeywords),
		search.WithKeywordCacheSize(cfg.Search.KeywordCacheSize),
	)

	broker := sse.NewBroker(sse.WithLogger(logger))

	svc := noteservice.New(store, db, exec,
		noteservice.WithEngine(engine),
		noteservice.WithEvents(broker),
		noteservice.WithWriteLimit(cfg.Write.RatePerSecond, cfg.Write.Burst),
		noteservice.WithDefaults(cfg.Search.Defaults()),
		noteservice.WithLogger(logger),
	)

	return &components{
		logger:   logger,
		store:    store,
		db:       db,
		cache:    qc,
		broker:   broker,
		svc:      svc,
		registry: reg,
	}, nil
}

// watch keeps the index in step with edits made outside sift.
func (c *components) watch(ctx context.Context) error {
	err := index.Watch(ctx, c.db, c.store, c.store.Root(), c.logger, c.svc.HandleExternalChange)
	if err != nil {
		// Reads still work against the synced index.
		c.logger.Error("watcher failed", slog.String("error", err.Error()))
	}
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	c, err := bootstrap(ctx, app)
	if err != nil {
		return err
	}
	defer c.close()
	logger := c.logger

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(c, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.watch(gCtx)
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
		waitForShutdown(gCtx, logger)

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// SSE streams never finish on their own.
		c.broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr unless
// WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	if app.logOutput == os.Stdout {
		return fmt.Errorf("mcp: stdout is reserved for the protocol stream")
	}

	c, err := bootstrap(ctx, app)
	if err != nil {
		return err
	}
	defer c.close()

	srv := mcpserver.New(c.svc, app.version, c.logger)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.watch(gCtx)
	})
	g.Go(func() error {
		c.logger.Info("MCP server listening on stdio")
		err := srv.ServeStdio(gCtx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			return fmt.Errorf("mcp: %w", err)
		}
		// stdin closed: the client is gone.
		return context.Canceled
	})
	g.Go(func() error {
		waitForShutdown(gCtx, c.logger)
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	c.logger.Info("MCP server stopped")
	return nil
}

func waitForShutdown(ctx context.Context, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, initiating shutdown")
	}
}

// newHTTPHandler builds the root router: health and metrics endpoints are
// unauthenticated, everything under /api goes through the auth middleware.
func newHTTPHandler(c *components, cfg *Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	r.Mount("/api", api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker))

	if len(cfg.App.CORSOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.App.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "If-Match"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: true,
	}).Handler(r)
}
