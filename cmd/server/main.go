package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/p-n-ai/pai-tutor/internal/api"
	"github.com/p-n-ai/pai-tutor/internal/attempt"
	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/feedback"
	"github.com/p-n-ai/pai-tutor/internal/platform/cache"
	"github.com/p-n-ai/pai-tutor/internal/platform/config"
	"github.com/p-n-ai/pai-tutor/internal/platform/database"
	"github.com/p-n-ai/pai-tutor/internal/platform/metrics"
	"github.com/p-n-ai/pai-tutor/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting",
			"addr", srv.Addr,
			"store", cfg.Store.Driver,
			"subtopics", a.graph.Len(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	// Live feeds are hijacked connections that Shutdown does not wait for.
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// app is the wired process: every collaborator the HTTP API serves.
type app struct {
	graph   *curriculum.Graph
	hub     *api.Hub
	handler http.Handler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{hub: api.NewHub()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.graph, err = loadCurriculum(cfg.CurriculumPath)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	events := attempt.MultiEventLogger{a.hub}
	var checks []api.ReadyCheck

	var store attempt.Store
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks = append(checks, api.ReadyCheck{Name: "database", Check: db.HealthCheck})

		if cfg.Database.AutoMigrate {
			if _, err := database.Migrate(ctx, db.Pool); err != nil {
				return nil, err
			}
		}
		pg, err := attempt.NewPostgresStore(db.Pool)
		if err != nil {
			return nil, err
		}
		store = pg
		events = append(events, attempt.NewPostgresEventLogger(db.Pool))
	default:
		store = attempt.NewMemoryStore()
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RateLimit.Submits > 0 {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Submits, cfg.RateLimit.Window())
	}
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { c.Close() })
		checks = append(checks, api.ReadyCheck{Name: "cache", Check: c.HealthCheck})

		if cfg.RateLimit.Submits > 0 {
			limiter, err = ratelimit.NewRedisLimiter(c.Client, cfg.RateLimit.Submits, cfg.RateLimit.Window())
			if err != nil {
				return nil, err
			}
		}
	}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("pai-tutor"), nats.MaxReconnects(-1))
		if err != nil {
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}
		a.closers = append(a.closers, func() { nc.Drain() })
		checks = append(checks, api.ReadyCheck{Name: "nats", Check: func(context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("nats status %s", nc.Status())
			}
			return nil
		}})

		publisher, err := attempt.NewNATSEventLogger(nc, cfg.NATS.Subject)
		if err != nil {
			return nil, err
		}
		events = append(events, publisher)
	}

	recorder := attempt.NewRecorder(attempt.RecorderConfig{
		Graph:    a.graph,
		Store:    store,
		Events:   events,
		Metrics:  m,
		Feedback: feedback.NewComposer(cfg.Feedback.Language),
	})

	a.handler = api.New(api.Config{
		Graph:    a.graph,
		Recorder: recorder,
		Store:    store,
		Limiter:  limiter,
		Metrics:  m,
		Hub:      a.hub,
		Checks:   checks,
	}).Handler()
	a.closers = append(a.closers, a.hub.Close)

	return a, nil
}

func loadCurriculum(path string) (*curriculum.Graph, error) {
	if path == "" {
		return curriculum.Default()
	}
	g, err := curriculum.LoadDir(path)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum from %s: %w", path, err)
	}
	return g, nil
}
