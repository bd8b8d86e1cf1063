// Command analytics consumes query events from Kafka, aggregates them in
// memory and serves the aggregate over HTTP. With Postgres enabled the
// aggregate is snapshotted periodically and restored on start.
//
// Usage:
//
//	analytics [--config configs/development.yaml] [--port 8081]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/postgres"
)

func main() {
	fs := pflag.NewFlagSet("analytics", pflag.ExitOnError)
	configPath := fs.String("config", "configs/development.yaml", "path to config file")
	port := fs.Int("port", 0, "listen port (overrides config)")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	checker := health.NewChecker()

	var (
		snapshots analytics.SnapshotLister
		saved     <-chan struct{}
	)
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		store := aggregator.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create snapshot table", "error", err)
			os.Exit(1)
		}
		latest, err := store.LatestSnapshot(ctx)
		switch {
		case err != nil:
			slog.Warn("could not restore analytics snapshot", "error", err)
		case latest != nil:
			agg.Restore(*latest)
			slog.Info("analytics restored from snapshot", "total_queries", latest.TotalQueries)
		}
		saved = store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		snapshots = store
		checker.Register("postgres", health.Ping(db.DB.PingContext, health.StatusDegraded))
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents, analytics.HandleEvent(agg))
	defer consumer.Close()
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("query event consumer stopped", "error", err)
		}
	}()
	slog.Info("consuming query events", "topic", cfg.Kafka.Topics.QueryEvents, "group", cfg.Kafka.ConsumerGroup)

	m := metrics.New()
	h := analytics.NewHandler(agg, snapshots)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", h.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics(m, "/api/v1/analytics", "/api/v1/analytics/snapshots", "/health/live", "/health/ready", "/metrics"),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	if saved != nil {
		<-saved
	}
	slog.Info("analytics service stopped")
}
