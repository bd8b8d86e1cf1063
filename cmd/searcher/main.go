// Command searcher serves query evaluation over HTTP.
//
// Usage:
//
//	searcher [--config configs/development.yaml] [--port 8080]
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
	"time"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/setup"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/middleware"
)

func main() {
	fs := pflag.NewFlagSet("searcher", pflag.ExitOnError)
	configPath := fs.String("config", "configs/development.yaml", "path to config file")
	port := fs.Int("port", 0, "listen port (overrides config)")
	indexPath := fs.String("index", "", "segment file (overrides config)")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *indexPath != "" {
		cfg.Index.Path = *indexPath
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "model", cfg.Retrieval.Algorithm)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	c, err := setup.Open(ctx, cfg, "searcher:", m)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	checker := health.NewChecker()
	c.RegisterHealth(checker)

	h := handler.New(c.Executor, c.Params, c.Cache, c.Tracker(), cfg.Tracing.Enabled)
	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	stack := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Metrics(m, "/api/v1/search", "/api/v1/parse", "/api/v1/cache/stats",
			"/api/v1/cache/invalidate", "/health/live", "/health/ready", "/metrics"),
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		stack = append(stack, middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...)))
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.Run(ctx, 5*time.Minute)
		stack = append(stack, middleware.RateLimit(limiter))
		slog.Info("rate limiting enabled", "per_minute", cfg.Server.RateLimit)
	}
	stack = append(stack, middleware.Timeout(cfg.Server.WriteTimeout))
	chain := middleware.Chain(mux, stack...)

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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
