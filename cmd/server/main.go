// Command server runs the resilience service: a gRPC service plane over the
// retry policy engine, backed by Redis when configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/mojeeb/resilience-service/internal/config"
	"github.com/mojeeb/resilience-service/internal/domain"
	otelinfra "github.com/mojeeb/resilience-service/internal/infra/otel"
	redisinfra "github.com/mojeeb/resilience-service/internal/infra/redis"
	"github.com/mojeeb/resilience-service/internal/observability"
	"github.com/mojeeb/resilience-service/internal/policy"
	"github.com/mojeeb/resilience-service/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("starting resilience service",
		slog.String("service", cfg.OTEL.ServiceName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var emitter domain.EventEmitter = observability.NewLogEmitter(logger)
	if cfg.OTEL.Endpoint != "" {
		provider, err := otelinfra.NewProvider(ctx, otelinfra.Config{
			ServiceName: cfg.OTEL.ServiceName,
			Endpoint:    cfg.OTEL.Endpoint,
			Insecure:    cfg.OTEL.Insecure,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
			}
		}()

		meter := otel.Meter(cfg.OTEL.ServiceName)
		otelEmitter, err := observability.NewOTelEmitter(provider.Tracer(), meter, logger)
		if err != nil {
			return fmt.Errorf("init emitter: %w", err)
		}
		emitter = otelEmitter
	}
	observability.SetDefault(emitter)

	var (
		repo     domain.PolicyRepository
		checkers []server.HealthChecker
	)
	if cfg.Redis.URL != "" {
		redisRepo, err := redisinfra.NewRepository(ctx, redisinfra.Config{
			URL:      cfg.Redis.URL,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisRepo.Close()
		repo = redisinfra.NewCachedRepository(redisRepo, cfg.Retry.CacheTTL.Std())
		checkers = append(checkers, redisRepo)
	} else {
		logger.Info("no redis configured, using in-memory policy repository")
		repo = policy.NewMemoryRepository()
	}

	engine := policy.NewEngine(cfg.Retry.Default.Policy())
	if err := engine.LoadFrom(ctx, repo); err != nil {
		return fmt.Errorf("load policies: %w", err)
	}
	logger.Info("policy engine ready",
		slog.Int("policies", len(engine.Names())),
		slog.Int("default_max_attempts", cfg.Retry.Default.MaxAttempts))

	srv := server.New(server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
	}, server.NewHealthServer(checkers...), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		srv.Stop()
		return nil
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
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
