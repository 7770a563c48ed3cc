package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillskit/skills-server/internal/api"
	"github.com/skillskit/skills-server/internal/cards"
	"github.com/skillskit/skills-server/internal/cloud"
	"github.com/skillskit/skills-server/internal/config"
	"github.com/skillskit/skills-server/internal/db"
	"github.com/skillskit/skills-server/internal/dedup"
	"github.com/skillskit/skills-server/internal/handlers"
	"github.com/skillskit/skills-server/internal/invocation"
	"github.com/skillskit/skills-server/internal/ledger"
	"github.com/skillskit/skills-server/internal/logging"
	"github.com/skillskit/skills-server/internal/skills"
	"github.com/skillskit/skills-server/internal/vision"
)

const (
	shutdownTimeout = 30 * time.Second
	cloudTimeout    = 60 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting skills server",
		"version", config.Version,
		"commit", config.GitCommit,
		"data_dir", cfg.DataDir(),
		"dry_run", cfg.DryRun(),
		"async", cfg.Async(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.Open(ctx, cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := ledger.NewRepository(database.Conn())
	checks := map[string]api.HealthCheck{"db": database.Ping}

	guard, closeGuard := newGuard(ctx, cfg, logger, checks)
	defer closeGuard()

	provider, err := vision.NewRekognition(vision.Config{
		Region:   cfg.AWSRegion(),
		Endpoint: cfg.AWSEndpoint(),
	}, logging.WithComponent(logger, "vision"))
	if err != nil {
		return fmt.Errorf("failed to initialize vision provider: %w", err)
	}

	registry := handlers.Builtin(provider, cfg)
	logger.Info("skills registered", "skills", registry.Names())

	httpClient := &http.Client{Timeout: cloudTimeout}
	factory := cloud.HTTPFactory(cfg.APIBaseURL(), httpClient, logging.WithComponent(logger, "cloud"))
	if cfg.DryRun() {
		factory = cloud.DryRunFactory(factory, logging.WithComponent(logger, "cloud"))
	}

	processor := invocation.New(registry, factory,
		invocation.WithGuard(guard),
		invocation.WithLedger(repo),
		invocation.WithEventParser(skills.EventParser{APIBaseURL: cfg.APIBaseURL()}),
		invocation.WithPollPolicy(skills.PollPolicy{
			Interval:    cfg.PollInterval(),
			MaxAttempts: cfg.PollMaxAttempts(),
			Timeout:     cfg.PollTimeout(),
		}),
		invocation.WithThumbnailer(cards.NewThumbnailer(nil)),
		invocation.WithTimeout(cfg.InvocationTimeout()),
		invocation.WithAsync(cfg.Async()),
		invocation.WithLogger(logger),
	)

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Processor:  processor,
		Ledger:     repo,
		Skills:     registry.Names(),
		AdminToken: cfg.AdminToken(),
		Checks:     checks,
		Version:    config.Version,
		Logger:     logger,
		StartTime:  startTime,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if err := processor.Wait(shutdownCtx); err != nil {
		logger.Warn("background invocations still running at shutdown", "error", err)
	}
	cancel()

	logger.Info("shutdown complete")
	return nil
}

// newGuard returns a redis guard when SKILLS_REDIS_ADDR is set, otherwise
// an in-process one.
func newGuard(ctx context.Context, cfg config.Config, logger *slog.Logger, checks map[string]api.HealthCheck) (dedup.Guard, func()) {
	if cfg.RedisAddr() == "" {
		logger.Info("using in-memory dedup guard")
		return dedup.NewMemoryGuard(cfg.DedupTTL()), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword(),
		DB:       cfg.RedisDB(),
	})
	guard := dedup.NewRedisGuard(rdb, cfg.DedupTTL())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := guard.Ping(pingCtx); err != nil {
		// Claims fail open, so the server still processes events.
		logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr(), "error", err)
	} else {
		logger.Info("using redis dedup guard", "addr", cfg.RedisAddr())
	}

	checks["redis"] = guard.Ping
	return guard, func() {
		if err := guard.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
}
