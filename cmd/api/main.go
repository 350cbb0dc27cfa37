package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/post-scheduler/internal/api/http"
	"github.com/spec-kit/post-scheduler/internal/api/http/handlers"
	"github.com/spec-kit/post-scheduler/internal/auth"
	"github.com/spec-kit/post-scheduler/internal/config"
	"github.com/spec-kit/post-scheduler/internal/observability"
	"github.com/spec-kit/post-scheduler/internal/persistence"
	"github.com/spec-kit/post-scheduler/internal/realtime"
	"github.com/spec-kit/post-scheduler/internal/repository"
	"github.com/spec-kit/post-scheduler/internal/service"
	"github.com/spec-kit/post-scheduler/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	clock := clockwork.NewRealClock()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	liveRegistry := realtime.NewRegistry(tokens, logger, metrics)
	liveEndpoint := realtime.NewEndpoint(liveRegistry, logger)

	postRepo := repository.NewPostRepository(pg.PoolHandle())
	scanStatus := repository.NewScanStatusStore(redis.Client)

	postService := service.NewPostService(postRepo, clock)
	publishService := service.NewPublishService(postRepo, liveRegistry, logger)

	scheduler := worker.NewScheduler(clock, cfg.Scheduler.Interval(), cfg.Scheduler.ScanTimeout(), logger)
	if cfg.Scheduler.Enabled {
		worker.StartPublishWorker(scheduler, worker.PublishWorkerDeps{
			Publisher: publishService,
			Status:    scanStatus,
			Metrics:   metrics,
			Clock:     clock,
			Logger:    logger,
		})
	} else {
		logger.Info("publish scheduler disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env != "development",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, scanStatus, liveRegistry.Len),
		Posts:          handlers.NewPostsHandler(postService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Live:           liveEndpoint,
		Transport: realtime.TransportConfig{
			WriteTimeout:   cfg.Realtime.WriteTimeout(),
			AllowedOrigins: cfg.Realtime.AllowedOrigins,
		},
		Gatherer: registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	scheduler.Stop()
	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
