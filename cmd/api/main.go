package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/staffdesk/internal/api/http"
	"github.com/spec-kit/staffdesk/internal/api/http/handlers"
	"github.com/spec-kit/staffdesk/internal/auth"
	"github.com/spec-kit/staffdesk/internal/config"
	"github.com/spec-kit/staffdesk/internal/events"
	"github.com/spec-kit/staffdesk/internal/observability"
	"github.com/spec-kit/staffdesk/internal/persistence"
	"github.com/spec-kit/staffdesk/internal/repository"
	"github.com/spec-kit/staffdesk/internal/service"
	"github.com/spec-kit/staffdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.Migrate(ctx, pg.PoolHandle(), "migrations", logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var credRepo repository.CredentialRepository
	if pool := pg.PoolHandle(); pool != nil {
		credRepo = repository.NewCredentialRepository(pool)
	} else {
		logger.Warn("no postgres pool; using in-memory credential store")
		credRepo = repository.NewInMemoryCredentialStore()
	}

	dispatcher := events.NewInMemoryDispatcher()
	authService := service.NewAuthService(*cfg, credRepo, dispatcher)
	staffService := service.NewStaffService(credRepo)
	auditService := service.NewAuditService(dispatcher, redis, logger, cfg.Audit)
	worker.StartAuditWorker(auditService)

	gateway := auth.NewGateway(authService.TokenManager(), credRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService, cfg.App.IsProduction())
	staffHandler := handlers.NewStaffHandler(authService, staffService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  healthHandler,
		Auth:    authHandler,
		Staff:   staffHandler,
		Gateway: gateway,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
