package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/fieldwork-service/internal/api/http"
	"github.com/spec-kit/fieldwork-service/internal/api/http/handlers"
	"github.com/spec-kit/fieldwork-service/internal/auth"
	"github.com/spec-kit/fieldwork-service/internal/config"
	"github.com/spec-kit/fieldwork-service/internal/events"
	"github.com/spec-kit/fieldwork-service/internal/observability"
	"github.com/spec-kit/fieldwork-service/internal/persistence"
	"github.com/spec-kit/fieldwork-service/internal/repository"
	"github.com/spec-kit/fieldwork-service/internal/service"
	"github.com/spec-kit/fieldwork-service/internal/storage"
	"github.com/spec-kit/fieldwork-service/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)
	linkRepo := repository.NewShareLinkRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: userRepo,
		TeamRepo: teamRepo,
	})
	directoryService := service.NewDirectoryService(teamRepo, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		TeamRepo:     teamRepo,
		ProgressRepo: progressRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
	})
	progressService := service.NewProgressService(service.ProgressDependencies{
		TicketRepo:   ticketRepo,
		ProgressRepo: progressRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
	})
	linkService := service.NewLinkService(service.LinkDependencies{
		TicketRepo:   ticketRepo,
		ProgressRepo: progressRepo,
		LinkRepo:     linkRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
		TTL:          cfg.Links.TTL(),
	})
	approvalService := service.NewApprovalService(service.ApprovalDependencies{
		TicketRepo:   ticketRepo,
		ProgressRepo: progressRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
	})

	var photoStore *storage.PhotoStore
	if cfg.Storage.AccessKey != "" {
		photoStore, err = storage.NewPhotoStore(ctx, cfg.Storage)
		if err != nil {
			logger.Fatal("failed to init photo storage", zap.Error(err))
		}
	} else {
		logger.Warn("S3 credentials not provided; photo uploads disabled")
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: 12 << 20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis, cfg.App.Version),
		Auth:           handlers.NewAuthHandler(authService),
		Teams:          handlers.NewTeamsHandler(directoryService),
		Tickets:        handlers.NewTicketsHandler(ticketService, approvalService),
		Progress:       handlers.NewProgressHandler(progressService, linkService, directoryService, photoStore, cfg.Links.PublicBaseURL),
		Share:          handlers.NewShareHandler(linkService),
		AuthMiddleware: authMiddleware,
		LinkLimiter:    httptransport.RateLimiter(redis.Client, cfg.Links.RatePerMinute, logger),
	})

	go func() {
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
