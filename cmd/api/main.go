package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-escalation-service/internal/api/http"
	"github.com/spec-kit/sla-escalation-service/internal/api/http/handlers"
	"github.com/spec-kit/sla-escalation-service/internal/config"
	"github.com/spec-kit/sla-escalation-service/internal/events"
	"github.com/spec-kit/sla-escalation-service/internal/notification"
	"github.com/spec-kit/sla-escalation-service/internal/observability"
	"github.com/spec-kit/sla-escalation-service/internal/persistence"
	"github.com/spec-kit/sla-escalation-service/internal/repository"
	"github.com/spec-kit/sla-escalation-service/internal/service"
	"github.com/spec-kit/sla-escalation-service/internal/worker"
)

const (
	escalationLeaseKey = "sla-escalation:pass"
	shutdownTimeout    = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	thresholds, err := config.NewThresholdProvider(cfg.SLA.ConfigPath, logger)
	if err != nil {
		logger.Fatal("failed to load sla thresholds", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	uow := repository.NewUnitOfWork(pg.PoolHandle())

	dispatcher := events.NewQueueDispatcher(cfg.Notification.QueueSize, logger)
	hub := notification.NewHub(cfg.Notification.SubscriberBuffer, logger, metrics)
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Webhook:    notification.NewWebhookClient(cfg.Notification),
		Hub:        hub,
		Logger:     logger,
		Metrics:    metrics,
	})
	notifyCtx, stopNotify := context.WithCancel(ctx)
	notifyDone := worker.StartNotificationWorker(notifyCtx, dispatcher, notificationService)

	ingestionService := service.NewIngestionService(service.IngestionDependencies{
		UnitOfWork: uow,
		Logger:     logger,
		Metrics:    metrics,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		UnitOfWork: uow,
		Thresholds: thresholds,
		Notifier:   notificationService,
		Logger:     logger,
		Metrics:    metrics,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		Repositories: uow.Repositories(),
		Logger:       logger,
	})

	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := thresholds.Watch(watchCtx); err != nil {
			logger.Error("sla config watcher failed, thresholds will not hot-reload", zap.Error(err))
		}
	}()

	workerDeps := worker.EscalationWorkerDependencies{
		Escalator: escalationService,
		Interval:  cfg.Scheduler.Interval(),
		Logger:    logger,
	}
	if cfg.Scheduler.UseRedisLock {
		workerDeps.Lease = redis.NewLease(escalationLeaseKey, cfg.Scheduler.LockTTL())
	}
	scheduler := worker.NewEscalationWorker(workerDeps)
	scheduler.Start()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Tickets: handlers.NewTicketsHandler(ingestionService, escalationService, dashboardService),
		Alerts:  handlers.NewAlertsHandler(hub, logger),
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("escalation scheduler did not stop in time", zap.Error(err))
	}
	stopWatch()
	<-watchDone
	stopNotify()
	<-notifyDone
	hub.Close()
	logger.Info("shutdown complete")
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
