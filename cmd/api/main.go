package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/fleetops/workorder-service/internal/api/http"
	"github.com/fleetops/workorder-service/internal/api/http/handlers"
	"github.com/fleetops/workorder-service/internal/auth"
	"github.com/fleetops/workorder-service/internal/config"
	"github.com/fleetops/workorder-service/internal/events"
	"github.com/fleetops/workorder-service/internal/observability"
	"github.com/fleetops/workorder-service/internal/persistence"
	"github.com/fleetops/workorder-service/internal/repository"
	"github.com/fleetops/workorder-service/internal/service"
	"github.com/fleetops/workorder-service/internal/sla"
	"github.com/fleetops/workorder-service/internal/worker"
)

const monitorLockKey = "sla:monitor:lock"

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient := persistence.NewRedis(cfg.Redis, logger)
	defer redisClient.Close()

	pool := pg.PoolHandle()
	workOrderRepo := repository.NewWorkOrderRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	policyRepo := repository.NewSlaPolicyRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)

	engine := sla.NewEngine(sla.Config{
		StatusThresholds: cfg.SLA.StatusThresholds,
		WarningThreshold: cfg.SLA.WarningThreshold,
	}, nil)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	policyService := service.NewSlaPolicyService(policyRepo, redisClient, cfg.SLA.PolicyCacheTTL(), logger)
	workOrderService := service.NewWorkOrderService(service.WorkOrderDependencies{
		WorkOrderRepo:        workOrderRepo,
		ActivityRepo:         activityRepo,
		StaffRepo:            staffRepo,
		Policies:             policyService,
		Engine:               engine,
		Dispatcher:           dispatcher,
		Metrics:              metrics,
		Logger:               logger,
		ServiceCenterChannel: cfg.SLA.ServiceCenterChannel,
	})
	authService := service.NewAuthService(*cfg, staffRepo)
	if cfg.Auth.BootstrapAdminEmail != "" {
		admin, created, err := authService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword)
		if err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
		if created {
			logger.Info("bootstrap admin created", zap.String("staff_id", admin.ID))
		}
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)

	lock, err := worker.NewRedisLock(redisClient, monitorLockKey, 2*cfg.SLA.MonitorInterval())
	if err != nil {
		logger.Fatal("failed to init monitor lock", zap.Error(err))
	}
	monitor, err := worker.NewSLAMonitor(worker.SLAMonitorDependencies{
		Orders:     workOrderRepo,
		Activity:   activityRepo,
		Engine:     engine,
		Dispatcher: dispatcher,
		Lock:       lock,
		Dedupe:     redisClient,
		Metrics:    metrics,
		Logger:     logger.Named("sla-monitor"),
	}, worker.SLAMonitorConfig{
		Interval:  cfg.SLA.MonitorInterval(),
		BatchSize: cfg.SLA.MonitorBatchSize,
		DedupeTTL: cfg.SLA.AlertDedupeTTL(),
	})
	if err != nil {
		logger.Fatal("failed to init sla monitor", zap.Error(err))
	}
	monitorDone := worker.Start(ctx, notificationService, monitor)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redisClient,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		WorkOrders:     handlers.NewWorkOrdersHandler(workOrderService),
		SlaPolicies:    handlers.NewSlaPoliciesHandler(policyService),
		AuthMiddleware: authMiddleware.Handle,
		Metrics:        adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-monitorDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
