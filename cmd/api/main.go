package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spindit/locker-service/internal/api/http"
	"github.com/spindit/locker-service/internal/api/http/handlers"
	"github.com/spindit/locker-service/internal/auth"
	"github.com/spindit/locker-service/internal/blob"
	"github.com/spindit/locker-service/internal/config"
	"github.com/spindit/locker-service/internal/events"
	"github.com/spindit/locker-service/internal/locking"
	"github.com/spindit/locker-service/internal/observability"
	"github.com/spindit/locker-service/internal/persistence"
	"github.com/spindit/locker-service/internal/persistence/sqlite"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/repository/memory"
	"github.com/spindit/locker-service/internal/seed"
	"github.com/spindit/locker-service/internal/service"
	"github.com/spindit/locker-service/internal/validation"
	"github.com/spindit/locker-service/internal/worker"
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

	metrics := observability.NewMetrics()
	readiness := map[string]handlers.Pinger{}
	store, closeStore := openStore(ctx, cfg, logger, metrics, readiness)
	defer closeStore()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	var locks locking.Manager = locking.NewInProcess()
	if redis != nil {
		locks = locking.NewRedis(redis.Handle())
		readiness["redis"] = redis
	}

	blobs := openBlobs(ctx, cfg, logger)

	dispatcher := events.NewInMemoryDispatcher()
	validator := validation.New()

	if cfg.Seed.DemoData {
		if _, err := seed.ZonesAndLockers(ctx, store, cfg.Seed.LockerCount, logger); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Store:      store,
		Locks:      locks,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Config:     cfg.Assignment,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		Store:       store,
		Assignments: assignmentService,
		Dispatcher:  dispatcher,
		Validator:   validator,
		Logger:      logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:  store.Users,
		Validator: validator,
		Logger:    logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		Store:      store,
		Validator:  validator,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	zoneService := service.NewZoneService(service.ZoneDependencies{
		Store:          store,
		Blobs:          blobs,
		Validator:      validator,
		Logger:         logger,
		PresignTTL:     cfg.Blob.PresignTTL(),
		MaxUploadBytes: int64(cfg.Blob.MaxUploadBytes),
	})
	lockerService := service.NewLockerService(service.LockerDependencies{
		Store:     store,
		Validator: validator,
		Logger:    logger,
	})
	childService := service.NewChildService(store.Children, validator)
	dashboardService := service.NewDashboardService(store, redis.Handle(), logger)
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Notification,
	})

	worker.Start(logger, map[string]worker.Subscriber{
		"assignments":   assignmentService,
		"notifications": notificationService,
	})

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Users)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	routes := httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Zones:          handlers.NewZonesHandler(zoneService),
		Lockers:        handlers.NewLockersHandler(lockerService),
		Requests:       handlers.NewRequestsHandler(requestService, assignmentService),
		StaffRequests:  handlers.NewStaffRequestsHandler(requestService, assignmentService),
		Children:       handlers.NewChildrenHandler(childService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		Metrics:        metrics.Handler(),
		AuthMiddleware: authMiddleware,
	}
	if cfg.DevTools.Enabled {
		logger.Warn("developer console enabled")
		routes.DevTools = handlers.NewDevToolsHandler(service.NewDevToolsService(authService, requestService, logger))
	}
	httptransport.RegisterRoutes(app, routes)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// openStore connects the configured record store and registers its readiness check.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics, readiness map[string]handlers.Pinger) (*repository.Store, func()) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn("using the in-memory store; data is lost on restart")
		return memory.New().Repositories(), func() {}

	case config.StoreDriverSQLite:
		snapshots, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			logger.Fatal("failed to open sqlite", zap.Error(err))
		}
		mem, err := memory.NewPersistent(ctx, snapshots)
		if err != nil {
			logger.Fatal("failed to load sqlite snapshot", zap.Error(err))
		}
		logger.Info("using the sqlite store", zap.String("path", snapshots.Path()))
		readiness["sqlite"] = snapshots
		return mem.Repositories(), func() { _ = snapshots.Close() }

	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		if err := pg.RegisterMetrics(metrics.Registry()); err != nil {
			logger.Warn("postgres pool metrics not registered", zap.Error(err))
		}
		readiness["postgres"] = pg
		return repository.NewPostgresStore(pg.PoolHandle()), pg.Close
	}
}

func openBlobs(ctx context.Context, cfg *config.Config, logger *zap.Logger) blob.Store {
	if cfg.Blob.Driver != config.BlobDriverS3 {
		return blob.NewMemory()
	}
	s3, err := blob.NewS3(ctx, blob.S3Config{
		Region:    cfg.Blob.Region,
		Bucket:    cfg.Blob.Bucket,
		Endpoint:  cfg.Blob.Endpoint,
		PathStyle: cfg.Blob.UsePathStyle,
	})
	if err != nil {
		logger.Fatal("failed to init s3 blob store", zap.Error(err))
	}
	return s3
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
