package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	apihttp "github.com/spec-kit/servicedesk/internal/api/http"
	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	cancel()
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(context.Background(), pg.PoolHandle(), logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("storage client init failed", zap.Error(err))
	}

	pool := pg.PoolHandle()
	adminRepo := repository.NewAdminRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	divisionRepo := repository.NewDivisionRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	itemRepo := repository.NewTicketItemRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	resolver := service.NewResolver(adminRepo, departmentRepo)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.AccessTokenTTLMinutes)*time.Minute)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	otpStore := persistence.NewOTPStore(rdb)
	mailer := service.NewLogMailer(cfg.Mail, logger)

	authService := service.NewAuthService(service.AuthDependencies{
		AdminRepo:    adminRepo,
		CustomerRepo: customerRepo,
		Tokens:       tokens,
		Hasher:       hasher,
		OTPStore:     otpStore,
		Mailer:       mailer,
		Config:       cfg,
		Logger:       logger,
	})
	identityService := service.NewIdentityService(service.IdentityDependencies{
		AdminRepo:    adminRepo,
		CustomerRepo: customerRepo,
		Logger:       logger,
	})
	orgService := service.NewOrgService(service.OrgDependencies{
		DivisionRepo:   divisionRepo,
		DepartmentRepo: departmentRepo,
		AdminRepo:      adminRepo,
		Resolver:       resolver,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		ItemRepo:       itemRepo,
		CustomerRepo:   customerRepo,
		AdminRepo:      adminRepo,
		DepartmentRepo: departmentRepo,
		Dispatcher:     dispatcher,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		AdminRepo:        adminRepo,
		Resolver:         resolver,
		Logger:           logger,
	})
	storageService := service.NewStorageService(minioClient, cfg.Storage, logger)

	if err := storageService.EnsureBucket(context.Background()); err != nil {
		logger.Warn("storage bucket check failed", zap.Error(err))
	}

	notificationWorker := worker.NewNotificationWorker(notificationService, logger, 2, 256)
	notificationWorker.Register(dispatcher)
	notificationWorker.Start()
	defer notificationWorker.Stop()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
		ErrorHandler: apihttp.ErrorHandler(logger, metrics),
	})
	app.Use(observability.RequestLogger(logger, metrics))

	apihttp.RegisterRoutes(app, tokens, apihttp.Handlers{
		Health:       handlers.NewHealthHandler(cfg, pg, rdb, metrics),
		Auth:         handlers.NewAuthHandler(authService),
		Admin:        handlers.NewAdminHandler(identityService),
		Org:          handlers.NewOrgHandler(orgService),
		Ticket:       handlers.NewTicketHandler(ticketService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Upload:       handlers.NewUploadHandler(storageService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
