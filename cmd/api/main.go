package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/feedapp/notification-service/internal/config"
	"github.com/feedapp/notification-service/internal/handler"
	"github.com/feedapp/notification-service/internal/infra/postgresql"
	"github.com/feedapp/notification-service/internal/infra/postgresql/migrations"
	"github.com/feedapp/notification-service/internal/observability"
	"github.com/feedapp/notification-service/internal/queue"
	"github.com/feedapp/notification-service/internal/repository"
	"github.com/feedapp/notification-service/internal/service"
	"github.com/feedapp/notification-service/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	infraredis "github.com/feedapp/notification-service/internal/infra/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger("api", cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer broker.Close()

	publisher := queue.NewRabbitMQPublisher(broker)

	notificationRepo := repository.NewGormNotificationRepo(db)
	deviceRepo := repository.NewGormDeviceRepo(db)

	inboxService, err := service.NewInboxService(notificationRepo, logger)
	if err != nil {
		logger.Fatal("inbox service initialization failed", zap.Error(err))
	}
	deviceService, err := service.NewDeviceService(deviceRepo, logger)
	if err != nil {
		logger.Fatal("device service initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb, broker)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	v1 := app.Group("/v1", handler.JWTAuth(cfg.JWTSecret))
	if err := handler.RegisterNotificationRoutes(v1, inboxService); err != nil {
		logger.Fatal("notification route registration failed", zap.Error(err))
	}
	if err := handler.RegisterDeviceRoutes(v1, deviceService); err != nil {
		logger.Fatal("device route registration failed", zap.Error(err))
	}
	if err := handler.RegisterEventRoutes(v1, publisher); err != nil {
		logger.Fatal("event route registration failed", zap.Error(err))
	}

	go func() {
		logger.Info("notification api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(":" + strconv.Itoa(cfg.APIPort)); err != nil {
			logger.Fatal("api server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutdown signal received")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}
	logger.Info("notification api stopped")
}
