package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"motoreg/auth"
	"motoreg/config"
	"motoreg/middleware"
	"motoreg/routes"
	"motoreg/services"
	"motoreg/store"
	"motoreg/utils"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig
	utils.InitLogger(cfg.LogLevel, cfg.IsProduction())

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logrus.Warnf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	recordStore, redisClient, err := openStore(cfg)
	if err != nil {
		logrus.Fatalf("Failed to open record store: %v", err)
	}
	defer recordStore.Close()

	ctx := context.Background()
	if _, err := services.EnsureSettings(ctx, recordStore, cfg.DefaultSettings()); err != nil {
		logrus.Fatalf("Failed to seed registration settings: %v", err)
	}

	var notifier services.Notifier = services.NopNotifier{}
	if cfg.SMTP.Enabled() {
		mailer := utils.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.FromName, cfg.SMTP.FromEmail)
		notifier = services.NewMailNotifier(mailer)
	}

	var rateLimit fiber.Handler
	if cfg.RateLimitEnabled {
		var storage fiber.Storage
		if redisClient != nil {
			storage = middleware.NewRedisStorage(redisClient, cfg.Redis.Prefix)
		}
		rateLimit = middleware.RateLimiter(cfg.RateLimitMax, storage)
	}

	app := fiber.New(fiber.Config{
		AppName:      "motoreg",
		ErrorHandler: utils.ErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New())

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins
	corsCfg.AllowCredentials = len(cfg.CORSOrigins) > 0
	if cfg.PlatformContextHeader != "" {
		corsCfg.AllowedHeaders = append(corsCfg.AllowedHeaders, cfg.PlatformContextHeader)
	}

	routes.SetupRoutes(app, routes.Dependencies{
		Resolver:       auth.NewResolver(cfg.JWTSecret),
		Admins:         auth.NewAdminChecker(cfg.AdminRole, cfg.AdminEmails),
		PlatformHeader: cfg.PlatformContextHeader,
		Registration:   services.NewRegistrationService(recordStore),
		Admin:          services.NewAdminService(recordStore, notifier),
		CORS:           corsCfg,
		RateLimit:      rateLimit,
		AccessLog:      true,
	})

	go func() {
		logrus.Infof("Server starting on port %s", cfg.ServerPort)
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.Errorf("Server shutdown failed: %v", err)
	}
}

// openStore returns the configured record store. The redis client is
// returned too when the redis backend is used so it can back the rate limiter.
func openStore(cfg config.Config) (store.RecordStore, *redis.Client, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := config.ConnectRedis(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisStore(client, cfg.Redis.Prefix), client, nil
	default:
		db, err := config.ConnectDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store.NewGormStore(db), nil, nil
	}
}
