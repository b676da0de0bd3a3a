package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/tapcart/internal/cache"
	"github.com/example/tapcart/internal/config"
	"github.com/example/tapcart/internal/database"
	"github.com/example/tapcart/internal/handlers"
	"github.com/example/tapcart/internal/logger"
	"github.com/example/tapcart/internal/metrics"
	"github.com/example/tapcart/internal/routes"
	"github.com/example/tapcart/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.IsProduction())
	defer func() { _ = log.Sync() }()

	dbLogLevel := gormlogger.Info
	if cfg.IsProduction() {
		dbLogLevel = gormlogger.Warn
	}
	db := database.Connect(cfg.DatabaseURL, dbLogLevel)

	deps := routes.Dependencies{
		Notifier: services.NewSMSService(services.SMSConfig{
			BaseURL:            cfg.TwilioBaseURL,
			AccountSID:         cfg.TwilioAccountSID,
			AuthToken:          cfg.TwilioAuthToken,
			FromNumber:         cfg.TwilioPhoneNumber,
			DefaultCountryCode: cfg.DefaultCountryCode,
		}, log),
		Metrics: metrics.Registry("tapcart"),
		Logger:  log,
	}

	if cfg.RedisAddr != "" {
		rdb := cache.New(cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, log)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx); err != nil {
			log.Warn("Redis unavailable, using in-process OTP cooldown", zap.Error(err))
			deps.Throttle = cache.NewMemory()
		} else {
			defer rdb.Close()
			deps.Throttle = rdb
		}
		cancel()
	} else {
		deps.Throttle = cache.NewMemory()
	}

	app := fiber.New(fiber.Config{
		AppName:      "TapCart Backend",
		ErrorHandler: handlers.ErrorHandler(log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	if err := routes.Register(app, db, cfg, deps); err != nil {
		log.Fatal("Failed to register routes", zap.Error(err))
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting server", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal("fiber.Listen error", zap.Error(err))
	}
}
