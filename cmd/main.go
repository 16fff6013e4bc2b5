package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/config"
	"github.com/giovanistefani/Construction-manager-sub001/db"
	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/handler"
	repo "github.com/giovanistefani/Construction-manager-sub001/internal/auth/repository/postgres"
	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/service"
	"github.com/giovanistefani/Construction-manager-sub001/internal/events"
	"github.com/giovanistefani/Construction-manager-sub001/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("auth service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, dbPool); err != nil {
			return err
		}
		log.Info("schema applied")
	}

	repos := service.Repositories{
		Accounts:  repo.NewAccountRepository(dbPool),
		Tenants:   repo.NewTenantRepository(dbPool),
		TwoFactor: repo.NewTwoFactorRepository(dbPool),
		Resets:    repo.NewPasswordResetRepository(dbPool),
	}

	sinks := []domain.AuditRepository{repo.NewAuditRepository(dbPool)}
	var notifier service.Notifier = service.NewLogNotifier(log, !cfg.IsProduction())

	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(
			events.NewWriter(cfg.KafkaBrokers, true, log),
			events.NewWriter(cfg.KafkaBrokers, false, log),
			cfg.KafkaAuditTopic, cfg.KafkaNotificationTopic, log)
		defer producer.Close()

		sinks = append(sinks, producer)
		notifier = producer
		log.Info("kafka producer enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenExpiry, cfg.RememberMeExpiry, cfg.RefreshTokenExpiry)
	auditor := service.NewAuditor(log, sinks...)
	authService := service.NewAuthService(repos, tokenService, notifier, auditor, cfg, log)
	authHandler := handler.NewAuthHandler(authService, log)

	app := fiber.New(fiber.Config{
		AppName:               "auth-service",
		DisableStartupMessage: cfg.IsProduction(),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSAllowOrigins}))
	app.Use(handler.RequestLogger(log))
	handler.RegisterRoutes(app, authHandler)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-signalChan:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
