/**
 * @description
 * This is the main entry point for the ledger-service. It loads configuration, connects to
 * PostgreSQL (applying migrations), RabbitMQ, Redis and the SMTP relay when configured, builds
 * the application service and the nightly reconciliation scheduler, and serves the HTTP API
 * until it receives a shutdown signal.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: operation locks and the payout request throttle.
 * - github.com/joho/godotenv: local .env loading.
 * - github.com/sirupsen/logrus: structured logging.
 * - internal/api, internal/app, internal/config, internal/logging, internal/notify, internal/store.
 * - pkg/mailer, pkg/rabbitmq: outbound notification channels.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/api"
	"github.com/troopledger/ledger-service/internal/app"
	"github.com/troopledger/ledger-service/internal/config"
	"github.com/troopledger/ledger-service/internal/logging"
	"github.com/troopledger/ledger-service/internal/notify"
	"github.com/troopledger/ledger-service/internal/store"
	"github.com/troopledger/ledger-service/pkg/mailer"
	"github.com/troopledger/ledger-service/pkg/rabbitmq"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logrus.WithError(err).Fatal("config load failed")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	boot := logger.WithField("component", "bootstrap")
	boot.WithField("port", cfg.ServerPort).Info("starting ledger-service")

	if cfg.DatabaseURL == "" {
		boot.Fatal("database url must be configured (DATABASE_URL)")
	}
	if cfg.JWKSURL == "" && cfg.JWTSecret == "" {
		boot.Fatal("either JWKS_URL or JWT_SECRET must be configured")
	}

	if cfg.RunMigrations {
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			boot.WithError(err).Fatal("database migrations failed")
		}
		boot.Info("database migrations applied")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		boot.WithError(err).Fatal("database url parse failed")
	}
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		boot.WithError(err).Fatal("database connection failed")
	}
	defer dbpool.Close()
	boot.Info("database connected")

	// The service only publishes; a broker outage degrades notifications to log lines.
	var publisher rabbitmq.Publisher
	if cfg.RabbitMQURL == "" {
		boot.Warn("rabbitmq url missing; notifications will only be logged")
		publisher = rabbitmq.NewFallbackPublisher(logger)
	} else if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger); err != nil {
		boot.WithError(err).Warn("rabbitmq producer unavailable; using fallback")
		publisher = rabbitmq.NewFallbackPublisher(logger)
	} else {
		publisher = producer
		boot.Info("rabbitmq producer connected")
	}
	defer publisher.Close()

	var notifyOpts []notify.Option
	mailCfg := mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
	if recipients := cfg.LeadershipRecipients(); mailCfg.Enabled() && len(recipients) > 0 {
		sender, err := mailer.NewSMTPSender(mailCfg)
		if err != nil {
			boot.WithError(err).Warn("smtp sender unavailable; leadership mail disabled")
		} else {
			notifyOpts = append(notifyOpts, notify.WithLeadershipMail(sender, recipients))
			boot.WithField("recipients", len(recipients)).Info("leadership mail enabled")
		}
	}
	dispatcher := notify.NewDispatcher(publisher, cfg.NotificationExchange, logger, notifyOpts...)

	var (
		locker   app.OperationLocker
		throttle app.RequestThrottle
	)
	if cfg.RedisURL == "" {
		boot.Warn("redis url missing; operation locks disabled")
	} else if redisOptions, err := redis.ParseURL(cfg.RedisURL); err != nil {
		boot.WithError(err).Warn("redis url parse failed; operation locks disabled")
	} else {
		redisClient := redis.NewClient(redisOptions)
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr := redisClient.Ping(pingCtx).Err()
		cancelPing()
		if pingErr != nil {
			boot.WithError(pingErr).Warn("redis ping failed; operation locks disabled")
			_ = redisClient.Close()
		} else {
			defer redisClient.Close()
			locker = app.NewRedisOperationLocker(redisClient, cfg.RedisLockPrefix, cfg.OperationLockTTL())
			throttle = app.NewRedisRequestThrottle(redisClient, cfg.RedisThrottlePrefix)
			boot.Info("redis connected")
		}
	}

	repository := store.NewPostgresRepository(dbpool)
	ledgerService := app.NewService(repository, dispatcher, locker, logger)
	if throttle != nil {
		ledgerService.SetPayoutRequestThrottle(throttle, cfg.PayoutRequestsPerHour, time.Hour)
	}

	scheduler := app.NewScheduler(ledgerService, logger, cfg.ReconcileSchedule, cfg.ReconcileAutoRepair)
	if err := scheduler.Start(); err != nil {
		boot.WithError(err).Fatal("reconciliation scheduler start failed")
	}

	handlers := api.NewHandlers(ledgerService, logger)
	verifier := api.NewTokenVerifier(cfg.JWKSURL, cfg.JWTSecret)
	router := api.LedgerRoutes(handlers, verifier, cfg.AllowedOrigins())

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("component", "http").WithField("addr", serverAddr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithField("component", "http").WithError(err).Fatal("server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.WithField("component", "http").Info("shutdown started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithField("component", "http").WithError(err).Error("shutdown failed")
	}
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		boot.Warn("reconciliation job still running at shutdown")
	}

	logger.WithField("component", "http").Info("shutdown complete")
}
