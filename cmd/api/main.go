package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/lotline/sentinel/internal/adapters/api"
	"github.com/lotline/sentinel/internal/adapters/cache"
	"github.com/lotline/sentinel/internal/adapters/database"
	adapterevents "github.com/lotline/sentinel/internal/adapters/events"
	"github.com/lotline/sentinel/internal/config"
	"github.com/lotline/sentinel/internal/domain/fraud"
	"github.com/lotline/sentinel/internal/domain/risk"
	"github.com/lotline/sentinel/pkg/auth"
	pkgdb "github.com/lotline/sentinel/pkg/database"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Postgres Connection Pool
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Connect to RabbitMQ
	amqpConn, err := amqp091.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	// 3. Redis is optional; without it only the repository dedup check applies
	var dedup fraud.DedupGuard
	if cfg.RedisURL != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis connection failed, dedup fast path disabled", "error", err)
		} else {
			logger.Info("Redis Connected")
			dedup = cache.NewRedisDedupGuard(rdb)
		}
	}

	// 4. Initialize Repositories (Infrastructure Layer)
	txManager := pkgdb.NewPostgresTransactionManager(pool, 3*time.Second)
	historyRepo := database.NewPostgresBidHistoryRepository(pool)
	signalRepo := database.NewPostgresSignalRepository(pool)
	outboxRepo := database.NewPostgresOutboxRepository(pool)
	riskRepo := database.NewPostgresRiskProfileRepository(pool)
	guarantorRepo := database.NewPostgresGuarantorRepository(pool)

	// 5. Initialize Services (Domain Layer)
	fraudService := fraud.NewService(cfg.Fraud, historyRepo, signalRepo, outboxRepo, dedup, txManager, logger)
	gate := risk.NewGate(cfg.Gate, riskRepo, guarantorRepo, logger)

	// 6. Initialize HTTP Handler
	signer, err := auth.NewSigner([]byte(cfg.JWTSecret), "sentinel")
	if err != nil {
		logger.Error("Failed to create token signer", "error", err)
		os.Exit(1)
	}
	handler := api.NewHandler(fraudService, gate, logger)

	// 7. Start Outbox Relay
	producer, err := adapterevents.NewSignalEventsProducer(pool, amqpConn, logger)
	if err != nil {
		logger.Error("Failed to create events producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	// Use h2c for HTTP/2 without TLS (common for internal services / local dev)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: h2c.NewHandler(handler.Routes(signer), &http2.Server{}),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting Outbox Relay...")
		return producer.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("Starting Fraud Detection API", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
