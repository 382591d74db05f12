package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"realm-server/internal/config"
	"realm-server/internal/direction"
	"realm-server/internal/events"
	"realm-server/internal/expansion"
	"realm-server/internal/frontier"
	"realm-server/internal/generation"
	"realm-server/internal/handler"
	"realm-server/internal/hint"
	"realm-server/internal/layers"
	appLogger "realm-server/internal/logger"
	"realm-server/internal/messaging"
	"realm-server/internal/player"
	"realm-server/internal/registry"
	"realm-server/internal/service"
	"realm-server/internal/telemetry"
	"realm-server/internal/worldgraph"
)

func main() {
	_ = godotenv.Load()
	log.Println("Starting Realm Server...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := appLogger.New(appLogger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	dbPool, err := setupDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	logger.Info("Connected to PostgreSQL")

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))

	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	logger.Info("Connected to RabbitMQ")

	metrics := telemetry.NewRecorder()

	graphRepo := worldgraph.NewPostgresRepository(dbPool, logger)
	playerRepo := player.NewPostgresRepository(dbPool, logger)
	layerRepo := layers.NewPostgresRepository(dbPool, logger)
	layerStore := layers.NewStore(layerRepo, cfg.HeroProseMaxLength, logger)
	eventRegistry := registry.NewPostgresRegistry(dbPool, logger)
	hintStore := hint.NewRedisStore(redisClient, cfg.DebounceWindow, logger)

	topology := messaging.Topology{
		Queue:              cfg.WorldEventQueue,
		DeadLetterExchange: cfg.WorldEventDLX,
		DeadLetterQueue:    cfg.WorldEventDLQ,
	}
	publisher, err := messaging.NewWorldEventPublisher(rabbitConn, topology, logger)
	if err != nil {
		logger.Fatal("Failed to create event publisher", zap.Error(err))
	}

	generator := generation.NewOpenAIGenerator(
		cfg.AIAPIKey,
		cfg.AIBaseURL,
		cfg.AIModel,
		cfg.GenerationTimeout,
		metrics,
		logger,
	)

	policy := frontier.NewPolicy(logger)
	movementService := service.NewMovementService(
		direction.NewNormalizer(),
		graphRepo,
		playerRepo,
		policy,
		hintStore,
		publisher,
		metrics,
		logger,
	)
	dispatcher := messaging.NewDispatcher(eventRegistry, metrics, logger)
	dispatcher.Register(events.EventTypeAreaExpandBatch,
		expansion.NewBatchHandler(graphRepo, layerStore, generator, publisher, metrics, logger))
	dispatcher.Register(events.EventTypeExitCreate,
		expansion.NewConnectHandler(graphRepo, logger))
	dispatcher.Register(events.EventTypeDescriptionUpdate,
		expansion.NewDescribeHandler(layerStore, logger))

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	consumer := messaging.NewConsumer(rabbitConn, dispatcher, topology, metrics, logger)
	consumer.StartConsuming(rootCtx)

	dlqInspector := messaging.NewDeadLetterInspector(rabbitConn, topology, logger)
	dlqInspector.StartConsuming()

	scanner := frontier.NewScanner(graphRepo, metrics, logger, parseSeedLocations(cfg.SeedLocations, logger))
	go scanner.RunPeriodic(rootCtx, cfg.ScanInterval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/move", handler.NewMoveHandler(movementService, logger))

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: mux,
	}
	go func() {
		logger.Info("Ops listener started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Ops listener failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received, starting graceful shutdown...")

	consumer.Stop()
	dlqInspector.Stop()
	rootCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down metrics listener", zap.Error(err))
	}

	log.Println("Realm Server stopped")
}

// setupDatabase initializes the pgx connection pool.
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// connectRabbitMQ dials the broker with a few retries.
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}

// parseSeedLocations converts the configured seed ids, skipping malformed
// entries so one typo does not keep the scanner from starting.
func parseSeedLocations(raw []string, logger *zap.Logger) []uuid.UUID {
	var out []uuid.UUID
	for _, s := range raw {
		if s == "" {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			logger.Warn("Skipping malformed seed location id", zap.String("value", s), zap.Error(err))
			continue
		}
		out = append(out, id)
	}
	return out
}
