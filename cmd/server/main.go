package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/climbing-tracker/internal/config"
	"github.com/climbing-tracker/internal/export"
	"github.com/climbing-tracker/internal/handler"
	"github.com/climbing-tracker/internal/kafka"
	"github.com/climbing-tracker/internal/memstore"
	"github.com/climbing-tracker/internal/postgres"
	"github.com/climbing-tracker/internal/redis"
	"github.com/climbing-tracker/internal/service"
	"github.com/climbing-tracker/internal/store"
	"github.com/climbing-tracker/internal/websocket"
	"github.com/climbing-tracker/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readiness := map[string]handler.ReadinessCheck{}

	// Initialize the record store
	var st store.Store
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		repo, err := postgres.NewRepository(ctx, &cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer repo.Close()

		if cfg.Postgres.AutoMigrate {
			if err := repo.RunMigrations(ctx); err != nil {
				logger.Error("failed to run migrations", "error", err)
				os.Exit(1)
			}
		} else if err := repo.CheckMigrations(); err != nil {
			logger.Error("database schema is not current, enable auto_migrate or migrate manually", "error", err)
			os.Exit(1)
		}
		readiness["postgres"] = repo.Ping
		st = repo
	default:
		logger.Warn("using in-memory storage, records are lost on restart")
		st = memstore.New()
	}

	// Initialize the Redis leaderboard cache
	var cache service.LeaderboardCache
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		redisCache, err := redis.NewLeaderboardCache(ctx, &cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		readiness["redis"] = redisCache.Ping
		cache = redisCache
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	leaderboardService := service.NewLeaderboardService(st, cache, &cfg.Leaderboard, logger)
	leaderboardService.SetHub(wsHub)

	// Climb events go through Kafka when it is enabled and straight to the leaderboard otherwise
	var publisher service.EventPublisher = service.NewLocalPublisher(leaderboardService, logger)
	var kafkaConsumer *kafka.Consumer
	var kafkaProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaConsumer, kafkaProducer, err = startKafka(&cfg.Kafka, leaderboardService, logger)
		if err != nil {
			logger.Warn("failed to start Kafka, publishing locally", "error", err)
		} else {
			publisher = kafkaProducer
		}
	}

	services := handler.Services{
		Users:       service.NewUserService(st, logger),
		Locations:   service.NewLocationService(st, publisher, logger),
		Routes:      service.NewRouteService(st, publisher, logger),
		Climbs:      service.NewClimbService(st, publisher, logger),
		Friendships: service.NewFriendshipService(st, logger),
		Stats:       service.NewStatsService(st, logger),
		Leaderboard: leaderboardService,
		Exports:     export.NewBuilder(st, logger),
	}
	if cfg.Export.Enabled {
		archiver, err := export.NewS3Archiver(ctx, &cfg.Export, logger)
		if err != nil {
			logger.Error("failed to configure export archiving", "error", err)
			os.Exit(1)
		}
		services.Archiver = archiver
	}

	// Start refresh worker
	refreshWorker := worker.NewRefreshWorker(leaderboardService, &cfg.Refresh, logger)
	if cfg.Refresh.Enabled {
		if err := refreshWorker.Start(ctx); err != nil {
			logger.Error("failed to start refresh worker", "error", err)
			os.Exit(1)
		}
	}

	httpHandler := handler.NewHandler(services, wsHub, cfg, logger)
	for name, check := range readiness {
		httpHandler.AddReadinessCheck(name, check)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	wsHub.Stop()

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("failed to close Kafka producer", "error", err)
		}
	}

	if err := refreshWorker.Stop(); err != nil {
		logger.Error("failed to stop refresh worker", "error", err)
	}

	logger.Info("server stopped")
}

// startKafka connects the producer and starts the consumer, closing the producer if the
// consumer cannot start
func startKafka(cfg *config.KafkaConfig, events service.ClimbEventHandler, logger *slog.Logger) (*kafka.Consumer, *kafka.Producer, error) {
	producer, err := kafka.NewProducer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	consumer, err := kafka.NewConsumer(cfg, events, logger)
	if err == nil {
		err = consumer.Start()
	}
	if err != nil {
		producer.Close()
		return nil, nil, err
	}
	return consumer, producer, nil
}
