package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thomasbjerke/IngestionBaard/internal/application/ingest"
	"github.com/Thomasbjerke/IngestionBaard/internal/approach"
	"github.com/Thomasbjerke/IngestionBaard/internal/chunk"
	"github.com/Thomasbjerke/IngestionBaard/internal/config"
	"github.com/Thomasbjerke/IngestionBaard/internal/credentials"
	redisblob "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/blob/redis"
	redisevents "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/events/redis"
	redisindex "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/index/redis"
	"github.com/Thomasbjerke/IngestionBaard/pkg/adapters/llm"
	"github.com/Thomasbjerke/IngestionBaard/pkg/adapters/metrics/prometheus"
	"github.com/Thomasbjerke/IngestionBaard/pkg/api/grpc"
	"github.com/Thomasbjerke/IngestionBaard/pkg/api/http"
	"github.com/Thomasbjerke/IngestionBaard/pkg/api/websocket"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting IngestionBaard",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize Redis client
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// Initialize adapters
	eventBus, err := redisevents.NewStreamsEventBus(
		redisClient,
		"baard-ingest",
		fmt.Sprintf("baard-%d", os.Getpid()),
		logger,
	)
	if err != nil {
		logger.Fatal("failed to create event bus", zap.Error(err))
	}

	searchIndex := redisindex.NewIndex(redisClient, cfg.Search.IndexName, logger)
	if err := searchIndex.Load(ctx); err != nil {
		logger.Fatal("failed to load search index", zap.Error(err))
	}

	blobStore := redisblob.NewStore(redisClient, cfg.Storage.Container, logger)

	tokens := credentials.NewRenewing(
		credentials.StaticFetch(cfg.LLM.APIKey),
		cfg.LLM.TokenRefreshSkew,
		logger,
	)

	metricsCollector := prometheus.NewCollector()
	metricsCollector.SetIndexedSections(searchIndex.Count())

	llmClient, err := llm.NewClient(&llm.Config{
		Provider: cfg.LLM.Provider,
		Tokens:   tokens,
		Metrics:  metricsCollector,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to create LLM client", zap.Error(err))
	}

	// Initialize application components
	registry := approach.NewRegistry(searchIndex, llmClient, logger, approach.Options{
		Model:       cfg.LLM.DefaultModel,
		Temperature: cfg.LLM.DefaultTemperature,
		MaxTokens:   cfg.LLM.DefaultMaxTokens,
		DefaultTop:  cfg.Search.DefaultTop,
	})

	ingestPool := ingest.NewPool(
		cfg.Ingest.PoolSize,
		eventBus,
		blobStore,
		searchIndex,
		chunk.NewFixedSizeChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		metricsCollector,
		logger,
		cfg.Ingest.HealthCheckInterval,
	)

	// Start ingest worker pool
	if err := ingestPool.Start(); err != nil {
		logger.Fatal("failed to start ingest worker pool", zap.Error(err))
	}

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:            cfg.HTTPPort,
		Registry:        registry,
		Index:           searchIndex,
		Blobs:           blobStore,
		Bus:             eventBus,
		Metrics:         metricsCollector,
		Logger:          logger,
		ApproachTimeout: cfg.Timeouts.ApproachTimeout,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("IngestionBaard started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("ingest_pool_size", cfg.Ingest.PoolSize))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	// Shutdown components
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := ingestPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("ingest pool shutdown error", zap.Error(err))
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	logger.Info("IngestionBaard shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
