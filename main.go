package main

import (
	"context"
	"errors"
	"fmt"
	"ms-groups/internal/api"
	"ms-groups/internal/config"
	"ms-groups/internal/dispatch"
	"ms-groups/internal/kafka"
	"ms-groups/internal/logger"
	"ms-groups/internal/models"
	"ms-groups/internal/page"
	"ms-groups/internal/sse"
	"ms-groups/internal/store"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

// openPages keeps page containers in Redis when REDIS_ADDR is set, in process
// memory otherwise.
func openPages(ctx context.Context, cfg config.RedisConfig, emitter *sse.FragmentEmitter, log *logger.Logger) (page.Pages, func()) {
	if cfg.Addr == "" {
		log.Info("PAGE", "REDIS_ADDR not set, keeping page containers in memory")
		return page.NewMemoryPages(page.GroupsSelector), func() {}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, redisClient.Options().DB))

	if err := page.EnableExpiryEvents(ctx, redisClient); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	}
	page.WatchExpiry(ctx, redisClient, log, emitter.Disconnect)

	return page.NewRedisPages(redisClient, page.GroupsSelector, cfg.PageTTL), func() { redisClient.Close() }
}

// dispatchOptions turns the dispatch config into dispatcher options.
func dispatchOptions(cfg config.DispatchConfig, log *logger.Logger) ([]dispatch.Option, error) {
	mode, err := models.ParseDispatchMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	opts := []dispatch.Option{
		dispatch.WithMode(mode),
		dispatch.WithConcurrency(cfg.Concurrency),
		dispatch.WithRequestTimeout(cfg.RequestTimeout),
		dispatch.WithMaxFragmentBytes(cfg.MaxFragmentBytes),
		dispatch.WithLogger(log),
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DISPATCH_BASE_URL: %w", err)
		}
		opts = append(opts, dispatch.WithBaseURL(base))
	}
	return opts, nil
}

func main() {
	logger := logger.NewLogger("groups-service")
	defer logger.Close()

	logger.Info("APP", "Starting Groups Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("APP", "Opening dispatch store")
	db, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to open store: %v", err))
	}
	defer db.Close()

	emitter := sse.NewFragmentEmitter()
	pages, closePages := openPages(ctx, cfg.Redis, emitter, logger)
	defer closePages()

	opts, err := dispatchOptions(cfg.Dispatch, logger)
	if err != nil {
		logger.Fatal("CONFIG", err.Error())
	}
	opts = append(opts, dispatch.WithObserver(store.NewRecorder(db, logger).Observe))

	if cfg.Kafka.Enabled {
		var producer *kafka.Producer
		if cfg.Kafka.MockMode {
			producer = kafka.NewMockProducer(logger)
			logger.Info("KAFKA", "Kafka producer running in mock mode")
		} else {
			topics := []string{cfg.Kafka.Topics.DispatchSucceeded, cfg.Kafka.Topics.DispatchFailed}
			if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics, logger); err != nil {
				logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
			}
			producer = kafka.NewProducer(cfg.Kafka.Brokers, logger)
			logger.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Kafka.Brokers))
		}
		defer producer.Close()
		opts = append(opts, dispatch.WithObserver(kafka.NewResultPublisher(producer, cfg.Kafka.Topics, logger).Observe))
	}

	client := &http.Client{
		Timeout: cfg.Dispatch.ClientTimeout,
	}
	dispatcher := dispatch.New(client, opts...)

	handler := api.NewHandler(dispatcher, pages, db, emitter, logger)
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Groups Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Groups Service shutdown complete")
	}
}
