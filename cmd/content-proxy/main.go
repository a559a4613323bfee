package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/content-cache/internal/config"
	"github.com/Sternrassler/content-cache/pkg/cache"
	"github.com/Sternrassler/content-cache/pkg/client"
	"github.com/Sternrassler/content-cache/pkg/logging"
	"github.com/Sternrassler/content-cache/pkg/query"
	"github.com/Sternrassler/content-cache/pkg/repository"
	"github.com/Sternrassler/content-cache/pkg/session"
	"github.com/Sternrassler/content-cache/pkg/webhook"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Setup(cfg.LoggingConfig())
	logger := logging.NewLogger("main")

	if !cfg.Log.Pretty {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	store, ready, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Cache.Backend).Msg("Failed to create cache store")
	}
	defer closeStore()

	contentCache, err := cache.NewContentCache(store, cfg.CacheConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create content cache")
	}

	api, err := client.New(cfg.ClientConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create content API client")
	}

	srv := &server{
		repo:     repository.New(api, contentCache, query.NewConverter()),
		sessions: session.NewManager(cfg.SessionConfig()),
		webhook:  webhook.NewConsumer(contentCache, cfg.WebhookConfig()),
		ready:    ready,
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("backend", cfg.Cache.Backend).
			Bool("dev_mode", cfg.DevMode).
			Msg("Starting content proxy")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Content proxy stopped")
}

// newStore builds the configured cache backend and its readiness probe.
func newStore(ctx context.Context, cfg config.Config) (cache.Store, pinger, func(), error) {
	if cfg.Cache.Backend == config.BackendMemory {
		store, err := cache.NewMemoryStore(cfg.MemoryStoreConfig())
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := cache.NewRedisStore(redisClient)
	if err := store.Ping(ctx); err != nil {
		redisClient.Close()
		return nil, nil, nil, err
	}
	return store, store, func() { redisClient.Close() }, nil
}
