package main

import (
	"context"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tvtime-service/internal/browse"
	"tvtime-service/internal/config"
	"tvtime-service/internal/handler"
	"tvtime-service/internal/logging"
	"tvtime-service/internal/repository"
	"tvtime-service/internal/service"
	"tvtime-service/pkg/httpclient"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// closeable KV backends
type kvStore interface {
	repository.KV
	io.Closer
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Setup(logging.Config{})
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	logFile := logging.Setup(logging.Config{Level: cfg.Logging.Level, File: cfg.Logging.File})
	defer logFile.Close()

	log.Info().
		Str("port", cfg.Server.Port).
		Str("mode", cfg.Server.GinMode).
		Str("storage", cfg.Storage.Backend).
		Str("trend", cfg.Trend.Backend).
		Msg("🚀 Starting tvtime-service")

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize Redis when a backend needs it
	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient, err = repository.NewRedisClient(cfg.Storage.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
	}

	// Local storage for favorites and search history
	kv, err := openKV(cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open storage")
	}
	defer kv.Close()

	// Trend counters
	docs, closeDocs, err := openDocumentStore(cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Trend.Backend).Msg("Failed to open trend store")
	}
	defer closeDocs()

	// Initialize HTTP client with optional rate limit
	opts := []httpclient.Option{httpclient.WithTimeout(cfg.TMDB.Timeout)}
	if cfg.TMDB.RateLimit > 0 {
		burst := int(math.Max(1, math.Ceil(cfg.TMDB.RateLimit)))
		opts = append(opts, httpclient.WithRateLimit(cfg.TMDB.RateLimit, burst))
		log.Info().Float64("per_second", cfg.TMDB.RateLimit).Msg("🚦 TMDB rate limit enabled")
	}
	httpClient := httpclient.NewClient(opts...)

	// Initialize services
	tmdbService := service.NewTMDBService(cfg.TMDB.APIKeys, cfg.TMDB.BaseURL, cfg.TMDB.ImageBase, httpClient)
	if tmdbService.IsConfigured() {
		log.Info().Int("keys", tmdbService.KeyCount()).Msg("🎬 TMDB service enabled (轮询模式)")
	} else {
		log.Warn().Msg("⚠️  TMDB_API_KEY not set, catalog requests will fail")
	}
	recorder := service.NewTrendRecorder(docs, cfg.TMDB.ImageBase, service.BreakerConfig{})
	favorites := service.NewFavoritesStore(kv)
	history := service.NewHistoryStore(kv)

	registry := browse.NewRegistry(tmdbService, recorder, browse.Options{
		Debounce:      cfg.Session.Debounce,
		TrendingLimit: service.DefaultTrendingLimit,
		GenreLanguage: service.DefaultGenreLanguage,
	}, cfg.Session.MaxSessions)

	moviesHandler := handler.NewMoviesHandler(tmdbService, recorder)
	r := handler.NewRouter(handler.Handlers{
		Movies:    moviesHandler,
		Sessions:  handler.NewSessionsHandler(registry),
		Favorites: handler.NewFavoritesHandler(favorites),
		History:   handler.NewHistoryHandler(history),
		Trending:  handler.NewTrendingHandler(recorder),
		Admin:     handler.NewAdminHandler(tmdbService, recorder, registry, cfg.Storage.Backend, cfg.Trend.Backend),
	}, cfg.Server.AdminAPIKey)

	// 日志输出认证状态
	if cfg.Server.AdminAPIKey != "" {
		log.Info().Msg("🔐 Admin API 认证已启用")
	} else {
		log.Warn().Msg("⚠️  Admin API 未配置认证，管理接口对外开放")
	}

	// Sweep idle browse sessions in the background
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var bg conc.WaitGroup
	bg.Go(func() {
		registry.Run(bgCtx, cfg.Session.IdleTimeout)
	})

	// Create HTTP server with graceful shutdown support
	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("🌐 Server listening")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopBackground()
	bg.Wait()
	// drains pending trend writes before storage closes
	registry.Close()
	moviesHandler.Wait()

	log.Info().Msg("👋 Server exited")
}

func openKV(cfg *config.Config, redisClient *redis.Client) (kvStore, error) {
	switch cfg.Storage.Backend {
	case config.StorageRedis:
		return repository.NewRedisKV(redisClient, "tvtime:"), nil
	case config.StorageMemory:
		log.Warn().Msg("⚠️  In-memory storage: favorites and history are lost on restart")
		return repository.NewMemoryKV(), nil
	default:
		return repository.OpenBadgerKV(cfg.Storage.BadgerDir)
	}
}

func openDocumentStore(cfg *config.Config, redisClient *redis.Client) (repository.DocumentStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Trend.Backend {
	case config.TrendSQL:
		store, err := repository.OpenSQLDocumentStore(cfg.Trend.SQLDSN)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case config.TrendMemory:
		return repository.NewMemoryDocumentStore(), noop, nil
	default:
		return repository.NewRedisDocumentStore(redisClient), noop, nil
	}
}
