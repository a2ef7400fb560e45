// Package app assembles the stores, services and transport from configuration.
// Both the HTTP service and the reconcile worker build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-redis/redis/v8"

	"github.com/Niyati251208/sports-performance-analyzer/internal/blob"
	"github.com/Niyati251208/sports-performance-analyzer/internal/cache"
	"github.com/Niyati251208/sports-performance-analyzer/internal/config"
	"github.com/Niyati251208/sports-performance-analyzer/internal/events"
	"github.com/Niyati251208/sports-performance-analyzer/internal/http/router"
	"github.com/Niyati251208/sports-performance-analyzer/internal/metrics"
	"github.com/Niyati251208/sports-performance-analyzer/internal/services/media"
	"github.com/Niyati251208/sports-performance-analyzer/internal/services/videos"
	"github.com/Niyati251208/sports-performance-analyzer/internal/storage"
	"github.com/Niyati251208/sports-performance-analyzer/internal/storage/postgres"
	"github.com/Niyati251208/sports-performance-analyzer/internal/storage/sqlite"
	"github.com/Niyati251208/sports-performance-analyzer/internal/websocket"
)

type App struct {
	Config  *config.Config
	Store   storage.Storage
	Blobs   blob.Store
	Redis   *redis.Client
	Metrics *metrics.Metrics
	Hub     *websocket.Hub
	Service *videos.Service
}

// OpenStorage picks the metadata store named by cfg.Database.Driver.
func OpenStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return postgres.NewPostgres(ctx, cfg)
	case "sqlite", "":
		store, err := sqlite.NewSqlite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		slog.Info("Opened SQLite database", slog.String("path", cfg.SQLite.Path))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %s", cfg.Database.Driver)
	}
}

// OpenRedis returns nil when no address is configured.
func OpenRedis(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	slog.Info("Connected to Redis", slog.String("address", cfg.Address))
	return client, nil
}

// OpenCachedStorage opens the metadata store and wraps it in the Redis upload cache
// when Redis is configured and reachable. The client is nil otherwise; the caller
// closes it.
func OpenCachedStorage(ctx context.Context, cfg *config.Config) (storage.Storage, *redis.Client, error) {
	store, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	redisClient, err := OpenRedis(ctx, cfg.Redis)
	if err != nil {
		// The cache and rate limits are optional; run without them.
		slog.Warn("Redis unavailable, continuing without cache and rate limits", slog.String("error", err.Error()))
		return store, nil, nil
	}
	if redisClient == nil {
		return store, nil, nil
	}
	return cache.NewCacheService(store, redisClient), redisClient, nil
}

// New opens every backing store. Close releases them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, redisClient, err := OpenCachedStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		_ = store.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("blob store: %w", err)
	}

	a := &App{
		Config:  cfg,
		Store:   store,
		Blobs:   blobs,
		Redis:   redisClient,
		Metrics: metrics.New(),
		Hub:     websocket.NewHub(),
	}

	validator := media.NewValidator(cfg.Media.AllowedExtensions, cfg.Media.SniffContent)
	a.Service = videos.NewService(store, blobs, validator, media.NewNamer(), videos.Options{
		Publisher: events.NewEventPublisher(a.Hub),
		Metrics:   a.Metrics,
		Timeout:   cfg.RequestTimeout,
	})

	return a, nil
}

func (a *App) Handler() http.Handler {
	return router.New(router.Deps{
		Config:  a.Config,
		Service: a.Service,
		Blobs:   a.Blobs,
		Hub:     a.Hub,
		Redis:   a.Redis,
		Metrics: a.Metrics,
	})
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
