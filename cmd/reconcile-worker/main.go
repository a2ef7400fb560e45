package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Niyati251208/sports-performance-analyzer/internal/app"
	"github.com/Niyati251208/sports-performance-analyzer/internal/blob"
	"github.com/Niyati251208/sports-performance-analyzer/internal/config"
	"github.com/Niyati251208/sports-performance-analyzer/internal/reconcile"
)

func main() {
	// Load config
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pruned rows must also leave the cache the HTTP service reads from.
	store, redisClient, err := app.OpenCachedStorage(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	defer store.Close()

	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize blob store:", err)
	}

	worker := reconcile.NewWorker(store, blobs, reconcile.Options{
		Interval:      cfg.Reconcile.Interval,
		GracePeriod:   cfg.Reconcile.GracePeriod,
		PruneDangling: cfg.Reconcile.PruneDangling,
		Logger:        logger,
	})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	worker.Start(ctx)

	logger.Info("Reconcile worker stopped")
}
