// @title           Sports Performance Analyzer API
// @version         1.0
// @description     Upload, list and delete sport training videos.
// @BasePath        /
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Niyati251208/sports-performance-analyzer/internal/app"
	"github.com/Niyati251208/sports-performance-analyzer/internal/config"
	"github.com/Niyati251208/sports-performance-analyzer/internal/reconcile"
)

func main() {
	// load config
	cfg := config.MustLoad()

	// stores and services
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer a.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.Hub.Run(hubCtx)

	if cfg.Reconcile.InProcess {
		worker := reconcile.NewWorker(a.Store, a.Blobs, reconcile.Options{
			Interval:      cfg.Reconcile.Interval,
			GracePeriod:   cfg.Reconcile.GracePeriod,
			PruneDangling: cfg.Reconcile.PruneDangling,
			Metrics:       a.Metrics,
		})
		go worker.Start(hubCtx)
	}

	server := http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      a.Handler(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	slog.Info("server started",
		slog.String("address", cfg.HTTPServer.Address),
		slog.String("env", cfg.Env),
		slog.String("database", cfg.Database.Driver),
		slog.String("blob_driver", string(a.Blobs.Driver())))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = server.Shutdown(ctx)
	if err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}
