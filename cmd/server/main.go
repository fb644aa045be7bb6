package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/devfolio/internal/config"
	"github.com/ZanzyTHEbar/devfolio/internal/monitoring"
)

// cleanupInterval is how often expired hidden chat messages are purged
const cleanupInterval = 6 * time.Hour

func main() {
	cfg := config.Load()

	// Structured logging setup
	logger := monitoring.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger.Logger)
	slog.Info("Configuration loaded", "config", cfg)

	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	s, err := newServer(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}

	background, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go s.privacy.ScheduleDataCleanup(background, cleanupInterval)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopBackground()

	// Hijacked websocket connections are not tracked by Shutdown
	s.hub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	s.close()
	slog.Info("Server exited")
}
