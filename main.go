package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staff_server/config"
	"staff_server/internal/bootstrap"
	"staff_server/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Initialize logger early
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "staff",
	})

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	mode := flag.String("mode", "api", "Run mode: api, seed-import, seed-destroy, fix-ids, token")
	email := flag.String("email", "", "User email for -mode=token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.IsDevelopment() {
		level = logger.LevelDebug
	}
	logger.Init(logger.Config{Level: level, Service: "staff-" + *mode})

	switch *mode {
	case "api":
		runAPI(cfg)
	case "seed-import":
		runTask(cfg, *mode, bootstrap.SeedImport)
	case "seed-destroy":
		runTask(cfg, *mode, bootstrap.SeedDestroy)
	case "fix-ids":
		runTask(cfg, *mode, bootstrap.FixEmployeeIDs)
	case "token":
		runTask(cfg, *mode, bootstrap.IssueToken(*email))
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

func runAPI(cfg *config.Config) {
	app, cleanup, err := bootstrap.NewAPI(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize API: %v", err)
	}
	defer cleanup()

	// Graceful shutdown with timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			logger.Error("Error shutting down: %v", err)
		} else {
			logger.Info("API server shut down gracefully")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s (%s)", addr, cfg.Environment)
	if err := app.Listen(addr); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

func runTask(cfg *config.Config, name string, task bootstrap.Task) {
	if err := bootstrap.RunTask(cfg, name, task); err != nil {
		logger.Fatal("Task failed: %v", err)
	}
}
