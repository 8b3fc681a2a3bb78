package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/myovai/ovai-auth/internal/app"
	"github.com/myovai/ovai-auth/internal/config"
	"github.com/myovai/ovai-auth/internal/logger"
	"github.com/myovai/ovai-auth/internal/version"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to YAML config file (environment variables only when empty)")
	flag.Parse()

	// Load .env.localdev file if it exists (for local development)
	// Silently ignore if file doesn't exist (production uses real env vars)
	_ = godotenv.Load(".env.localdev")

	// Configuration errors are fatal before anything listens
	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("Failed to create logger: %v", err)
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewApp(ctx, cfg, app.WithLogger(log))
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.WithField("signal", sig.String()).Info("Received signal")
		cancel()
	}()

	log.WithField("hash", version.CommitHash).Info("ovai-auth - signup and token verification gateway")
	if err := application.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Info("Goodbye!")
}
