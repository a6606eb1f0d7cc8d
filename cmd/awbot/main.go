package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussie-warriors/awbot/app"
	"github.com/aussie-warriors/awbot/config"
	"github.com/aussie-warriors/awbot/internal/observability"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/settings"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("failed to open settings: %v", err)
	}

	obs := observability.New(config.ToObsOptions(cfg))
	logger := obs.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg, store, obs)
	if err != nil {
		logger.Error("Failed to initialize app", attr.Error(err))
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		logger.Error("App stopped with error", attr.Error(runErr))
	}

	logger.Info("Shutting down")
	if err := application.Close(); err != nil {
		logger.Error("Shutdown failed", attr.Error(err))
		os.Exit(1)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
