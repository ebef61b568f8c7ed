package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ChannelBanner/internal/app"
	"ChannelBanner/internal/config"
	"ChannelBanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	application, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if err := application.Close(); err != nil {
		logger.Warn("release resources", "error", err)
	}
	if runErr != nil {
		logger.Error("application stopped", "error", runErr)
		os.Exit(1)
	}
}
