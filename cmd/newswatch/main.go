package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alekseyt9/newswatch/internal/app"
	"github.com/alekseyt9/newswatch/internal/config"
	"github.com/alekseyt9/newswatch/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New("error").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)

	application := app.New(cfg, logger)

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
