package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/slotsale/docs"
	"github.com/kirinyoku/slotsale/internal/app"
	"github.com/kirinyoku/slotsale/internal/config"
)

// @title Slotsale API
// @version 1.0
// @description Slot reservation and payment settlement service.
// @host localhost:8080
// @BasePath /
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
