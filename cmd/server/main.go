package main

import (
	"log/slog"
	"os"

	"storyteller-admin/internal/app"
	"storyteller-admin/internal/logger"
)

func main() {
	// Startup logger until the configured one is installed.
	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
