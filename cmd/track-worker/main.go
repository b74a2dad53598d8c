package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecommerce-omar/tracking-api/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).
		With(slog.String("service", "track-worker"))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := RunTrackWorker(ctx, cfg, defaultWorkerFactories(), logger); err != nil && err != context.Canceled {
		logger.Error("track-worker stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
