package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/config"
	"github.com/jeremyjsx/inkwell/internal/storage"
	"github.com/jeremyjsx/inkwell/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if cfg.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, baseURL, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open asset storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open channel", "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	if err := worker.Setup(ch); err != nil {
		logger.Error("failed to declare topology", "error", err)
		os.Exit(1)
	}

	w := worker.New(logger, assets.NewStore(blobs, baseURL), cfg.OperationTimeout)
	if err := w.Run(ctx, ch); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("worker shutting down")
}
