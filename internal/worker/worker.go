// Package worker consumes content events: it logs publications for the
// notification pipeline and reaps assets the API failed to delete.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/events"
	"github.com/jeremyjsx/inkwell/internal/metrics"
)

const consumerTag = "content-worker"

// Reaper deletes a stored asset. A missing asset is not an error.
type Reaper interface {
	DeleteIfExists(ctx context.Context, ref assets.Ref) error
}

type Worker struct {
	logger  *slog.Logger
	reaper  Reaper
	timeout time.Duration
}

func New(logger *slog.Logger, reaper Reaper, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Worker{logger: logger, reaper: reaper, timeout: timeout}
}

// Setup declares the exchange and both queues and binds each queue to the
// event type it consumes.
func Setup(ch *amqp.Channel) error {
	if err := events.DeclareExchange(ch); err != nil {
		return err
	}
	bindings := map[string]string{
		events.QueuePostPublished: events.TypePostPublished,
		events.QueueAssetOrphaned: events.TypeAssetOrphaned,
	}
	for queue, key := range bindings {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, events.ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// Run consumes both queues until ctx is done or a delivery channel closes.
func (w *Worker) Run(ctx context.Context, ch *amqp.Channel) error {
	published, err := ch.Consume(events.QueuePostPublished, consumerTag+"-published", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", events.QueuePostPublished, err)
	}
	orphaned, err := ch.Consume(events.QueueAssetOrphaned, consumerTag+"-orphaned", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", events.QueueAssetOrphaned, err)
	}

	w.logger.Info("worker started", "queues", []string{events.QueuePostPublished, events.QueueAssetOrphaned})
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-published:
			if !ok {
				return fmt.Errorf("delivery channel %s closed", events.QueuePostPublished)
			}
			w.HandlePostPublished(d)
		case d, ok := <-orphaned:
			if !ok {
				return fmt.Errorf("delivery channel %s closed", events.QueueAssetOrphaned)
			}
			w.HandleAssetOrphaned(ctx, d)
		}
	}
}

func (w *Worker) HandlePostPublished(d amqp.Delivery) {
	var e events.PostPublished
	if err := json.Unmarshal(d.Body, &e); err != nil {
		w.logger.Error("invalid event body", "error", err)
		_ = d.Nack(false, false)
		return
	}
	if e.Type != events.TypePostPublished {
		w.logger.Debug("ignoring event type", "type", e.Type)
		_ = d.Ack(false)
		return
	}
	w.logger.Info("post published event received",
		"post_id", e.Payload.PostID,
		"title", e.Payload.Title,
		"category_id", e.Payload.CategoryID,
		"author_id", e.Payload.AuthorID,
	)

	if err := d.Ack(false); err != nil {
		w.logger.Error("failed to ack", "error", err)
	}
}

// HandleAssetOrphaned deletes the named asset. A failed delete is requeued
// once; a redelivered message that fails again is dropped and counted.
func (w *Worker) HandleAssetOrphaned(ctx context.Context, d amqp.Delivery) {
	var e events.AssetOrphaned
	if err := json.Unmarshal(d.Body, &e); err != nil || e.Payload.Ref == "" {
		w.logger.Error("invalid event body", "error", err)
		metrics.AssetsReaped.WithLabelValues("invalid").Inc()
		_ = d.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	err := w.reaper.DeleteIfExists(ctx, assets.Ref(e.Payload.Ref))
	if err == nil {
		metrics.AssetsReaped.WithLabelValues("deleted").Inc()
		w.logger.Info("orphaned asset reaped", "ref", e.Payload.Ref, "post_id", e.Payload.PostID)
		if err := d.Ack(false); err != nil {
			w.logger.Error("failed to ack", "error", err)
		}
		return
	}

	if !d.Redelivered {
		metrics.AssetsReaped.WithLabelValues("retried").Inc()
		w.logger.Warn("reap failed, requeueing", "ref", e.Payload.Ref, "error", err)
		_ = d.Nack(false, true)
		return
	}
	metrics.AssetsReaped.WithLabelValues("dropped").Inc()
	w.logger.Error("reap failed after redelivery, dropping", "ref", e.Payload.Ref, "post_id", e.Payload.PostID, "error", err)
	_ = d.Nack(false, false)
}
