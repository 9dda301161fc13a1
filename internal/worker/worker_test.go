package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/events"
)

type ackRecorder struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

type reaperFunc func(ctx context.Context, ref assets.Ref) error

func (f reaperFunc) DeleteIfExists(ctx context.Context, ref assets.Ref) error { return f(ctx, ref) }

func delivery(t *testing.T, ack *ackRecorder, v any, redelivered bool) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body, Redelivered: redelivered}
}

func newWorker(r Reaper) *Worker {
	return New(slog.New(slog.NewJSONHandler(io.Discard, nil)), r, 0)
}

func TestHandleAssetOrphaned(t *testing.T) {
	event := events.NewAssetOrphaned("posts/post-1-2.png", uuid.New())

	t.Run("deleted", func(t *testing.T) {
		var got assets.Ref
		w := newWorker(reaperFunc(func(_ context.Context, ref assets.Ref) error {
			got = ref
			return nil
		}))
		ack := &ackRecorder{}
		w.HandleAssetOrphaned(context.Background(), delivery(t, ack, event, false))

		assert.Equal(t, assets.Ref("posts/post-1-2.png"), got)
		assert.True(t, ack.acked)
	})

	failing := reaperFunc(func(context.Context, assets.Ref) error { return errors.New("bucket unavailable") })

	t.Run("first failure requeues", func(t *testing.T) {
		ack := &ackRecorder{}
		newWorker(failing).HandleAssetOrphaned(context.Background(), delivery(t, ack, event, false))
		assert.True(t, ack.nacked)
		assert.True(t, ack.requeue)
	})

	t.Run("redelivered failure drops", func(t *testing.T) {
		ack := &ackRecorder{}
		newWorker(failing).HandleAssetOrphaned(context.Background(), delivery(t, ack, event, true))
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
	})

	t.Run("malformed body", func(t *testing.T) {
		ack := &ackRecorder{}
		w := newWorker(reaperFunc(func(context.Context, assets.Ref) error {
			t.Error("reaper called")
			return nil
		}))
		w.HandleAssetOrphaned(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
	})
}

func TestHandlePostPublished(t *testing.T) {
	w := newWorker(nil)

	t.Run("acks known event", func(t *testing.T) {
		ack := &ackRecorder{}
		w.HandlePostPublished(delivery(t, ack, events.NewPostPublished(uuid.New(), "Hello", uuid.New(), uuid.New()), false))
		assert.True(t, ack.acked)
	})

	t.Run("acks and ignores other types", func(t *testing.T) {
		ack := &ackRecorder{}
		w.HandlePostPublished(delivery(t, ack, map[string]string{"type": "post.deleted"}, false))
		assert.True(t, ack.acked)
		assert.False(t, ack.nacked)
	})

	t.Run("drops malformed", func(t *testing.T) {
		ack := &ackRecorder{}
		w.HandlePostPublished(amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
	})
}
