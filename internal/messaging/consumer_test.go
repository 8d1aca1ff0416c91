package messaging_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/serroba/feedback-demo-go/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const reviewTopic = "feedback.reviewed"

type reviewEvent struct {
	FeedbackID int64  `json:"feedbackId"`
	Reviewer   string `json:"reviewer"`
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()

	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	return pubSub
}

func publishRaw(t *testing.T, pubSub message.Publisher, payload string) {
	t.Helper()

	require.NoError(t, pubSub.Publish(reviewTopic, message.NewMessage(uuid.NewString(), []byte(payload))))
}

// recorder collects handled events.
type recorder struct {
	mu     sync.Mutex
	events []reviewEvent
}

func (r *recorder) handle(_ context.Context, e *reviewEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, *e)

	return nil
}

func (r *recorder) seen() []reviewEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]reviewEvent(nil), r.events...)
}

func TestConsumer(t *testing.T) {
	t.Run("decodes events and reports its topic", func(t *testing.T) {
		pubSub := newPubSub(t)
		rec := &recorder{}
		consumer := messaging.NewConsumer(pubSub, reviewTopic, rec.handle, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		t.Cleanup(func() { _ = consumer.Shutdown() })

		assert.Equal(t, reviewTopic, consumer.Topic())

		publishRaw(t, pubSub, `{"feedbackId":7,"reviewer":"support"}`)

		require.Eventually(t, func() bool { return len(rec.seen()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, reviewEvent{FeedbackID: 7, Reviewer: "support"}, rec.seen()[0])
	})

	t.Run("fails to start on a closed subscriber", func(t *testing.T) {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
		require.NoError(t, pubSub.Close())

		consumer := messaging.NewConsumer(pubSub, reviewTopic, (&recorder{}).handle, zap.NewNop())

		require.Error(t, consumer.Start(context.Background()))
		assert.NoError(t, consumer.Shutdown(), "shutdown after a failed start returns immediately")
	})

	t.Run("shutdown without start returns immediately", func(t *testing.T) {
		consumer := messaging.NewConsumer(newPubSub(t), reviewTopic, (&recorder{}).handle, zap.NewNop())

		done := make(chan error, 1)

		go func() { done <- consumer.Shutdown() }()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("shutdown blocked on a consumer that never started")
		}
	})

	t.Run("drops undecodable payloads and keeps going", func(t *testing.T) {
		pubSub := newPubSub(t)
		core, logs := observer.New(zapcore.ErrorLevel)
		rec := &recorder{}
		consumer := messaging.NewConsumer(pubSub, reviewTopic, rec.handle, zap.New(core))

		require.NoError(t, consumer.Start(context.Background()))
		t.Cleanup(func() { _ = consumer.Shutdown() })

		publishRaw(t, pubSub, `{not json`)
		publishRaw(t, pubSub, `{"feedbackId":8}`)

		require.Eventually(t, func() bool { return len(rec.seen()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, int64(8), rec.seen()[0].FeedbackID)

		entries := logs.FilterMessage("dropping undecodable event").All()
		require.Len(t, entries, 1)
		assert.Equal(t, reviewTopic, entries[0].ContextMap()["topic"])
	})

	t.Run("redelivers events whose handler fails", func(t *testing.T) {
		pubSub := newPubSub(t)

		var attempts atomic.Int32

		consumer := messaging.NewConsumer(pubSub, reviewTopic, func(context.Context, *reviewEvent) error {
			if attempts.Add(1) == 1 {
				return assert.AnError
			}

			return nil
		}, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		t.Cleanup(func() { _ = consumer.Shutdown() })

		publishRaw(t, pubSub, `{"feedbackId":9}`)

		require.Eventually(t, func() bool { return attempts.Load() == 2 }, time.Second, 5*time.Millisecond)
	})

	t.Run("bounds each handler call", func(t *testing.T) {
		pubSub := newPubSub(t)
		deadlines := make(chan time.Duration, 1)

		consumer := messaging.NewConsumer(pubSub, reviewTopic, func(ctx context.Context, _ *reviewEvent) error {
			// Without a deadline this reports a large negative duration.
			deadline, _ := ctx.Deadline()
			deadlines <- time.Until(deadline)

			return nil
		}, zap.NewNop(), messaging.WithHandlerTimeout(time.Minute))

		require.NoError(t, consumer.Start(context.Background()))
		t.Cleanup(func() { _ = consumer.Shutdown() })

		publishRaw(t, pubSub, `{"feedbackId":10}`)

		select {
		case remaining := <-deadlines:
			assert.InDelta(t, time.Minute.Seconds(), remaining.Seconds(), 1)
		case <-time.After(time.Second):
			t.Fatal("handler was not called")
		}
	})

	t.Run("shutdown stops consumption", func(t *testing.T) {
		pubSub := newPubSub(t)
		rec := &recorder{}
		consumer := messaging.NewConsumer(pubSub, reviewTopic, rec.handle, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		require.NoError(t, consumer.Shutdown())

		publishRaw(t, pubSub, `{"feedbackId":11}`)

		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, rec.seen())
	})

	t.Run("returns when the subscriber closes", func(t *testing.T) {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
		consumer := messaging.NewConsumer(pubSub, reviewTopic, (&recorder{}).handle, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		require.NoError(t, pubSub.Close())

		done := make(chan struct{})

		go func() {
			_ = consumer.Shutdown()

			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("shutdown blocked after the subscriber closed")
		}
	})
}
