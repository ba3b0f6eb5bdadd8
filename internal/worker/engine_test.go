package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/messaging"
)

// flakyClient fails its first consume, then delivers one message and blocks.
type flakyClient struct {
	calls atomic.Int32
}

func (c *flakyClient) Publish(context.Context, messaging.Message) error { return nil }
func (c *flakyClient) Topic() string                                    { return "orders" }

func (c *flakyClient) Consume(ctx context.Context, handler messaging.Handler) error {
	if c.calls.Add(1) == 1 {
		return errors.New("broker down")
	}
	if err := handler(ctx, messaging.Message{RoutingKey: "order.created"}); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"order.created", "order.created", true},
		{"order.created", "order.deleted", false},
		{"order.*", "order.created", true},
		{"order.*", "order.status.ready", false},
		{"order.status.*", "order.status.ready", true},
		{"order.#", "order.status.ready", true},
		{"order.#", "order", true},
		{"#", "anything.at.all", true},
		{"#.ready", "order.status.ready", true},
		{"order.#.ready", "order.ready", true},
		{"order.#.ready", "order.status.payed", false},
		{"*.created", "menu.item.created", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.pattern, tt.key), "%s ~ %s", tt.pattern, tt.key)
	}
}

func TestDispatchUsesFirstMatchingRegistration(t *testing.T) {
	var calls []string
	record := func(name string) messaging.Handler {
		return func(context.Context, messaging.Message) error {
			calls = append(calls, name)
			return nil
		}
	}
	boom := errors.New("boom")

	engine := NewEngine(Params{
		Logger: zaptest.NewLogger(t),
		Registrations: []HandlerRegistration{
			{Pattern: "order.status.*", Handler: record("status")},
			{Pattern: "", Handler: record("ignored")},
			{Pattern: "order.deleted", Handler: func(context.Context, messaging.Message) error { return boom }},
			{Pattern: "order.#", Handler: record("catch-all")},
		},
	})

	ctx := context.Background()
	assert.NoError(t, engine.Dispatch(ctx, messaging.Message{RoutingKey: "order.status.ready"}))
	assert.NoError(t, engine.Dispatch(ctx, messaging.Message{RoutingKey: "order.created"}))
	assert.ErrorIs(t, engine.Dispatch(ctx, messaging.Message{RoutingKey: "order.deleted"}), boom)
	assert.NoError(t, engine.Dispatch(ctx, messaging.Message{RoutingKey: "menu.updated"}))

	assert.Equal(t, []string{"status", "catch-all"}, calls)
}

func TestStartDisabledIsNoop(t *testing.T) {
	engine := NewEngine(Params{Logger: zaptest.NewLogger(t)})

	assert.NoError(t, engine.start(context.Background()))
	assert.NoError(t, engine.stop(context.Background()))
}

func TestEngineRetriesFailedConsume(t *testing.T) {
	client := &flakyClient{}
	handled := make(chan string, 1)

	engine := NewEngine(Params{
		Client: client,
		Logger: zap.NewNop(),
		Config: config.Config{Messaging: config.Messaging{
			Enabled: true,
			Workers: config.Worker{Enabled: true, Concurrency: 1, RetryDelay: time.Millisecond, MaxRetryDelay: time.Millisecond},
		}},
		Registrations: []HandlerRegistration{{
			Pattern: "order.#",
			Handler: func(_ context.Context, msg messaging.Message) error {
				handled <- msg.RoutingKey
				return nil
			},
		}},
	})

	require.NoError(t, engine.start(context.Background()))

	select {
	case key := <-handled:
		assert.Equal(t, "order.created", key)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not dispatched after retry")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, engine.stop(ctx))
	assert.Equal(t, int32(2), client.calls.Load())
}
