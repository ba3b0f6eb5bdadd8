// Package notifier publishes order lifecycle events without holding up the
// request that caused them.
package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/dto"
	"github.com/Additional-Code/byteristo/internal/entity"
	"github.com/Additional-Code/byteristo/internal/messaging"
)

var notifierTracer = otel.Tracer("github.com/Additional-Code/byteristo/notifier")

// Module provides the notifier and drains in-flight publishes on stop.
var Module = fx.Options(
	fx.Provide(NewFromConfig),
	fx.Invoke(func(lc fx.Lifecycle, n *Notifier) {
		lc.Append(fx.Hook{OnStop: n.Close})
	}),
)

// Notifier publishes order events asynchronously. Failures are logged and
// never reach the caller.
type Notifier struct {
	client  messaging.Client
	timeout time.Duration
	logger  *zap.Logger
	clock   func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewFromConfig builds a notifier from the Fx graph.
func NewFromConfig(client messaging.Client, cfg config.Config, logger *zap.Logger) *Notifier {
	return New(client, cfg.Messaging.PublishTimeout, logger)
}

// New builds a notifier publishing through client with a per-event timeout.
func New(client messaging.Client, timeout time.Duration, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{client: client, timeout: timeout, logger: logger, clock: time.Now}
}

// Notify snapshots the order and publishes it in the background. The
// publish runs on a context detached from ctx so that request cancellation
// does not drop the event.
func (n *Notifier) Notify(ctx context.Context, eventType string, order *entity.Order) {
	if n == nil || n.client == nil || order == nil {
		return
	}

	event := dto.OrderEvent{
		EventType: eventType,
		Timestamp: n.clock(),
		Data:      dto.NewOrder(order),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal order event", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	msg := messaging.Message{
		Topic:      n.client.Topic(),
		RoutingKey: eventType,
		Key:        []byte(order.ID),
		Value:      payload,
		Time:       event.Timestamp,
	}
	link := trace.LinkFromContext(ctx)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.logger.Warn("notifier closed, dropping order event",
			zap.String("event_type", eventType), zap.String("order_id", order.ID))
		return
	}
	n.inflight.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.inflight.Done()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		pubCtx, span := notifierTracer.Start(pubCtx, "Notifier.Publish",
			trace.WithLinks(link),
			trace.WithAttributes(
				attribute.String("messaging.destination", msg.Topic),
				attribute.String("messaging.routing_key", eventType),
				attribute.String("order.id", order.ID),
			))
		defer span.End()

		if err := n.client.Publish(pubCtx, msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "publish failed")
			n.logger.Error("publish order event failed",
				zap.String("event_type", eventType),
				zap.String("order_number", event.Data.OrderNumber),
				zap.Error(err),
			)
			return
		}
		n.logger.Info("published order event",
			zap.String("event_type", eventType),
			zap.String("order_number", event.Data.OrderNumber),
		)
	}()
}

// Close stops accepting events and blocks until in-flight publishes finish
// or ctx ends.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
