package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/dto"
	"github.com/Additional-Code/byteristo/internal/messaging"
	"github.com/Additional-Code/byteristo/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/byteristo/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		NewBoard,
		fx.Annotate(
			NewKitchenHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewKitchenHandler consumes every order event and keeps the kitchen board
// current.
func NewKitchenHandler(board *Board, logger *zap.Logger) worker.HandlerRegistration {
	logger = logger.Named("kitchen")

	handler := func(ctx context.Context, msg messaging.Message) error {
		_, span := workerTracer.Start(ctx, "worker.orders.kitchen", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.String("messaging.routing_key", msg.RoutingKey),
		))
		defer span.End()

		var event dto.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.String("routing_key", msg.RoutingKey), zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		open := board.Apply(event)
		fields := []zap.Field{
			zap.String("event", event.EventType),
			zap.String("order_id", event.Data.ID),
			zap.String("order_number", event.Data.OrderNumber),
			zap.Int("table", event.Data.TableNumber),
			zap.String("status", event.Data.Status),
			zap.Int("open_orders", board.Len()),
		}

		switch {
		case event.EventType == "order.created":
			items := make([]string, 0, len(event.Data.Items))
			for _, item := range event.Data.Items {
				items = append(items, item.MenuItemName)
			}
			logger.Info("new ticket", append(fields, zap.Strings("items", items))...)
		case !open:
			logger.Info("ticket closed", fields...)
		default:
			logger.Info("ticket updated", fields...)
		}

		return nil
	}

	return worker.HandlerRegistration{
		Pattern: "order.#",
		Handler: handler,
	}
}
