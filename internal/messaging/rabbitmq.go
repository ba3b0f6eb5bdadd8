package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/config"
)

const exchangeKind = "topic"

// rabbitClient publishes to a durable topic exchange. The connection is
// dialled on first use and re-dialled whenever the broker closed it.
type rabbitClient struct {
	cfg      config.RabbitMQ
	prefetch int
	logger   *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func newRabbitClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) Client {
	client := &rabbitClient{
		cfg:      cfg.Messaging.RabbitMQ,
		prefetch: cfg.Messaging.Workers.Concurrency,
		logger:   logger,
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing rabbitmq client")

			return client.Close()
		},
	})

	return client
}

func (r *rabbitClient) Topic() string { return r.cfg.Exchange }

func (r *rabbitClient) Publish(ctx context.Context, msg Message) error {
	ch, err := r.channel()
	if err != nil {
		return err
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    string(msg.Key),
		Timestamp:    msg.Time,
		Body:         msg.Value,
	}
	if len(msg.Headers) > 0 {
		publishing.Headers = make(amqp.Table, len(msg.Headers))
		for k, v := range msg.Headers {
			publishing.Headers[k] = v
		}
	}

	if err := ch.PublishWithContext(ctx, r.cfg.Exchange, msg.RoutingKey, false, false, publishing); err != nil {
		r.reset()
		return fmt.Errorf("publish to %s: %w", r.cfg.Exchange, err)
	}
	return nil
}

// Consume binds the configured queue to the exchange and delivers messages
// until ctx is cancelled or the channel closes.
func (r *rabbitClient) Consume(ctx context.Context, handler Handler) error {
	conn, err := r.connection()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := r.declare(ch); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(r.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", r.cfg.Queue, err)
	}
	if err := ch.QueueBind(r.cfg.Queue, r.cfg.BindingKey, r.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", r.cfg.Queue, err)
	}
	if r.prefetch > 0 {
		if err := ch.Qos(r.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}

	deliveries, err := ch.ConsumeWithContext(ctx, r.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", r.cfg.Queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("rabbitmq deliveries channel closed")
			}

			msg := Message{
				Topic:      d.Exchange,
				RoutingKey: d.RoutingKey,
				Key:        []byte(d.MessageId),
				Value:      d.Body,
				Offset:     int64(d.DeliveryTag),
				Time:       d.Timestamp,
			}
			if len(d.Headers) > 0 {
				msg.Headers = make(map[string]string, len(d.Headers))
				for k, v := range d.Headers {
					msg.Headers[k] = fmt.Sprint(v)
				}
			}

			if err := handler(ctx, msg); err != nil {
				r.logger.Error("message handler failed", zap.Error(err), zap.String("routing_key", d.RoutingKey))
				if nackErr := d.Nack(false, false); nackErr != nil {
					r.logger.Warn("nack failed", zap.Error(nackErr))
				}
				continue
			}
			if err := d.Ack(false); err != nil {
				r.logger.Warn("ack failed", zap.Error(err))
			}
		}
	}
}

// Close releases the channel and connection.
func (r *rabbitClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.ch != nil && !r.ch.IsClosed() {
		errs = append(errs, r.ch.Close())
	}
	if r.conn != nil && !r.conn.IsClosed() {
		errs = append(errs, r.conn.Close())
	}
	r.ch, r.conn = nil, nil
	return errors.Join(errs...)
}

func (r *rabbitClient) channel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		return r.ch, nil
	}

	conn, err := r.dialLocked()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := r.declare(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}

	r.ch = ch
	return ch, nil
}

func (r *rabbitClient) connection() (*amqp.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dialLocked()
}

func (r *rabbitClient) dialLocked() (*amqp.Connection, error) {
	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn, nil
	}

	conn, err := amqp.DialConfig(r.cfg.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial:      amqp.DefaultDial(5 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	r.logger.Info("rabbitmq connected", zap.String("exchange", r.cfg.Exchange))

	r.conn = conn
	r.ch = nil
	return conn, nil
}

func (r *rabbitClient) declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(r.cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", r.cfg.Exchange, err)
	}
	return nil
}

// reset drops the publishing channel so the next publish re-dials.
func (r *rabbitClient) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil {
		_ = r.ch.Close()
		r.ch = nil
	}
}
