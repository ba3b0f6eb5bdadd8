package messaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/config"
)

// kafkaClient implements the Client via kafka-go. The routing key travels as
// a message header so consumers can dispatch on event type.
type kafkaClient struct {
	writer *kafka.Writer
	reader kafkaReader
	topic  string
	logger *zap.Logger
}

func (k *kafkaClient) Publish(ctx context.Context, msg Message) error {
	return k.writer.WriteMessages(ctx, toKafka(msg))
}

// kafkaReader is the part of *kafka.Reader the consumer uses.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consume returns on the first fetch error and leaves the retry to the caller.
// The offset is committed even when the handler fails, so a failed event is
// logged and dropped.
func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	for {
		raw, err := k.reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("fetch from %s: %w", k.topic, err)
		}

		if err := handler(ctx, fromKafka(raw)); err != nil {
			k.logger.Error("order event handler failed, dropping message",
				zap.String("topic", raw.Topic), zap.Int64("offset", raw.Offset), zap.Error(err))
		}
		if err := k.reader.CommitMessages(ctx, raw); err != nil {
			k.logger.Warn("kafka commit failed", zap.Int64("offset", raw.Offset), zap.Error(err))
		}
	}
}

func toKafka(msg Message) kafka.Message {
	out := kafka.Message{Key: msg.Key, Value: msg.Value, Time: msg.Time}
	if msg.RoutingKey != "" {
		out.Headers = append(out.Headers, kafka.Header{Key: routingKeyHeader, Value: []byte(msg.RoutingKey)})
	}
	for name, value := range msg.Headers {
		out.Headers = append(out.Headers, kafka.Header{Key: name, Value: []byte(value)})
	}
	return out
}

func fromKafka(raw kafka.Message) Message {
	msg := Message{
		Topic:  raw.Topic,
		Key:    bytes.Clone(raw.Key),
		Value:  bytes.Clone(raw.Value),
		Offset: raw.Offset,
		Time:   raw.Time,
	}
	for _, h := range raw.Headers {
		if h.Key == routingKeyHeader {
			msg.RoutingKey = string(h.Value)
			continue
		}
		if msg.Headers == nil {
			msg.Headers = make(map[string]string, len(raw.Headers))
		}
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

func (k *kafkaClient) Topic() string { return k.topic }

func newKafkaClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	topic := cfg.Messaging.Kafka.Topic

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Messaging.Kafka.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Logger:                 kafkaLogger{logger: logger},
		ErrorLogger:            kafkaLogger{logger: logger},
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Messaging.Kafka.Brokers,
		GroupID:        cfg.Messaging.ConsumerGroup,
		Topic:          topic,
		MinBytes:       cfg.Messaging.Kafka.MinBytes,
		MaxBytes:       cfg.Messaging.Kafka.MaxBytes,
		CommitInterval: cfg.Messaging.Kafka.CommitInterval,
		Dialer: &kafka.Dialer{
			Timeout:  cfg.Messaging.Kafka.ConnectTimeout,
			ClientID: cfg.Messaging.Kafka.ClientID,
		},
	})

	client := &kafkaClient{writer: writer, reader: reader, topic: topic, logger: logger}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing kafka client")

			return errors.Join(writer.Close(), reader.Close())
		},
	})

	return client, nil
}

type kafkaLogger struct {
	logger *zap.Logger
}

func (k kafkaLogger) Printf(msg string, args ...interface{}) {
	k.logger.Sugar().Debugf(msg, args...)
}
