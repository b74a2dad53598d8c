package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/ecommerce-omar/tracking-api/internal/broker/messages"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer читает уведомления об изменении статуса (trackctl watch, отладка).
type Consumer struct {
	r      messageReader
	logger *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return newConsumerWithReader(kafka.NewReader(cfg), logger)
}

func newConsumerWithReader(r messageReader, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{r: r, logger: logger.With(slog.String("component", "kafka_consumer"))}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// ConsumeStatusChanged calls handler for every decoded message until ctx is done
// or the handler fails. Undecodable messages are logged and committed.
func (c *Consumer) ConsumeStatusChanged(ctx context.Context, handler func(messages.StatusChanged) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch message")
		}

		var ev messages.StatusChanged
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.logger.Warn("skip malformed status message",
				slog.String("key", string(msg.Key)),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		} else if err := handler(ev); err != nil {
			// commit только при успехе, иначе сообщение потеряется
			return err
		}

		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "commit message")
		}
	}
}
