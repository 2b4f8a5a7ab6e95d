package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Handler is called for every decoded coin message.
type Handler func(ctx context.Context, coin models.Coin)

// reader is the subset of *kafka.Consumer the loop needs.
type reader interface {
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
	Close() error
}

// Consumer reads coin snapshots from Kafka.
type Consumer struct {
	c reader
}

// NewConsumer joins groupID and subscribes to topic.
func NewConsumer(brokers, groupID, topic string) (*Consumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"group.id":          groupID,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if topic == "" {
		topic = CoinsTopic
	}
	if err := c.Subscribe(topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return &Consumer{c: c}, nil
}

// Run delivers messages to h until ctx is cancelled. Undecodable messages are
// logged and skipped.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		msg, err := c.c.ReadMessage(time.Second)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) && kerr.IsTimeout() {
				continue
			}
			logger.Log.Error("Kafka consumer error", zap.Error(err))
			continue
		}

		var coin models.Coin
		if err := json.Unmarshal(msg.Value, &coin); err != nil {
			logger.Log.Warn("Skipping undecodable coin message",
				zap.String("key", string(msg.Key)),
				zap.Error(err),
			)
			continue
		}
		h(ctx, coin)
	}
}

func (c *Consumer) Close() error {
	return c.c.Close()
}
