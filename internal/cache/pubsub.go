package cache

import (
	"context"
	"encoding/json"
	"time"

	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel names shared by publishers and the stream handlers.
const (
	AlertsChannel  = "price_alerts"
	RefreshChannel = "market_refresh"
)

// PublishMessage publishes a message to a Redis channel
func PublishMessage(ctx context.Context, channel string, message string) error {
	return RedisClient.Publish(ctx, channel, message).Err()
}

// PublishEvent encodes ev as JSON and publishes it.
func PublishEvent(ctx context.Context, channel string, ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return PublishMessage(ctx, channel, string(data))
}

// RefreshNotifier announces committed generations on RefreshChannel.
type RefreshNotifier struct{}

func (RefreshNotifier) PublishCoins(ctx context.Context, gen int64, coins []models.Coin) error {
	return PublishEvent(ctx, RefreshChannel, models.Event{
		Type:       models.EventRefresh,
		Generation: gen,
		Coins:      len(coins),
		Timestamp:  time.Now().UTC(),
	})
}

// RedisSubscriber represents a subscription to one or more Redis channels
type RedisSubscriber struct {
	pubsub *redis.PubSub
}

// NewRedisSubscriber creates a new Redis subscriber
func NewRedisSubscriber(ctx context.Context, channels ...string) (*RedisSubscriber, error) {
	pubsub := RedisClient.Subscribe(ctx, channels...)

	// Confirm subscription
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	logger.Log.Info("Subscribed to Redis channels", zap.Strings("channels", channels))
	return &RedisSubscriber{pubsub: pubsub}, nil
}

// ReceiveMessage waits for and returns the next message
func (s *RedisSubscriber) ReceiveMessage(ctx context.Context) (*redis.Message, error) {
	return s.pubsub.ReceiveMessage(ctx)
}

// Close closes the subscription
func (s *RedisSubscriber) Close() error {
	return s.pubsub.Close()
}
