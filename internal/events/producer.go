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

// CoinsTopic carries one message per stored coin after each committed refresh.
const CoinsTopic = "market.coins"

// Generation header on every coin message.
const generationHeader = "generation"

// producer is the subset of *kafka.Producer the publisher needs.
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// Producer publishes coin snapshots to Kafka keyed by coin id.
type Producer struct {
	p     producer
	topic string
}

// NewProducer connects to brokers and starts draining delivery reports.
func NewProducer(brokers, topic string) (*Producer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	go func() {
		for e := range p.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				logger.Log.Error("Kafka delivery failed",
					zap.String("key", string(m.Key)),
					zap.Error(m.TopicPartition.Error),
				)
			}
		}
	}()

	return newProducer(p, topic), nil
}

func newProducer(p producer, topic string) *Producer {
	if topic == "" {
		topic = CoinsTopic
	}
	return &Producer{p: p, topic: topic}
}

// PublishCoin enqueues one coin.
func (p *Producer) PublishCoin(ctx context.Context, gen int64, coin models.Coin) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(coin)
	if err != nil {
		return fmt.Errorf("encode coin %s: %w", coin.ID, err)
	}

	return p.p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(coin.ID),
		Value:          value,
		Headers: []kafka.Header{
			{Key: generationHeader, Value: []byte(fmt.Sprint(gen))},
		},
		Timestamp: time.Now(),
	}, nil)
}

// PublishCoins enqueues every coin of a committed generation.
func (p *Producer) PublishCoins(ctx context.Context, gen int64, coins []models.Coin) error {
	var errs []error
	for _, c := range coins {
		if err := p.PublishCoin(ctx, gen, c); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish %d of %d coins: %w", len(errs), len(coins), errors.Join(errs...))
	}
	logger.Log.Debug("Published coins to Kafka",
		zap.String("topic", p.topic),
		zap.Int64("generation", gen),
		zap.Int("count", len(coins)),
	)
	return nil
}

// Close flushes outstanding messages and closes the producer.
func (p *Producer) Close() {
	if left := p.p.Flush(5000); left > 0 {
		logger.Log.Warn("Kafka producer closed with undelivered messages", zap.Int("pending", left))
	}
	p.p.Close()
}
