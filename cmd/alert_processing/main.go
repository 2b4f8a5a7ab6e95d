package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cryptonite/internal/alerts"
	"cryptonite/internal/cache"
	"cryptonite/internal/config"
	"cryptonite/internal/events"
	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"go.uber.org/zap"
)

func main() {
	logger.InitLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if err := cache.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer cache.Close()

	consumer, err := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic)
	if err != nil {
		logger.Log.Fatal("Failed to create Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newProcessor(alerts.NewEvaluator(cfg.Thresholds), cfg.AlertCooldown, publishAlert)

	logger.Log.Info("Listening for coin updates",
		zap.String("topic", cfg.KafkaTopic),
		zap.Duration("cooldown", cfg.AlertCooldown),
	)
	if err := consumer.Run(ctx, p.process); err != nil {
		logger.Log.Error("Consumer stopped", zap.Error(err))
	}
}

// publishAlert hands the event to the API instances through Redis.
func publishAlert(ctx context.Context, ev models.Event) error {
	return cache.PublishEvent(ctx, cache.AlertsChannel, ev)
}
