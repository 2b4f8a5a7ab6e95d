package cache

import (
	"context"
	"fmt"
	"time"

	"cryptonite/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RedisClient *redis.Client // Exported for redis_rate

var (
	sessionLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_lookups_total",
			Help: "Session lookups by result",
		},
		[]string{"result"},
	)
	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"instance"},
	)
)

func init() {
	prometheus.MustRegister(sessionLookupsTotal)
	prometheus.MustRegister(rateLimitedTotal)
}

// InitRedis connects the shared client and verifies it with a PING.
func InitRedis(addr, password string, db int) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	logger.Log.Info("Redis connection established", zap.String("addr", addr))
	return nil
}

// Close releases the shared client.
func Close() {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Close(); err != nil {
		logger.Log.Warn("Failed to close redis client", zap.Error(err))
	}
}
