// Command ingestion runs the market data refresh without serving HTTP. It
// writes to Postgres and shares the refresh lock with the API instances.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptonite/internal/cache"
	"cryptonite/internal/coingecko"
	"cryptonite/internal/config"
	"cryptonite/internal/database"
	"cryptonite/internal/events"
	"cryptonite/internal/logger"
	"cryptonite/internal/refresh"
	"cryptonite/internal/tracing"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Run a single refresh pass and exit")
	flag.Parse()

	logger.InitLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.StoreDriver != "postgres" {
		logger.Log.Fatal("Ingestion needs a shared store, set STORE_DRIVER=postgres")
	}

	shutdownTracer, err := tracing.InitTracer()
	if err != nil {
		logger.Log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	if err := cache.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer cache.Close()

	producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		logger.Log.Fatal("Failed to create Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	reconciler := refresh.NewReconciler(
		db,
		coingecko.NewClient(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey, cfg.FetchTimeout),
		refresh.Publishers{cache.RefreshNotifier{}, producer},
		cache.NewLock(cache.RedisClient, "lock:market-refresh", 2*time.Minute),
		refresh.Config{CoinIDs: cfg.CoinIDs, Workers: cfg.RefreshWorkers},
	)

	interval := cfg.RefreshInterval
	if *once {
		interval = 0
	} else if interval <= 0 {
		interval = 5 * time.Minute
	}

	logger.Log.Info("Ingestion started",
		zap.Strings("coins", cfg.CoinIDs),
		zap.Duration("interval", interval),
	)
	refresh.NewScheduler(reconciler, interval).Run(ctx)
	logger.Log.Info("Ingestion stopped")
}
