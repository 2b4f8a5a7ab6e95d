package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptonite/internal/alerts"
	"cryptonite/internal/auth"
	"cryptonite/internal/cache"
	"cryptonite/internal/coingecko"
	"cryptonite/internal/config"
	"cryptonite/internal/database"
	"cryptonite/internal/events"
	"cryptonite/internal/favourites"
	"cryptonite/internal/handlers"
	"cryptonite/internal/logger"
	"cryptonite/internal/market"
	"cryptonite/internal/memstore"
	"cryptonite/internal/notify"
	"cryptonite/internal/refresh"
	"cryptonite/internal/tracing"

	"go.uber.org/zap"
)

// backend is everything the API stores.
type backend interface {
	market.Store
	favourites.Store
	auth.UserStore
}

func main() {
	port := flag.String("port", "", "Port for the API (overrides PORT)")
	instance := flag.String("instance", "", "Instance ID for this server (overrides INSTANCE_ID)")
	flag.Parse()

	logger.InitLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *instance != "" {
		cfg.InstanceID = *instance
	}

	shutdownTracer, err := tracing.InitTracer()
	if err != nil {
		logger.Log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.HealthCheck{}

	var store backend
	switch cfg.StoreDriver {
	case "memory":
		logger.Log.Warn("Using in-memory store, data will not survive a restart")
		store = memstore.New()
	default:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		store = db
		checks["postgres"] = db.Ping
	}

	if err := cache.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer cache.Close()
	checks["redis"] = func(ctx context.Context) error { return cache.RedisClient.Ping(ctx).Err() }

	publishers := refresh.Publishers{cache.RefreshNotifier{}}
	producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		logger.Log.Warn("Kafka producer unavailable, coin events disabled", zap.Error(err))
	} else {
		defer producer.Close()
		publishers = append(publishers, producer)
	}

	reconciler := refresh.NewReconciler(
		store,
		coingecko.NewClient(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey, cfg.FetchTimeout),
		publishers,
		cache.NewLock(cache.RedisClient, "lock:market-refresh", 2*time.Minute),
		refresh.Config{CoinIDs: cfg.CoinIDs, Workers: cfg.RefreshWorkers},
	)

	// The startup pass is bounded so a slow market API only delays, never blocks, serving.
	startCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout+5*time.Second)
	if res, err := reconciler.Refresh(startCtx); err != nil {
		logger.Log.Error("Startup refresh failed, serving stored data", zap.Error(err))
	} else if res.Degraded {
		logger.Log.Warn("Startup refresh degraded, serving stored data")
	}
	cancel()

	go refresh.NewScheduler(reconciler, cfg.RefreshInterval).Loop(ctx)

	hub := handlers.NewHub()
	subscriber, err := cache.NewRedisSubscriber(ctx, cache.AlertsChannel, cache.RefreshChannel)
	if err != nil {
		logger.Log.Error("Failed to create Redis subscriber, streams will stay silent", zap.Error(err))
	} else {
		defer subscriber.Close()
		go hub.Listen(ctx, subscriber)
	}

	proxies, err := handlers.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Log.Fatal("Invalid TRUSTED_PROXIES", zap.Error(err))
	}

	mkt := market.NewService(store)
	srv := &handlers.Server{
		Market:     mkt,
		Favourites: favourites.NewService(store, mkt),
		Auth:       auth.NewService(store, cache.NewSessionStore(cache.RedisClient, cfg.SessionTTL)),
		Evaluator:  alerts.NewEvaluator(cfg.Thresholds),
		Notifications: func(userID string) notify.Persister {
			return notify.NewRedisPersister(cache.RedisClient, userID)
		},
		Hub:        hub,
		Limiter:    cache.NewRateLimiter(cache.RedisClient, cfg.RateLimitPerMinute, cfg.InstanceID),
		Checks:     checks,
		Instance:   cfg.InstanceID,
		StaticDir:  cfg.StaticDir,
		SessionTTL: cfg.SessionTTL,

		AllowedOrigins: cfg.CORSOrigins,
		TrustedProxies: proxies,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("API server starting",
			zap.String("port", cfg.Port),
			zap.String("instance", cfg.InstanceID),
			zap.String("store", cfg.StoreDriver),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down API server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
