// Command dbcheck verifies that Postgres and Redis are reachable.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"cryptonite/internal/cache"
	"cryptonite/internal/config"
	"cryptonite/internal/database"
	"cryptonite/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger.InitLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
		return 1
	}

	failed := false

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		fmt.Println("❌ Database connection failed:", err)
		failed = true
	} else {
		defer db.Close()
		fmt.Println("✅ Successfully connected to the database!")
	}

	if err := cache.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		fmt.Println("❌ Redis connection failed:", err)
		failed = true
	} else {
		defer cache.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		fmt.Println("✅ Successfully connected to Redis! Server time:", cache.RedisClient.Time(ctx).Val().Format(time.RFC3339))
	}

	if failed {
		return 1
	}
	return 0
}
