// Command watch is a terminal client for the market API. It evaluates alerts
// locally and keeps its notification state in a file between runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cryptonite/internal/alerts"
	"cryptonite/internal/config"
	"cryptonite/internal/logger"
	"cryptonite/internal/notify"

	"go.uber.org/zap"
)

const usage = `usage: watch [flags] <command> [coin-id]

commands:
  coins          list stored coins
  list           run an alert pass and show notifications
  view <id>      mark a notification as viewed
  dismiss <id>   dismiss a viewed notification
  reset          clear notification state and rerun the alert pass
  reload         reset and show every current alert
  follow         stream refresh and alert events
`

func main() {
	server := flag.String("server", "http://localhost:5000", "Base URL of the API")
	state := flag.String("state", defaultStatePath(), "File holding notification state")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger.InitLogger()
	defer logger.Sync()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := notify.NewManager(ctx, notify.NewFilePersister(*state))
	if err != nil {
		logger.Log.Fatal("Failed to load notification state", zap.Error(err))
	}

	c := &cli{
		api:       newAPIClient(*server, 10*time.Second),
		evaluator: alerts.NewEvaluator(cfg.Thresholds),
		manager:   manager,
		out:       os.Stdout,
	}
	if err := c.run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "cryptonite-notifications.json"
	}
	return filepath.Join(dir, "cryptonite", "notifications.json")
}
