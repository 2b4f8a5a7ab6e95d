package refresh

import (
	"context"
	"errors"
	"time"

	"cryptonite/internal/logger"

	"go.uber.org/zap"
)

// Scheduler runs passes one after another. A pass never starts while the
// previous one is still running.
type Scheduler struct {
	reconciler *Reconciler
	interval   time.Duration
}

func NewScheduler(r *Reconciler, interval time.Duration) *Scheduler {
	return &Scheduler{reconciler: r, interval: interval}
}

// Run blocks until ctx is done. With a non-positive interval it returns after
// the first pass.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)
	s.Loop(ctx)
}

// Loop runs a pass every interval, without an initial one, until ctx is done.
func (s *Scheduler) Loop(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	res, err := s.reconciler.Refresh(ctx)
	if errors.Is(err, ErrRefreshInProgress) {
		logger.Log.Info("Skipping scheduled refresh, previous pass still running")
		return
	}
	if err != nil {
		logger.Log.Error("Scheduled refresh failed", zap.Error(err))
		return
	}
	logger.Log.Debug("Scheduled refresh finished",
		zap.Int64("generation", res.Generation),
		zap.Bool("degraded", res.Degraded),
	)
}
