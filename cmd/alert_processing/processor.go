package main

import (
	"context"
	"sync"
	"time"

	"cryptonite/internal/alerts"
	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"go.uber.org/zap"
)

type publishFunc func(ctx context.Context, ev models.Event) error

// processor evaluates coin updates and publishes alert events, at most one
// per coin per cooldown.
type processor struct {
	evaluator alerts.Evaluator
	cooldown  time.Duration
	publish   publishFunc
	now       func() time.Time

	mu            sync.Mutex
	lastAlertTime map[string]time.Time // coin id -> last published
}

func newProcessor(e alerts.Evaluator, cooldown time.Duration, publish publishFunc) *processor {
	return &processor{
		evaluator:     e,
		cooldown:      cooldown,
		publish:       publish,
		now:           time.Now,
		lastAlertTime: make(map[string]time.Time),
	}
}

func (p *processor) process(ctx context.Context, coin models.Coin) {
	messages := p.evaluator.Evaluate(coin)
	if len(messages) == 0 {
		return
	}

	now := p.now()
	if !p.claim(coin.ID, now) {
		logger.Log.Debug("Alert suppressed, cooldown active", zap.String("coin_id", coin.ID))
		return
	}

	record := models.AlertRecord{
		CoinID:     coin.ID,
		CryptoName: coin.Name,
		Messages:   messages,
		CreatedAt:  now.UTC(),
	}
	err := p.publish(ctx, models.Event{Type: models.EventAlert, Alert: &record, Timestamp: now.UTC()})
	if err != nil {
		logger.Log.Error("Failed to publish alert", zap.String("coin_id", coin.ID), zap.Error(err))
		p.release(coin.ID, now)
		return
	}
	logger.Log.Info("Alert published",
		zap.String("coin_id", coin.ID),
		zap.Int("messages", len(messages)),
	)
}

// claim records now as the last alert for id unless the cooldown is active.
func (p *processor) claim(id string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.lastAlertTime[id]; ok && now.Sub(last) < p.cooldown {
		return false
	}
	p.lastAlertTime[id] = now
	return true
}

// release undoes a claim so a failed publish is retried on the next update.
func (p *processor) release(id string, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastAlertTime[id].Equal(at) {
		delete(p.lastAlertTime, id)
	}
}
