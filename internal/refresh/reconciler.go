package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"cryptonite/internal/logger"
	"cryptonite/internal/market"
	"cryptonite/internal/models"
	"cryptonite/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrRefreshInProgress is returned when a pass is already running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Fetcher returns one snapshot from the external market data source.
type Fetcher interface {
	FetchMarkets(ctx context.Context, ids []string) ([]models.Coin, error)
}

// Publisher is told about every committed generation.
type Publisher interface {
	PublishCoins(ctx context.Context, gen int64, coins []models.Coin) error
}

// Publishers fans a committed generation out to several publishers.
type Publishers []Publisher

func (ps Publishers) PublishCoins(ctx context.Context, gen int64, coins []models.Coin) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishCoins(ctx, gen, coins); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Locker guards a pass across processes. release must be called when ok is true.
type Locker interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// Result summarizes one pass.
type Result struct {
	Fetched    int   `json:"fetched"`
	Unique     int   `json:"unique"`
	Written    int   `json:"written"`
	Skipped    int   `json:"skipped"`
	Generation int64 `json:"generation"`
	Degraded   bool  `json:"degraded"`
}

// Config holds what a Reconciler needs besides its collaborators.
type Config struct {
	CoinIDs []string
	Workers int
}

// Reconciler pulls a snapshot and swaps it into the store as a new generation.
type Reconciler struct {
	store     market.Writer
	fetcher   Fetcher
	publisher Publisher
	locker    Locker
	cfg       Config

	mu sync.Mutex
}

// NewReconciler wires a reconciler. publisher and locker may be nil.
func NewReconciler(store market.Writer, fetcher Fetcher, publisher Publisher, locker Locker, cfg Config) *Reconciler {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Reconciler{
		store:     store,
		fetcher:   fetcher,
		publisher: publisher,
		locker:    locker,
		cfg:       cfg,
	}
}

// Refresh runs one pass. Fetch failures and empty snapshots leave the store
// untouched and report a degraded result without an error; only storage
// failures that prevent the swap are returned.
func (r *Reconciler) Refresh(ctx context.Context) (Result, error) {
	if !r.mu.TryLock() {
		passesTotal.WithLabelValues("busy").Inc()
		return Result{}, ErrRefreshInProgress
	}
	defer r.mu.Unlock()

	if r.locker != nil {
		release, ok, err := r.locker.Acquire(ctx)
		switch {
		case err != nil:
			logger.Log.Warn("Refresh lock unavailable, continuing with local lock only", zap.Error(err))
		case !ok:
			passesTotal.WithLabelValues("busy").Inc()
			return Result{}, ErrRefreshInProgress
		default:
			defer release()
		}
	}

	ctx, span := tracing.Tracer().Start(ctx, "refresh.Refresh")
	defer span.End()

	coins, err := r.fetcher.FetchMarkets(ctx, r.cfg.CoinIDs)
	if err != nil {
		logger.Log.Warn("Market data fetch failed, keeping stored coins", zap.Error(err))
		span.RecordError(err)
		passesTotal.WithLabelValues("fetch_failed").Inc()
		return Result{Degraded: true}, nil
	}
	res := Result{Fetched: len(coins)}
	if len(coins) == 0 {
		logger.Log.Warn("Market data snapshot is empty, keeping stored coins")
		passesTotal.WithLabelValues("empty").Inc()
		res.Degraded = true
		return res, nil
	}

	unique := Dedupe(coins)
	res.Unique = len(unique)

	gen, err := r.store.BeginGeneration(ctx)
	if err != nil {
		passesTotal.WithLabelValues("storage_failed").Inc()
		return res, fmt.Errorf("begin generation: %w", err)
	}
	res.Generation = gen

	written := r.upsertAll(ctx, gen, unique)
	res.Written = len(written)
	res.Skipped = len(unique) - len(written)
	recordsWrittenTotal.Add(float64(res.Written))
	recordsSkippedTotal.Add(float64(res.Skipped))

	if len(written) == 0 {
		logger.Log.Error("Every upsert failed, abandoning generation", zap.Int64("generation", gen))
		if err := r.store.AbortGeneration(ctx, gen); err != nil {
			logger.Log.Error("Failed to abort generation", zap.Int64("generation", gen), zap.Error(err))
		}
		passesTotal.WithLabelValues("storage_failed").Inc()
		res.Degraded = true
		return res, nil
	}

	if err := r.store.CommitGeneration(ctx, gen); err != nil {
		if abortErr := r.store.AbortGeneration(ctx, gen); abortErr != nil {
			logger.Log.Error("Failed to abort generation", zap.Int64("generation", gen), zap.Error(abortErr))
		}
		passesTotal.WithLabelValues("storage_failed").Inc()
		return res, fmt.Errorf("commit generation %d: %w", gen, err)
	}
	storedCoins.Set(float64(len(written)))
	passesTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(
		attribute.Int64("generation", gen),
		attribute.Int("written", res.Written),
		attribute.Int("skipped", res.Skipped),
	)

	logger.Log.Info("Market data refreshed",
		zap.Int64("generation", gen),
		zap.Int("fetched", res.Fetched),
		zap.Int("written", res.Written),
		zap.Int("skipped", res.Skipped),
	)

	if r.publisher != nil {
		if err := r.publisher.PublishCoins(ctx, gen, written); err != nil {
			logger.Log.Warn("Failed to publish refreshed coins", zap.Int64("generation", gen), zap.Error(err))
		}
	}
	return res, nil
}

// upsertAll writes coins with a bounded pool and returns the ones that were
// written, in input order. Failed records are logged and skipped.
func (r *Reconciler) upsertAll(ctx context.Context, gen int64, coins []models.Coin) []models.Coin {
	ok := make([]bool, len(coins))
	var failures atomic.Int64

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := r.store.UpsertCoin(ctx, gen, coins[i]); err != nil {
					failures.Add(1)
					logger.Log.Error("Failed to upsert coin",
						zap.String("coin_id", coins[i].ID),
						zap.Int64("generation", gen),
						zap.Error(err),
					)
					continue
				}
				ok[i] = true
			}
		}()
	}
	for i := range coins {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	written := make([]models.Coin, 0, len(coins)-int(failures.Load()))
	for i, c := range coins {
		if ok[i] {
			written = append(written, c)
		}
	}
	return written
}

// Dedupe keeps one record per id, the one with the latest LastUpdated.
// Records without an id cannot be keyed and are dropped. Order follows the
// first appearance of each id.
func Dedupe(coins []models.Coin) []models.Coin {
	index := make(map[string]int, len(coins))
	out := make([]models.Coin, 0, len(coins))
	for _, c := range coins {
		if c.ID == "" {
			logger.Log.Warn("Dropping market record without id", zap.String("name", c.Name))
			continue
		}
		i, seen := index[c.ID]
		if !seen {
			index[c.ID] = len(out)
			out = append(out, c)
			continue
		}
		if c.LastUpdated.After(out[i].LastUpdated) {
			out[i] = c
		}
	}
	return out
}
