package market

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cryptonite/internal/logger"
	"cryptonite/internal/models"
	"cryptonite/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrStorage marks a query that failed because the store was unavailable.
// An empty result is not an error.
var ErrStorage = errors.New("market data storage unavailable")

// Service is the read side of the market data store. Every call reads the
// store; nothing is cached.
type Service struct {
	reader Reader
}

func NewService(r Reader) *Service {
	return &Service{reader: r}
}

// ListAll returns every stored coin ordered by market cap, largest first.
func (s *Service) ListAll(ctx context.Context) ([]models.Coin, error) {
	ctx, span := tracing.Tracer().Start(ctx, "market.ListAll")
	defer span.End()

	coins, err := s.reader.ListCoins(ctx)
	if err != nil {
		logger.Log.Error("Failed to list coins", zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	span.SetAttributes(attribute.Int("coins", len(coins)))
	return sortByMarketCap(coins), nil
}

// ListByIDs returns the stored coins whose id is in ids, in ListAll order.
func (s *Service) ListByIDs(ctx context.Context, ids []string) ([]models.Coin, error) {
	ctx, span := tracing.Tracer().Start(ctx, "market.ListByIDs")
	defer span.End()

	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.Coin{}, nil
	}

	coins, err := s.reader.ListCoinsByIDs(ctx, ids)
	if err != nil {
		logger.Log.Error("Failed to list coins by id", zap.Strings("ids", ids), zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return sortByMarketCap(coins), nil
}

func sortByMarketCap(coins []models.Coin) []models.Coin {
	if coins == nil {
		return []models.Coin{}
	}
	sort.SliceStable(coins, func(i, j int) bool {
		return coins[i].MarketCap > coins[j].MarketCap
	})
	return coins
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
