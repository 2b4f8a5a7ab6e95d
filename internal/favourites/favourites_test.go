package favourites

import (
	"context"
	"testing"
	"time"

	"cryptonite/internal/market"
	"cryptonite/internal/memstore"
	"cryptonite/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	gen, err := s.BeginGeneration(ctx)
	require.NoError(t, err)
	now := time.Now()
	for _, c := range []models.Coin{
		{ID: "bitcoin", MarketCap: 300, LastUpdated: now},
		{ID: "ethereum", MarketCap: 200, LastUpdated: now},
		{ID: "solana", MarketCap: 100, LastUpdated: now},
	} {
		require.NoError(t, s.UpsertCoin(ctx, gen, c))
	}
	require.NoError(t, s.CommitGeneration(ctx, gen))
	return s
}

func TestFavouritesLifecycle(t *testing.T) {
	ctx := context.Background()
	store := seeded(t)
	svc := NewService(store, market.NewService(store))

	ids, err := svc.Add(ctx, "u1", "solana")
	require.NoError(t, err)
	assert.Equal(t, []string{"solana"}, ids)

	ids, err = svc.Add(ctx, "u1", " bitcoin ")
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "solana"}, ids)

	coins, err := svc.Coins(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.Equal(t, "solana", coins[1].ID)

	ids, err = svc.Remove(ctx, "u1", "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, []string{"solana"}, ids)
}

func TestCoins_SkipsIdsMissingFromStore(t *testing.T) {
	ctx := context.Background()
	store := seeded(t)
	svc := NewService(store, market.NewService(store))

	_, err := svc.Add(ctx, "u1", "dogecoin")
	require.NoError(t, err)

	coins, err := svc.Coins(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, coins)
}

func TestAdd_RejectsBlankID(t *testing.T) {
	svc := NewService(memstore.New(), market.NewService(memstore.New()))
	_, err := svc.Add(context.Background(), "u1", "  ")
	assert.ErrorIs(t, err, ErrInvalidCoinID)
	_, err = svc.Remove(context.Background(), "u1", "")
	assert.ErrorIs(t, err, ErrInvalidCoinID)
}
