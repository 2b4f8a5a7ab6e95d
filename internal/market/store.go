package market

import (
	"context"

	"cryptonite/internal/models"
)

// Reader serves the active generation of stored coins.
type Reader interface {
	ListCoins(ctx context.Context) ([]models.Coin, error)
	ListCoinsByIDs(ctx context.Context, ids []string) ([]models.Coin, error)
}

// Writer builds a new generation next to the active one and swaps it in.
// Readers never observe a generation before CommitGeneration returns.
type Writer interface {
	BeginGeneration(ctx context.Context) (int64, error)
	// UpsertCoin writes coin into generation gen. A second write for the same
	// id only replaces the first when its last_updated is newer.
	UpsertCoin(ctx context.Context, gen int64, coin models.Coin) error
	// CommitGeneration makes gen the active generation and drops older ones.
	CommitGeneration(ctx context.Context, gen int64) error
	AbortGeneration(ctx context.Context, gen int64) error
}

// Store is the full market data store.
type Store interface {
	Reader
	Writer
}
