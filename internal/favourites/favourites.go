package favourites

import (
	"context"
	"errors"
	"strings"

	"cryptonite/internal/market"
	"cryptonite/internal/models"
)

// ErrInvalidCoinID is returned for a blank coin id.
var ErrInvalidCoinID = errors.New("coinId is required")

// Store holds each user's favourite coin ids.
type Store interface {
	Favourites(ctx context.Context, userID string) ([]string, error)
	AddFavourite(ctx context.Context, userID, coinID string) ([]string, error)
	RemoveFavourite(ctx context.Context, userID, coinID string) ([]string, error)
}

type Service struct {
	store  Store
	market *market.Service
}

func NewService(store Store, m *market.Service) *Service {
	return &Service{store: store, market: m}
}

// Coins returns the stored coins the user marked, in market cap order.
// Favourite ids that are not in the active generation are left out.
func (s *Service) Coins(ctx context.Context, userID string) ([]models.Coin, error) {
	ids, err := s.store.Favourites(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.market.ListByIDs(ctx, ids)
}

// Add marks coinID and returns the updated id set.
func (s *Service) Add(ctx context.Context, userID, coinID string) ([]string, error) {
	coinID = strings.TrimSpace(coinID)
	if coinID == "" {
		return nil, ErrInvalidCoinID
	}
	return s.store.AddFavourite(ctx, userID, coinID)
}

// Remove unmarks coinID and returns the updated id set.
func (s *Service) Remove(ctx context.Context, userID, coinID string) ([]string, error) {
	coinID = strings.TrimSpace(coinID)
	if coinID == "" {
		return nil, ErrInvalidCoinID
	}
	return s.store.RemoveFavourite(ctx, userID, coinID)
}
