package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"cryptonite/internal/models"
)

type generation struct {
	id    int64
	coins map[string]models.Coin
}

// Store keeps coins, favourites and users in memory. It backs local runs
// without Postgres and the tests of the packages above it.
type Store struct {
	active atomic.Pointer[generation]

	mu         sync.Mutex
	nextGen    int64
	pending    map[int64]map[string]models.Coin
	favourites map[string]map[string]struct{}
	users      map[string]models.User
}

// New returns an empty store whose active generation holds no coins.
func New() *Store {
	s := &Store{
		pending:    make(map[int64]map[string]models.Coin),
		favourites: make(map[string]map[string]struct{}),
		users:      make(map[string]models.User),
	}
	s.active.Store(&generation{coins: map[string]models.Coin{}})
	return s
}

// ListCoins returns the active generation ordered by market cap descending.
func (s *Store) ListCoins(ctx context.Context) ([]models.Coin, error) {
	g := s.active.Load()
	out := make([]models.Coin, 0, len(g.coins))
	for _, c := range g.coins {
		out = append(out, c)
	}
	sortCoins(out)
	return out, nil
}

func (s *Store) ListCoinsByIDs(ctx context.Context, ids []string) ([]models.Coin, error) {
	g := s.active.Load()
	out := make([]models.Coin, 0, len(ids))
	for _, id := range ids {
		if c, ok := g.coins[id]; ok {
			out = append(out, c)
		}
	}
	sortCoins(out)
	return out, nil
}

// ActiveGeneration returns the id of the generation readers currently see.
func (s *Store) ActiveGeneration() int64 {
	return s.active.Load().id
}

func (s *Store) BeginGeneration(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGen++
	s.pending[s.nextGen] = make(map[string]models.Coin)
	return s.nextGen, nil
}

func (s *Store) UpsertCoin(ctx context.Context, gen int64, coin models.Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coins, ok := s.pending[gen]
	if !ok {
		return fmt.Errorf("generation %d is not open", gen)
	}
	if existing, ok := coins[coin.ID]; ok && !coin.LastUpdated.After(existing.LastUpdated) {
		return nil
	}
	coins[coin.ID] = coin
	return nil
}

// CommitGeneration swaps the active pointer in one atomic store.
func (s *Store) CommitGeneration(ctx context.Context, gen int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coins, ok := s.pending[gen]
	if !ok {
		return fmt.Errorf("generation %d is not open", gen)
	}
	delete(s.pending, gen)
	s.active.Store(&generation{id: gen, coins: coins})
	return nil
}

func (s *Store) AbortGeneration(ctx context.Context, gen int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, gen)
	return nil
}

func (s *Store) Favourites(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favouriteIDs(userID), nil
}

func (s *Store) AddFavourite(ctx context.Context, userID, coinID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.favourites[userID]
	if !ok {
		set = make(map[string]struct{})
		s.favourites[userID] = set
	}
	set[coinID] = struct{}{}
	return s.favouriteIDs(userID), nil
}

func (s *Store) RemoveFavourite(ctx context.Context, userID, coinID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.favourites[userID], coinID)
	return s.favouriteIDs(userID), nil
}

func (s *Store) favouriteIDs(userID string) []string {
	ids := make([]string, 0, len(s.favourites[userID]))
	for id := range s.favourites[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return models.ErrAlreadyExists
	}
	s.users[u.Username] = u
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

// sortCoins orders like the postgres store: market cap descending, then id.
func sortCoins(coins []models.Coin) {
	sort.Slice(coins, func(i, j int) bool {
		if coins[i].MarketCap != coins[j].MarketCap {
			return coins[i].MarketCap > coins[j].MarketCap
		}
		return coins[i].ID < coins[j].ID
	})
}
