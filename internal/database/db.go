package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrStaleGeneration is returned when a newer generation was committed first.
var ErrStaleGeneration = errors.New("a newer generation is already active")

// Store is the Postgres market data, user and favourites store. Coins are kept
// as JSONB documents, one row per (generation, id); coin_generations holds the
// single active generation pointer.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Set connection pool parameters
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Log.Info("Database connection established")
	return NewStore(db), nil
}

// NewStore wraps an open handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ListCoins returns the active generation ordered by market cap descending.
func (s *Store) ListCoins(ctx context.Context) ([]models.Coin, error) {
	query := `
		SELECT c.doc
		FROM coins c
		JOIN coin_generations g ON g.generation = c.generation
		ORDER BY c.market_cap DESC, c.id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		logger.Log.Error("Failed to query coins", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanCoins(rows)
}

// ListCoinsByIDs returns the active coins whose id is in ids.
func (s *Store) ListCoinsByIDs(ctx context.Context, ids []string) ([]models.Coin, error) {
	query := `
		SELECT c.doc
		FROM coins c
		JOIN coin_generations g ON g.generation = c.generation
		WHERE c.id = ANY($1)
		ORDER BY c.market_cap DESC, c.id
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		logger.Log.Error("Failed to query coins by id",
			zap.Strings("ids", ids),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	return scanCoins(rows)
}

// BeginGeneration reserves the next generation number.
func (s *Store) BeginGeneration(ctx context.Context) (int64, error) {
	var gen int64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('coin_generation_seq')`).Scan(&gen); err != nil {
		logger.Log.Error("Failed to reserve generation", zap.Error(err))
		return 0, err
	}
	return gen, nil
}

// UpsertCoin writes coin into gen unless a row with a newer last_updated is there.
func (s *Store) UpsertCoin(ctx context.Context, gen int64, coin models.Coin) error {
	doc, err := json.Marshal(coin)
	if err != nil {
		return fmt.Errorf("encode coin %s: %w", coin.ID, err)
	}

	query := `
		INSERT INTO coins (generation, id, last_updated, market_cap, doc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (generation, id) DO UPDATE
		SET last_updated = EXCLUDED.last_updated,
			market_cap = EXCLUDED.market_cap,
			doc = EXCLUDED.doc
		WHERE coins.last_updated < EXCLUDED.last_updated
	`

	_, err = s.db.ExecContext(ctx, query, gen, coin.ID, coin.LastUpdated, coin.MarketCap, doc)
	return err
}

// CommitGeneration points readers at gen and prunes older generations in one
// transaction. A generation older than the active one is rejected.
func (s *Store) CommitGeneration(ctx context.Context, gen int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO coin_generations (singleton, generation, committed_at)
		VALUES (TRUE, $1, now())
		ON CONFLICT (singleton) DO UPDATE
		SET generation = EXCLUDED.generation,
			committed_at = EXCLUDED.committed_at
		WHERE coin_generations.generation < EXCLUDED.generation
	`, gen)
	if err != nil {
		logger.Log.Error("Failed to swap active generation", zap.Int64("generation", gen), zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleGeneration
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM coins WHERE generation < $1`, gen); err != nil {
		logger.Log.Error("Failed to prune old generations", zap.Int64("generation", gen), zap.Error(err))
		return err
	}
	return tx.Commit()
}

// AbortGeneration drops the rows written for gen.
func (s *Store) AbortGeneration(ctx context.Context, gen int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM coins WHERE generation = $1`, gen)
	return err
}

// Helper function to scan coin documents
func scanCoins(rows *sql.Rows) ([]models.Coin, error) {
	coins := []models.Coin{}

	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var coin models.Coin
		if err := json.Unmarshal(doc, &coin); err != nil {
			return nil, fmt.Errorf("decode coin document: %w", err)
		}
		coins = append(coins, coin)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return coins, nil
}
