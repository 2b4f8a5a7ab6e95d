package database

import (
	"context"
	"fmt"

	"cryptonite/internal/logger"
)

var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS coin_generation_seq`,
	`CREATE TABLE IF NOT EXISTS coin_generations (
		singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
		generation BIGINT NOT NULL,
		committed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS coins (
		generation BIGINT NOT NULL,
		id TEXT NOT NULL,
		last_updated TIMESTAMPTZ NOT NULL,
		market_cap DOUBLE PRECISION NOT NULL DEFAULT 0,
		doc JSONB NOT NULL,
		PRIMARY KEY (generation, id)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS favourites (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		coin_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, coin_id)
	)`,
}

// Migrate creates the tables the store needs. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	logger.Log.Info("Database schema ready")
	return nil
}
