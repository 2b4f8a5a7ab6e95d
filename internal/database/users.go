package database

import (
	"context"
	"database/sql"
	"errors"

	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query, u.ID, u.Username, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.ErrAlreadyExists
		}
		logger.Log.Error("Failed to create user",
			zap.String("username", u.Username),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// UserByUsername loads an account by its login name.
func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`

	var u models.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, models.ErrNotFound
		}
		logger.Log.Error("Failed to retrieve user",
			zap.String("username", username),
			zap.Error(err),
		)
		return models.User{}, err
	}
	return u, nil
}

// Favourites returns the coin ids userID marked, sorted.
func (s *Store) Favourites(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT coin_id
		FROM favourites
		WHERE user_id = $1
		ORDER BY coin_id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		logger.Log.Error("Failed to query favourites",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddFavourite marks coinID for userID and returns the updated set.
func (s *Store) AddFavourite(ctx context.Context, userID, coinID string) ([]string, error) {
	query := `
		INSERT INTO favourites (user_id, coin_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, coin_id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, userID, coinID); err != nil {
		logger.Log.Error("Failed to add favourite",
			zap.String("user_id", userID),
			zap.String("coin_id", coinID),
			zap.Error(err),
		)
		return nil, err
	}
	return s.Favourites(ctx, userID)
}

// RemoveFavourite unmarks coinID for userID and returns the updated set.
func (s *Store) RemoveFavourite(ctx context.Context, userID, coinID string) ([]string, error) {
	query := `DELETE FROM favourites WHERE user_id = $1 AND coin_id = $2`

	if _, err := s.db.ExecContext(ctx, query, userID, coinID); err != nil {
		logger.Log.Error("Failed to remove favourite",
			zap.String("user_id", userID),
			zap.String("coin_id", coinID),
			zap.Error(err),
		)
		return nil, err
	}
	return s.Favourites(ctx, userID)
}
