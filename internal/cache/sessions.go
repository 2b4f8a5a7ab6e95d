package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore maps opaque session tokens to user ids.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(token string) string {
	return "session:" + token
}

// Create starts a session for userID and returns its token.
func (s *SessionStore) Create(ctx context.Context, userID string) (string, error) {
	token := uuid.New().String()
	if err := s.client.Set(ctx, sessionKey(token), userID, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup returns the user owning token and slides its expiry.
func (s *SessionStore) Lookup(ctx context.Context, token string) (string, error) {
	userID, err := s.client.GetEx(ctx, sessionKey(token), s.ttl).Result()
	if err == redis.Nil {
		sessionLookupsTotal.WithLabelValues("miss").Inc()
		return "", ErrSessionNotFound
	}
	if err != nil {
		sessionLookupsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	sessionLookupsTotal.WithLabelValues("hit").Inc()
	return userID, nil
}

// Delete ends the session. Unknown tokens are not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}
