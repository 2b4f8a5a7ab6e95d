package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"cryptonite/internal/cache"
	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("username and password are required")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrNoSession          = errors.New("no active session")
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) error
	UserByUsername(ctx context.Context, username string) (models.User, error)
}

// Sessions maps session tokens to user ids.
type Sessions interface {
	Create(ctx context.Context, userID string) (string, error)
	Lookup(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

type Service struct {
	users    UserStore
	sessions Sessions
	cost     int
}

func NewService(users UserStore, sessions Sessions) *Service {
	return &Service{users: users, sessions: sessions, cost: bcrypt.DefaultCost}
}

// Register creates an account. The password is stored as a bcrypt hash.
func (s *Service) Register(ctx context.Context, creds models.Credentials) (models.User, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return models.User{}, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return models.User{}, err
	}

	u := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, err
	}

	logger.Log.Info("User registered", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Login checks the credentials and opens a session, returning its token.
func (s *Service) Login(ctx context.Context, creds models.Credentials) (string, models.User, error) {
	u, err := s.users.UserByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		return "", models.User{}, ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return "", models.User{}, err
	}
	return token, u, nil
}

// Logout ends the session. An empty token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to its user id.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}
	userID, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrSessionNotFound) {
			return "", ErrNoSession
		}
		return "", err
	}
	return userID, nil
}
