package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cryptonite/internal/logger"

	"go.uber.org/zap"
)

// CookieName holds the session token.
const CookieName = "session_id"

type ctxKey struct{}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user of a request context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// SessionToken reads the session cookie, or returns "".
func SessionToken(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// RequireSession rejects requests without a live session with 401 and passes
// the rest on with the user id in their context.
func (s *Service) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.Authenticate(r.Context(), SessionToken(r))
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				logger.Log.Error("Session lookup failed", zap.Error(err))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
