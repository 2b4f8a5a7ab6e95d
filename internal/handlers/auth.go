package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"cryptonite/internal/auth"
	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"go.uber.org/zap"
)

func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.Auth.Register(r.Context(), creds)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUsernameTaken):
		writeMessage(w, http.StatusConflict, err.Error())
	case err != nil:
		logger.Log.Error("Failed to register user", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to register user")
	default:
		writeJSON(w, http.StatusCreated, Response{Message: "User registered", Data: user})
	}
}

func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, user, err := s.Auth.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		logger.Log.Error("Failed to log in", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, Response{Message: "Login successful", Data: user})
}

func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Auth.Logout(r.Context(), auth.SessionToken(r)); err != nil {
		logger.Log.Warn("Failed to delete session", zap.Error(err))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeMessage(w, http.StatusOK, "Logged out")
}
