package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cryptonite/internal/auth"
	"cryptonite/internal/favourites"
	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"go.uber.org/zap"
)

// ListFavouritesHandler returns the caller's favourite coins.
func (s *Server) ListFavouritesHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	coins, err := s.Favourites.Coins(r.Context(), userID)
	if err != nil {
		logger.Log.Error("Failed to list favourites", zap.String("user_id", userID), zap.Error(err))
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, coins)
}

func (s *Server) AddFavouriteHandler(w http.ResponseWriter, r *http.Request) {
	s.updateFavourites(w, r, s.Favourites.Add)
}

func (s *Server) RemoveFavouriteHandler(w http.ResponseWriter, r *http.Request) {
	s.updateFavourites(w, r, s.Favourites.Remove)
}

type favouritesUpdate func(ctx context.Context, userID, coinID string) ([]string, error)

func (s *Server) updateFavourites(w http.ResponseWriter, r *http.Request, update favouritesUpdate) {
	userID, _ := auth.UserID(r.Context())

	var req models.FavouriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ids, err := update(r.Context(), userID, req.CoinID)
	if err != nil {
		if errors.Is(err, favourites.ErrInvalidCoinID) {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Log.Error("Failed to update favourites",
			zap.String("user_id", userID),
			zap.String("coin_id", req.CoinID),
			zap.Error(err),
		)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}
