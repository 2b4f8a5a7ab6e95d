package handlers

import (
	"context"
	"errors"
	"net/http"

	"cryptonite/internal/auth"
	"cryptonite/internal/logger"
	"cryptonite/internal/notify"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type notificationsResponse struct {
	Unread        bool                  `json:"unread"`
	Surfaced      []string              `json:"surfaced,omitempty"`
	Notifications []notify.Notification `json:"notifications"`
}

func (s *Server) manager(r *http.Request) (*notify.Manager, error) {
	userID, _ := auth.UserID(r.Context())
	return notify.NewManager(r.Context(), s.Notifications(userID))
}

func respondNotifications(w http.ResponseWriter, m *notify.Manager, surfaced []string) {
	writeJSON(w, http.StatusOK, notificationsResponse{
		Unread:        m.HasUnread(),
		Surfaced:      surfaced,
		Notifications: m.Active(),
	})
}

// NotificationsHandler runs an evaluation pass over the stored coins and
// returns the caller's notification state.
func (s *Server) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	s.runPass(w, r, false)
}

// ReloadNotificationsHandler resets the caller's state and surfaces every
// qualifying coin again.
func (s *Server) ReloadNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	s.runPass(w, r, true)
}

func (s *Server) runPass(w http.ResponseWriter, r *http.Request, reload bool) {
	m, err := s.manager(r)
	if err != nil {
		logger.Log.Error("Failed to load notification state", zap.Error(err))
		serverError(w)
		return
	}

	records, err := s.currentAlerts(r.Context())
	if err != nil {
		logger.Log.Error("Failed to evaluate alerts", zap.Error(err))
		serverError(w)
		return
	}

	var surfaced []string
	if reload {
		surfaced, err = m.Reload(r.Context(), records)
	} else {
		surfaced, err = m.Apply(r.Context(), records, false)
	}
	if err != nil {
		serverError(w)
		return
	}
	respondNotifications(w, m, surfaced)
}

// ResetNotificationsHandler clears the caller's state and runs a fresh pass
// right away, so every coin that still qualifies comes back unviewed.
func (s *Server) ResetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	s.runPass(w, r, true)
}

func (s *Server) ViewNotificationHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, (*notify.Manager).View)
}

func (s *Server) DismissNotificationHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, (*notify.Manager).Dismiss)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, op func(*notify.Manager, context.Context, string) error) {
	coinID := mux.Vars(r)["coinId"]

	m, err := s.manager(r)
	if err != nil {
		serverError(w)
		return
	}

	switch err := op(m, r.Context(), coinID); {
	case errors.Is(err, notify.ErrNotActive):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, notify.ErrNotViewed):
		writeMessage(w, http.StatusConflict, err.Error())
	case err != nil:
		serverError(w)
	default:
		respondNotifications(w, m, nil)
	}
}
