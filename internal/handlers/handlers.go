package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"
	"time"

	"cryptonite/internal/alerts"
	"cryptonite/internal/auth"
	"cryptonite/internal/favourites"
	"cryptonite/internal/logger"
	"cryptonite/internal/market"
	"cryptonite/internal/notify"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NotificationStore returns where userID's notification state lives.
type NotificationStore func(userID string) notify.Persister

// Limiter decides whether a request from key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Server holds the collaborators of the HTTP API.
type Server struct {
	Market        *market.Service
	Favourites    *favourites.Service
	Auth          *auth.Service
	Evaluator     alerts.Evaluator
	Notifications NotificationStore
	Hub           *Hub
	Limiter       Limiter // optional
	Checks        map[string]HealthCheck
	Instance      string
	StaticDir     string
	SessionTTL    time.Duration

	// AllowedOrigins may make credentialed cross-origin requests.
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For.
	TrustedProxies []netip.Prefix
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.rateLimit, metricsMiddleware)

	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/cryptocurrencies", s.CryptocurrenciesHandler).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.AlertsHandler).Methods(http.MethodGet)
	api.HandleFunc("/alerts/stream", s.Hub.StreamAlertsHandler).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.Hub.WebSocketHandler).Methods(http.MethodGet)

	api.Handle("/favourites", s.private(s.ListFavouritesHandler)).Methods(http.MethodGet)
	api.Handle("/notifications", s.private(s.NotificationsHandler)).Methods(http.MethodGet)
	api.Handle("/notifications/reload", s.private(s.ReloadNotificationsHandler)).Methods(http.MethodPost)
	api.Handle("/notifications/reset", s.private(s.ResetNotificationsHandler)).Methods(http.MethodPost)
	api.Handle("/notifications/{coinId}/view", s.private(s.ViewNotificationHandler)).Methods(http.MethodPost)
	api.Handle("/notifications/{coinId}/dismiss", s.private(s.DismissNotificationHandler)).Methods(http.MethodPost)

	r.Handle("/favourites/add", s.private(s.AddFavouriteHandler)).Methods(http.MethodPost)
	r.Handle("/favourites/remove", s.private(s.RemoveFavouriteHandler)).Methods(http.MethodPost)

	r.HandleFunc("/auth/register", s.RegisterHandler).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.LoginHandler).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.LogoutHandler).Methods(http.MethodPost)

	if s.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	}

	return requestIDMiddleware(s.cors(r))
}

func (s *Server) private(h http.HandlerFunc) http.Handler {
	return s.Auth.RequireSession(h)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("Failed to encode response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Message: msg})
}

// serverError is the generic failure body for query routes.
func serverError(w http.ResponseWriter) {
	http.Error(w, "Server Error", http.StatusInternalServerError)
}
