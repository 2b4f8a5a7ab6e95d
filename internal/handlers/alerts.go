package handlers

import (
	"context"
	"net/http"
	"time"

	"cryptonite/internal/logger"
	"cryptonite/internal/models"
	"cryptonite/internal/tracing"

	"go.uber.org/zap"
)

// CryptocurrenciesHandler lists every stored coin by market cap descending.
func (s *Server) CryptocurrenciesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.Tracer().Start(r.Context(), "CryptocurrenciesHandler")
	defer span.End()

	traceID := span.SpanContext().TraceID().String()

	coins, err := s.Market.ListAll(ctx)
	if err != nil {
		logger.Log.Error("Failed to list coins",
			zap.String("trace_id", traceID),
			zap.Error(err),
		)
		serverError(w)
		return
	}

	logger.Log.Debug("Listed coins",
		zap.String("trace_id", traceID),
		zap.Int("count", len(coins)),
	)
	writeJSON(w, http.StatusOK, coins)
}

// AlertsHandler evaluates the stored coins at call time. Nothing is persisted.
func (s *Server) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.Tracer().Start(r.Context(), "AlertsHandler")
	defer span.End()

	records, err := s.currentAlerts(ctx)
	if err != nil {
		logger.Log.Error("Failed to evaluate alerts",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) currentAlerts(ctx context.Context) ([]models.AlertRecord, error) {
	coins, err := s.Market.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.Evaluator.Records(coins, time.Now().UTC()), nil
}
