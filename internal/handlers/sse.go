package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cryptonite/internal/logger"
	"cryptonite/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const heartbeatInterval = 15 * time.Second

// Receiver yields messages from a pub/sub subscription.
type Receiver interface {
	ReceiveMessage(ctx context.Context) (*redis.Message, error)
}

// Hub fans stream events out to the SSE and websocket clients of this
// instance.
type Hub struct {
	mu      sync.Mutex
	clients map[chan models.Event]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan models.Event]bool)}
}

// Listen relays events from sub to connected clients until ctx is done.
func (h *Hub) Listen(ctx context.Context, sub Receiver) {
	logger.Log.Info("Starting to listen for stream events from Redis")

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Log.Error("Error receiving message from Redis", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var ev models.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Log.Error("Error unmarshaling stream event", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		h.Broadcast(ev)
	}
}

// Broadcast delivers ev to every client. Slow clients miss the event.
func (h *Hub) Broadcast(ev models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			logger.Log.Warn("Event dropped due to slow client", zap.String("type", ev.Type))
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) subscribe() chan models.Event {
	ch := make(chan models.Event, 10)
	h.mu.Lock()
	h.clients[ch] = true
	n := len(h.clients)
	h.mu.Unlock()
	logger.Log.Info("Stream client connected", zap.Int("total_clients", n))
	return ch
}

func (h *Hub) unsubscribe(ch chan models.Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	n := len(h.clients)
	h.mu.Unlock()
	logger.Log.Info("Stream client disconnected", zap.Int("total_clients", n))
}

// StreamAlertsHandler serves the event stream as server-sent events.
func (h *Hub) StreamAlertsHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Log.Error("Failed to marshal stream event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
