package ws

import (
	"encoding/json"
	"sync"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "Open websocket connections",
	})
	wsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_dropped_messages_total",
		Help: "Events dropped because a client send buffer was full",
	})
)

func init() {
	prometheus.MustRegister(wsConnections, wsDropped)
}

// Hub fans committed account events out to every open connection of the
// affected user. A user may hold several connections (tabs).
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	wsConnections.Inc()
}

// Unregister removes c and closes its send channel. It is safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	close(c.Send)
	wsConnections.Dec()
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Notify implements service.Notifier. Slow clients lose events instead of
// blocking the caller.
func (h *Hub) Notify(ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Error("ws: encode event", "error", err, "type", ev.Type)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[ev.UserID] {
		select {
		case c.Send <- payload:
		default:
			wsDropped.Inc()
			logger.Warn("ws: send buffer full, dropping event", "user_id", ev.UserID, "type", ev.Type)
		}
	}
}
