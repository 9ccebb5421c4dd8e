// Package push delivers freshly persisted alerts to connected clients over
// websockets. The hub indexes connections by user and drops clients that
// cannot keep up rather than letting them stall the engine.
package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/betpulse/betpulse-engine/internal/alert"
	"github.com/betpulse/betpulse-engine/internal/metrics"
)

// Message is the envelope written to sockets.
type Message struct {
	Type      string      `json:"type"`
	Alert     alert.Alert `json:"alert"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub tracks active clients per user and fans alerts out to them.
type Hub struct {
	mu      sync.RWMutex
	byUser  map[string]map[*Client]bool
	deliver chan delivery

	register   chan *Client
	unregister chan *Client

	logger *slog.Logger
}

type delivery struct {
	userID string
	alert  alert.Alert
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		byUser:     make(map[string]map[*Client]bool),
		deliver:    make(chan delivery, 512),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes registrations and deliveries until ctx is cancelled.
// Intended to be called with `go`.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Push hub started")
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case d := <-h.deliver:
			h.fanOut(d)
		}
	}
}

// Push queues an alert for the user's open connections. Non-blocking: when
// the hub is saturated the push is dropped; the unread feed still has the
// alert.
func (h *Hub) Push(userID string, a alert.Alert) {
	select {
	case h.deliver <- delivery{userID: userID, alert: a}:
	default:
		h.logger.Warn("Push buffer full, dropping realtime copy",
			"user_id", userID, "alert_id", a.AlertID)
	}
}

// Register adds a connected client.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister removes a client and closes its send queue.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// ClientCount reports connected clients across users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.byUser {
		n += len(set)
	}
	return n
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.byUser[c.userID]
	if !ok {
		set = make(map[*Client]bool)
		h.byUser[c.userID] = set
	}
	set[c] = true
	metrics.WSClients.Inc()
	h.logger.Info("WS client connected", "user_id", c.userID, "user_clients", len(set))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.byUser[c.userID]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.byUser, c.userID)
	}
	close(c.send)
	metrics.WSClients.Dec()
	h.logger.Info("WS client disconnected", "user_id", c.userID)
}

func (h *Hub) fanOut(d delivery) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byUser[d.userID]))
	for c := range h.byUser[d.userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	msg := Message{Type: "alert", Alert: d.alert, Timestamp: time.Now()}
	for _, c := range clients {
		if !c.trySend(msg) {
			// Slow client: cut it loose instead of queueing behind it.
			h.logger.Warn("WS client too slow, disconnecting", "user_id", c.userID)
			go h.Unregister(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for uid, set := range h.byUser {
		for c := range set {
			close(c.send)
			n++
		}
		delete(h.byUser, uid)
	}
	metrics.WSClients.Set(0)
	h.logger.Info("Push hub stopped", "clients_closed", n)
}
