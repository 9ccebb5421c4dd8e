package push

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Client is one websocket connection for one user.
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan Message
	hub    *Hub
	logger *slog.Logger
}

// NewClient wraps an upgraded connection. The caller registers it with the
// hub and starts both pumps.
func NewClient(userID string, conn *websocket.Conn, hub *Hub, logger *slog.Logger) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		hub:    hub,
		logger: logger,
	}
}

// trySend queues a message without blocking. False means the client's
// buffer is full.
func (c *Client) trySend(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump consumes inbound frames to keep the connection's pong handler
// running. Clients send nothing meaningful; any read error ends the
// connection. Intended to be called with `go`.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WS read error", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

// WritePump writes queued alerts and keepalive pings until the send queue
// closes. Intended to be called with `go`.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("WS write error", "user_id", c.userID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
