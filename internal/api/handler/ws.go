package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/betpulse/betpulse-engine/internal/api/respond"
	"github.com/betpulse/betpulse-engine/internal/push"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced at the gateway.
		return true
	},
}

// ServeWS upgrades the connection and streams the user's alerts as they are
// created.
// @Summary Alert stream
// @Description Upgrades to a websocket delivering the user's alerts in real time.
// @Tags alerts
// @Param user_id query string true "User ID"
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} respond.ErrorResponse
// @Router /ws [get]
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id query parameter is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WS upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := push.NewClient(userID, conn, h.hub, h.logger)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}
