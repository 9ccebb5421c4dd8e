// Package alert defines the persisted alert record and its Postgres store.
//
// Lifecycle: created by the dedup stage → fanned out by the dispatcher →
// read or dismissed by the user, or expired when the game goes final.
// Expired alerts stay queryable for analytics but leave the unread feed.
package alert

import (
	"errors"
	"time"

	"github.com/betpulse/betpulse-engine/internal/signal"
)

// ErrNotFound is returned when an alert id does not exist for the user.
var ErrNotFound = errors.New("alert not found")

// Alert is one delivered (or deliverable) notification for one user.
type Alert struct {
	AlertID   string         `json:"alert_id"`
	UserID    string         `json:"user_id"`
	GameID    string         `json:"game_id"`
	AlertType string         `json:"alert_type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority"` // "low" | "medium" | "high" | "urgent"
	Payload   signal.Payload `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	IsRead    bool           `json:"is_read"`
	Dismissed bool           `json:"dismissed"`
	Expired   bool           `json:"expired"`
}

// MarkAllResult reports a partial-success bulk read-marking.
type MarkAllResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
