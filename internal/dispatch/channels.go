package dispatch

import (
	"context"
	"log/slog"

	"github.com/betpulse/betpulse-engine/internal/alert"
)

// Pusher pushes a realtime copy of an alert to a user's live connections.
type Pusher interface {
	Push(userID string, a alert.Alert)
}

// AppChannel is the in-app feed. The alert is already persisted before
// dispatch, which is what "delivered" means for this channel; the push to
// open websockets is best effort on top.
type AppChannel struct {
	hub Pusher
}

// NewAppChannel creates the in-app channel. A nil hub is fine: persisted
// alerts still reach the UI through the unread feed.
func NewAppChannel(hub Pusher) *AppChannel {
	return &AppChannel{hub: hub}
}

func (c *AppChannel) Name() string { return "app" }

func (c *AppChannel) Send(ctx context.Context, a alert.Alert) error {
	if c.hub != nil {
		c.hub.Push(a.UserID, a)
	}
	return nil
}

// StubChannel stands in for external providers (email, SMS) that live
// outside this engine. Nil-safe: when not configured it drops sends quietly.
type StubChannel struct {
	name   string
	logger *slog.Logger
}

// NewStubChannel creates a logging stand-in for an external channel.
// Returns nil if name is empty (channel disabled).
func NewStubChannel(name string, logger *slog.Logger) *StubChannel {
	if name == "" {
		return nil
	}
	return &StubChannel{name: name, logger: logger}
}

func (c *StubChannel) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

func (c *StubChannel) Send(ctx context.Context, a alert.Alert) error {
	if c == nil {
		return nil
	}
	c.logger.Info("External channel send (provider not wired)",
		"channel", c.name, "alert_id", a.AlertID, "user_id", a.UserID, "title", a.Title)
	return nil
}
