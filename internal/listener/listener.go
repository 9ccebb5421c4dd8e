// Package listener provides a Postgres LISTEN/NOTIFY consumer for open-bet
// changes. It holds a dedicated pgx connection (not from the pool) listening
// on the `bets_changed` channel.
//
// The open_bets trigger fires pg_notify whenever a bet is placed, settled,
// or removed. The consumer forwards each event to a callback so the engine
// can refresh its tracked-game set right away instead of waiting out the
// next refresh tick.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	channel          = "bets_changed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// BetEvent is the JSON payload from pg_notify('bets_changed', ...).
type BetEvent struct {
	Op     string `json:"op"` // INSERT | UPDATE | DELETE
	GameID string `json:"game_id"`
	UserID string `json:"user_id"`
}

// Start opens a dedicated connection and listens on the bets_changed
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, onChange func(BetEvent), logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, onChange, logger)
		if ctx.Err() != nil {
			logger.Info("Bet listener stopped (context cancelled)")
			return
		}

		logger.Error("Bet listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, onChange func(BetEvent), logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Bet listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		event, err := parseEvent(notification.Payload)
		if err != nil {
			logger.Warn("Failed to parse bet event",
				"payload", notification.Payload, "error", err)
			continue
		}

		logger.Info("Bet change received",
			"op", event.Op, "game_id", event.GameID, "user_id", event.UserID)

		// The callback is a non-blocking nudge, safe to run inline.
		onChange(event)
	}
}

// parseEvent decodes and validates a bets_changed payload.
func parseEvent(payload string) (BetEvent, error) {
	var event BetEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return BetEvent{}, err
	}
	if event.GameID == "" {
		return BetEvent{}, errors.New("missing game_id")
	}
	return event, nil
}
