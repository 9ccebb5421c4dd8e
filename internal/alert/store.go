package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Insert persists a freshly accepted alert. This is the single durable write
// of the pipeline: failure here is fatal to the alert's run and the caller
// retries (the dedup key keeps retries invisible to the user).
func Insert(ctx context.Context, pool *pgxpool.Pool, a Alert) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO alerts (
			alert_id, user_id, game_id, alert_type, title, message,
			priority, payload, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.AlertID, a.UserID, a.GameID, a.AlertType, a.Title, a.Message,
		a.Priority, payload, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func scanAlerts(rows pgx.Rows) ([]Alert, error) {
	var alerts []Alert
	for rows.Next() {
		var a Alert
		var payload []byte
		if err := rows.Scan(&a.AlertID, &a.UserID, &a.GameID, &a.AlertType,
			&a.Title, &a.Message, &a.Priority, &payload,
			&a.CreatedAt, &a.IsRead, &a.Dismissed, &a.Expired); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &a.Payload); err != nil {
				return nil, fmt.Errorf("decode alert payload: %w", err)
			}
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// ListUnread returns a user's live alerts newest-first. Read, dismissed and
// expired alerts are excluded.
func ListUnread(ctx context.Context, pool *pgxpool.Pool, userID string) ([]Alert, error) {
	rows, err := pool.Query(ctx, "list_unread_alerts", userID)
	if err != nil {
		return nil, fmt.Errorf("list unread alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// ListRecent returns a user's most recent alerts regardless of state,
// newest-first, capped at limit.
func ListRecent(ctx context.Context, pool *pgxpool.Pool, userID string, limit int) ([]Alert, error) {
	rows, err := pool.Query(ctx, `
		SELECT alert_id, user_id, game_id, alert_type, title, message,
		       priority, payload, created_at, is_read, dismissed, expired
		FROM alerts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// MarkRead flags one alert as read. ErrNotFound when the alert does not
// exist or belongs to someone else; the row is left untouched either way.
func MarkRead(ctx context.Context, pool *pgxpool.Pool, alertID, userID string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE alerts SET is_read = TRUE, read_at = NOW()
		WHERE alert_id = $1 AND user_id = $2`, alertID, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread alert for the user, one row at a time so a
// single bad row cannot silently roll back the rest. Partial success is
// reported, never swallowed; the caller decides whether to retry.
func MarkAllRead(ctx context.Context, pool *pgxpool.Pool, userID string) (MarkAllResult, error) {
	rows, err := pool.Query(ctx, `
		SELECT alert_id FROM alerts
		WHERE user_id = $1 AND is_read = FALSE AND dismissed = FALSE AND expired = FALSE`,
		userID)
	if err != nil {
		return MarkAllResult{}, fmt.Errorf("list alerts to mark: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return MarkAllResult{}, fmt.Errorf("scan alert id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return MarkAllResult{}, fmt.Errorf("list alerts to mark: %w", err)
	}

	var res MarkAllResult
	for _, id := range ids {
		if err := MarkRead(ctx, pool, id, userID); err != nil {
			res.Failed++
			continue
		}
		res.Succeeded++
	}
	return res, nil
}

// Dismiss flags one alert as dismissed (and read).
func Dismiss(ctx context.Context, pool *pgxpool.Pool, alertID, userID string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE alerts SET dismissed = TRUE, is_read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE alert_id = $1 AND user_id = $2`, alertID, userID)
	if err != nil {
		return fmt.Errorf("dismiss alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireForGame retires every live alert on a finished game. Expired rows
// stay queryable for analytics.
func ExpireForGame(ctx context.Context, pool *pgxpool.Pool, gameID string) (int64, error) {
	tag, err := pool.Exec(ctx, `
		UPDATE alerts SET expired = TRUE
		WHERE game_id = $1 AND expired = FALSE AND is_read = FALSE AND dismissed = FALSE`,
		gameID)
	if err != nil {
		return 0, fmt.Errorf("expire alerts for game: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Get loads one alert scoped to its owner.
func Get(ctx context.Context, pool *pgxpool.Pool, alertID, userID string) (Alert, error) {
	rows, err := pool.Query(ctx, `
		SELECT alert_id, user_id, game_id, alert_type, title, message,
		       priority, payload, created_at, is_read, dismissed, expired
		FROM alerts
		WHERE alert_id = $1 AND user_id = $2`, alertID, userID)
	if err != nil {
		return Alert{}, fmt.Errorf("get alert: %w", err)
	}
	defer rows.Close()
	alerts, err := scanAlerts(rows)
	if err != nil {
		return Alert{}, err
	}
	if len(alerts) == 0 {
		return Alert{}, ErrNotFound
	}
	return alerts[0], nil
}
