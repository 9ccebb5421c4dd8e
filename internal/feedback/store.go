package feedback

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/betpulse/betpulse-engine/internal/alert"
)

// Submit records a user's reaction to an alert. Idempotent: a resubmission
// for the same alert returns the original record unchanged, so a flaky
// connection retrying the call does no harm. Returns alert.ErrNotFound when
// the alert does not exist for this user.
func Submit(ctx context.Context, pool *pgxpool.Pool, alertID, userID, action string, now time.Time) (Record, error) {
	if !ValidAction(action) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	a, err := alert.Get(ctx, pool, alertID, userID)
	if err != nil {
		return Record{}, err
	}
	tta := int(now.Sub(a.CreatedAt).Seconds())
	if tta < 0 {
		tta = 0
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO alert_feedback (alert_id, user_id, action, time_to_action_seconds, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (alert_id) DO NOTHING`,
		alertID, userID, action, tta, now,
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert feedback: %w", err)
	}

	// Read back whichever row won: the fresh insert or the earlier one.
	var r Record
	err = pool.QueryRow(ctx, `
		SELECT alert_id, user_id, action, time_to_action_seconds, created_at
		FROM alert_feedback WHERE alert_id = $1`, alertID).
		Scan(&r.AlertID, &r.UserID, &r.Action, &r.TimeToActionSeconds, &r.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("read feedback: %w", err)
	}
	return r, nil
}

// ParsePeriod turns "24h", "7d", "30d" style strings into a duration.
// Empty input defaults to 30 days.
func ParsePeriod(period string) (time.Duration, error) {
	if period == "" {
		return 30 * 24 * time.Hour, nil
	}
	if days, ok := strings.CutSuffix(period, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("parse period %q", period)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(period)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("parse period %q", period)
	}
	return d, nil
}

// GetAnalytics aggregates alert quality for a user since now-period.
func GetAnalytics(ctx context.Context, pool *pgxpool.Pool, userID, period string, now time.Time) (Analytics, error) {
	window, err := ParsePeriod(period)
	if err != nil {
		return Analytics{}, err
	}
	since := now.Add(-window)

	out := Analytics{
		UserID:      userID,
		Period:      period,
		ByAlertType: make(map[string]TypeStats),
	}

	rows, err := pool.Query(ctx, `
		SELECT a.alert_type,
		       COUNT(*) AS alerts,
		       COUNT(f.alert_id) AS feedback,
		       COUNT(*) FILTER (WHERE f.action = 'led_to_bet') AS led_to_bet,
		       COUNT(*) FILTER (WHERE f.action = 'dismissed'
		                          AND f.time_to_action_seconds < $3) AS quick_dismissals,
		       COUNT(*) FILTER (WHERE f.action = 'led_to_bet'
		                           OR (f.alert_id IS NOT NULL
		                               AND f.time_to_action_seconds >= $3)) AS useful,
		       COALESCE(AVG(f.time_to_action_seconds), 0) AS avg_tta
		FROM alerts a
		LEFT JOIN alert_feedback f ON f.alert_id = a.alert_id
		WHERE a.user_id = $1 AND a.created_at >= $2
		GROUP BY a.alert_type`,
		userID, since, quickDismissSeconds,
	)
	if err != nil {
		return Analytics{}, fmt.Errorf("analytics query: %w", err)
	}
	defer rows.Close()

	var totalUseful, totalLedToBet, totalQuick int
	var ttaWeighted float64
	for rows.Next() {
		var alertType string
		var alerts, fb, ledToBet, quick, useful int
		var avgTTA float64
		if err := rows.Scan(&alertType, &alerts, &fb, &ledToBet, &quick, &useful, &avgTTA); err != nil {
			return Analytics{}, fmt.Errorf("scan analytics row: %w", err)
		}

		ts := TypeStats{
			Alerts:          alerts,
			Feedback:        fb,
			LedToBet:        ledToBet,
			QuickDismissals: quick,
		}
		if fb > 0 {
			ts.UsefulRate = float64(useful) / float64(fb)
		}
		if alerts > 0 {
			ts.ConversionRate = float64(ledToBet) / float64(alerts)
		}
		out.ByAlertType[alertType] = ts

		out.Alerts += alerts
		out.Feedback += fb
		totalUseful += useful
		totalLedToBet += ledToBet
		totalQuick += quick
		ttaWeighted += avgTTA * float64(fb)
	}
	if err := rows.Err(); err != nil {
		return Analytics{}, fmt.Errorf("analytics rows: %w", err)
	}

	if out.Feedback > 0 {
		out.UsefulRate = float64(totalUseful) / float64(out.Feedback)
		out.FalsePositiveRate = float64(totalQuick) / float64(out.Feedback)
		out.AvgTimeToAction = ttaWeighted / float64(out.Feedback)
	}
	if out.Alerts > 0 {
		out.ConversionRate = float64(totalLedToBet) / float64(out.Alerts)
	}
	return out, nil
}
