// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/betpulse/betpulse-engine/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers the statements on the engine's hot
// paths. Everything here runs once per tracked game per poll tick, so the
// parse savings are worth the connection-setup cost.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Engine: tracked-set + pipeline reads
		"open_bets_for_game": `
			SELECT bet_id, user_id, game_id, bet_type, side, amount, odds,
			       line, market_ticker, placed_at
			FROM open_bets
			WHERE game_id = $1 AND settled = FALSE
			ORDER BY placed_at`,
		"games_with_open_bets": `
			SELECT DISTINCT game_id FROM open_bets WHERE settled = FALSE`,

		// Engine + API: preference snapshot
		"get_alert_preference": `
			SELECT user_id, alerts_enabled,
			       game_starting, momentum_shift, close_finish, critical_moment,
			       win_prob_change, hedge_opportunity, line_movement, injury_update,
			       win_prob_change_threshold, momentum_points_threshold,
			       hedge_profit_threshold, close_finish_minutes,
			       channel_app, channel_email, channel_sms,
			       quiet_hours_enabled, quiet_hours_start, quiet_hours_end, timezone
			FROM alert_preferences
			WHERE user_id = $1`,

		// API: inbox
		"list_unread_alerts": `
			SELECT alert_id, user_id, game_id, alert_type, title, message,
			       priority, payload, created_at, is_read, dismissed, expired
			FROM alerts
			WHERE user_id = $1 AND is_read = FALSE AND dismissed = FALSE AND expired = FALSE
			ORDER BY created_at DESC`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
