// Package maintenance runs periodic background tasks as Go tickers.
// Replaces cron: all scheduled work is driven from Go since the engine is
// already a persistent, long-running service.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval time.Duration // purge alerts past retention
	ExpireInterval  time.Duration // age-based expiry sweep
	AlertRetention  time.Duration // how long handled alerts are kept
	ExpireAfter     time.Duration // how long a live alert may sit unhandled
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval: time.Hour,
		ExpireInterval:  15 * time.Minute,
		AlertRetention:  30 * 24 * time.Hour,
		ExpireAfter:     12 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"expire", cfg.ExpireInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Cleanup: drop alerts past retention along with their feedback rows
	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, pool, cfg.AlertRetention, logger) })
	}

	// Expiry: catch alerts whose game finished while the engine was down
	if cfg.ExpireInterval > 0 {
		t := time.NewTicker(cfg.ExpireInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { expireStale(ctx, pool, cfg.ExpireAfter, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// cleanup removes alerts older than the retention window. Feedback rows go
// with them via ON DELETE CASCADE, so analytics stay bounded to the same
// horizon as the alerts table.
func cleanup(ctx context.Context, pool *pgxpool.Pool, retention time.Duration, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM alerts
		WHERE created_at < NOW() - $1::interval`,
		retention.String())
	if err != nil {
		logger.Warn("Cleanup: failed to purge old alerts", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Cleanup: purged old alerts", "count", tag.RowsAffected())
	}
}

// expireStale retires live alerts that sat unhandled long past any game's
// runtime. The engine expires alerts the moment it sees a final snapshot;
// this sweep covers games that finished while the engine was not watching.
func expireStale(ctx context.Context, pool *pgxpool.Pool, maxAge time.Duration, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		UPDATE alerts SET expired = TRUE
		WHERE expired = FALSE AND is_read = FALSE AND dismissed = FALSE
		  AND created_at < NOW() - $1::interval`,
		maxAge.String())
	if err != nil {
		logger.Warn("Expiry sweep: failed", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Expiry sweep: expired stale alerts", "count", tag.RowsAffected())
	}
}
