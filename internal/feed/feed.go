// Package feed adapts the external data sources the engine consumes: the
// HTTP scoreboard, the Redis odds cache, and the Kafka event topics for
// injuries and line ticks.
package feed

import (
	"context"
	"errors"

	"github.com/betpulse/betpulse-engine/internal/game"
	"github.com/betpulse/betpulse-engine/internal/market"
)

// ErrNotFound means the game or market is not on the board yet. Pollers
// tolerate it and try again next tick.
var ErrNotFound = errors.New("not on the feed")

// ErrStale marks data older than its staleness window. A degraded-mode
// signal, not a hard failure.
var ErrStale = errors.New("feed data stale")

// GameFeed supplies score/clock/period snapshots.
type GameFeed interface {
	// Poll fetches the current snapshot for one game. ErrNotFound when the
	// feed does not list it.
	Poll(ctx context.Context, gameID string) (game.Snapshot, error)
	// Scoreboard lists today's games, tracked or not. The tracker uses it
	// to find scheduled games approaching tip-off.
	Scoreboard(ctx context.Context) ([]game.Snapshot, error)
}

// OddsFeed supplies current market quotes.
type OddsFeed interface {
	// CurrentOdds returns the live quote for a market ticker. ErrNotFound
	// when the market is unknown, ErrStale when the quote is too old to
	// trust for money-relevant signals.
	CurrentOdds(ctx context.Context, ticker string) (market.Quote, error)
}
