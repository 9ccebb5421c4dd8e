// Package engine runs the alert pipeline: it tracks every game users hold
// open bets on, gives each tracked game its own worker, and pushes derived
// signals through rules, dedup, persistence, and dispatch.
//
// Pipeline per snapshot: derive signals → evaluate per-user rules → dedup →
// persist alert → enqueue dispatch. Games are independent streams: a slow
// evaluation for one game never blocks another.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/betpulse/betpulse-engine/internal/alert"
	"github.com/betpulse/betpulse-engine/internal/dedup"
	"github.com/betpulse/betpulse-engine/internal/dispatch"
	"github.com/betpulse/betpulse-engine/internal/feed"
	"github.com/betpulse/betpulse-engine/internal/game"
	"github.com/betpulse/betpulse-engine/internal/market"
	"github.com/betpulse/betpulse-engine/internal/metrics"
	"github.com/betpulse/betpulse-engine/internal/rules"
	"github.com/betpulse/betpulse-engine/internal/signal"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultPollInterval    = 30 * time.Second
	defaultRefreshInterval = time.Minute
	defaultSweepInterval   = 10 * time.Minute
	defaultSweepMaxAge     = time.Hour
	defaultRetention       = 15 * time.Minute
	stalenessFactor        = 3
)

// --------------------------------------------------------------------------
// Collaborator interfaces
// --------------------------------------------------------------------------

// BetStore reads the open-bet set. Bets are owned elsewhere; the engine
// never writes them.
type BetStore interface {
	OpenBetsForGame(ctx context.Context, gameID string) ([]market.OpenBet, error)
	GameIDsWithOpenBets(ctx context.Context) ([]string, error)
}

// PreferenceStore reads a user's resolved alert preferences.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (rules.AlertPreference, error)
}

// AlertStore persists accepted alerts and retires them when games end.
type AlertStore interface {
	Insert(ctx context.Context, a alert.Alert) error
	ExpireForGame(ctx context.Context, gameID string) (int64, error)
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	PollInterval      time.Duration // expected snapshot cadence per game
	RefreshInterval   time.Duration // tracked-set recomputation cadence
	HistoryRetention  time.Duration // scoring history kept per game
	SweepInterval     time.Duration // dedup key eviction cadence
	SweepMaxAge       time.Duration // dedup key idle lifetime
	LineMoveThreshold float64       // system-level line movement bar
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.HistoryRetention <= 0 {
		c.HistoryRetention = defaultRetention
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
	if c.SweepMaxAge <= 0 {
		c.SweepMaxAge = defaultSweepMaxAge
	}
	return c
}

// Engine owns the tracked-game workers and the shared pipeline stages.
type Engine struct {
	cfg        Config
	games      feed.GameFeed
	odds       feed.OddsFeed
	bets       BetStore
	prefs      PreferenceStore
	alerts     AlertStore
	evaluator  *rules.Evaluator
	deduper    *dedup.Deduper
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	poke chan struct{}

	mu      sync.Mutex
	workers map[string]*worker
	wg      sync.WaitGroup
}

// New wires the pipeline stages together.
func New(cfg Config, games feed.GameFeed, odds feed.OddsFeed, bets BetStore,
	prefs PreferenceStore, alerts AlertStore, evaluator *rules.Evaluator,
	deduper *dedup.Deduper, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:        cfg.withDefaults(),
		games:      games,
		odds:       odds,
		bets:       bets,
		prefs:      prefs,
		alerts:     alerts,
		evaluator:  evaluator,
		deduper:    deduper,
		dispatcher: dispatcher,
		logger:     logger,
		poke:       make(chan struct{}, 1),
		workers:    make(map[string]*worker),
	}
}

// Poke requests an immediate tracked-set refresh, ahead of the next refresh
// tick. Never blocks; a refresh already pending absorbs the request.
func (e *Engine) Poke() {
	select {
	case e.poke <- struct{}{}:
	default:
	}
}

// Run refreshes the tracked set and sweeps dedup state until ctx is
// cancelled, then waits for every game worker to stop.
// Intended to be called with `go`.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("Engine started",
		"poll_interval", e.cfg.PollInterval, "refresh_interval", e.cfg.RefreshInterval)

	e.refresh(ctx)

	refresh := time.NewTicker(e.cfg.RefreshInterval)
	sweep := time.NewTicker(e.cfg.SweepInterval)
	defer refresh.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			e.stopAll()
			e.wg.Wait()
			e.logger.Info("Engine stopped")
			return
		case <-refresh.C:
			e.refresh(ctx)
		case <-e.poke:
			e.refresh(ctx)
		case <-sweep.C:
			if n := e.deduper.Sweep(time.Now(), e.cfg.SweepMaxAge); n > 0 {
				e.logger.Info("Dedup sweep", "evicted", n)
			}
		}
	}
}

// refresh recomputes the tracked set: every game somebody holds an open bet
// on gets a worker once it is live or near tip-off, and workers for games
// nobody bets anymore are stopped. The scoreboard supplies start times so
// games hours from tip-off do not burn poll budget.
func (e *Engine) refresh(ctx context.Context) {
	ids, err := e.bets.GameIDsWithOpenBets(ctx)
	if err != nil {
		e.logger.Error("Tracked-set refresh failed", "error", err)
		return
	}

	var board map[string]game.Snapshot
	if snaps, err := e.games.Scoreboard(ctx); err != nil {
		e.logger.Warn("Scoreboard fetch failed, tracking all bet games", "error", err)
	} else {
		board = make(map[string]game.Snapshot, len(snaps))
		for _, s := range snaps {
			board[s.GameID] = s
		}
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if e.trackNow(board, id) {
			want[id] = true
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for id := range want {
		if _, ok := e.workers[id]; !ok {
			e.startWorkerLocked(ctx, id)
		}
	}
	for id, w := range e.workers {
		if !want[id] {
			e.logger.Info("Untracking game, no open bets remain", "game_id", id)
			w.cancel()
			delete(e.workers, id)
			e.deduper.PurgeGame(id)
			metrics.TrackedGames.Dec()
		}
	}
}

// trackNow decides whether a bet-holding game needs a live worker yet.
// Games the board does not list are tracked anyway: Poll tolerates not
// found, and a board hiccup must never untrack a live game.
func (e *Engine) trackNow(board map[string]game.Snapshot, gameID string) bool {
	if board == nil {
		return true
	}
	s, ok := board[gameID]
	if !ok {
		return true
	}
	if s.Final() {
		return false
	}
	if s.Status == game.StatusScheduled && !s.StartTime.IsZero() {
		return time.Until(s.StartTime) <= signal.StartLeadWindow+e.cfg.RefreshInterval
	}
	return true
}

func (e *Engine) startWorkerLocked(ctx context.Context, gameID string) {
	wctx, cancel := context.WithCancel(ctx)
	w := newWorker(gameID, e, cancel)
	e.workers[gameID] = w
	e.wg.Add(1)
	metrics.TrackedGames.Inc()
	go func() {
		defer e.wg.Done()
		w.run(wctx)
	}()
	e.logger.Info("Tracking game", "game_id", gameID)
}

// finishGame tears down a game that reached final: live alerts expire, the
// worker goes away, dedup forgets the game. In-flight dispatch tasks drain
// on their own.
func (e *Engine) finishGame(ctx context.Context, gameID string) {
	if n, err := e.alerts.ExpireForGame(ctx, gameID); err != nil {
		e.logger.Error("Expire alerts failed", "game_id", gameID, "error", err)
	} else if n > 0 {
		e.logger.Info("Expired alerts for finished game", "game_id", gameID, "count", n)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.workers[gameID]; ok {
		w.cancel()
		delete(e.workers, gameID)
		e.deduper.PurgeGame(gameID)
		metrics.TrackedGames.Dec()
	}
}

func (e *Engine) stopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, w := range e.workers {
		w.cancel()
		delete(e.workers, id)
	}
}

// RouteInjury hands a push-style injury event to the owning game's worker so
// per-game ordering holds for every input kind. Events for untracked games
// are dropped: nobody holds a bet to alert on.
func (e *Engine) RouteInjury(ev signal.InjuryEvent) {
	e.mu.Lock()
	w, ok := e.workers[ev.GameID]
	e.mu.Unlock()
	if !ok {
		return
	}
	w.offer(event{injury: &ev})
}

// RouteLineTick hands a push-style market update to the owning game's
// worker.
func (e *Engine) RouteLineTick(tick feed.LineTick) {
	e.mu.Lock()
	w, ok := e.workers[tick.GameID]
	e.mu.Unlock()
	if !ok {
		return
	}
	w.offer(event{tick: &tick})
}

// TrackedCount reports how many games have live workers.
func (e *Engine) TrackedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.workers)
}
