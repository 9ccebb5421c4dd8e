package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/betpulse/betpulse-engine/internal/dispatch"
	"github.com/betpulse/betpulse-engine/internal/feed"
	"github.com/betpulse/betpulse-engine/internal/game"
	"github.com/betpulse/betpulse-engine/internal/market"
	"github.com/betpulse/betpulse-engine/internal/metrics"
	"github.com/betpulse/betpulse-engine/internal/rules"
	"github.com/betpulse/betpulse-engine/internal/signal"
)

const inboxSize = 64

// event is a push-style input routed into a game's worker. Exactly one
// field is set.
type event struct {
	injury *signal.InjuryEvent
	tick   *feed.LineTick
}

// worker owns one tracked game: its poll loop, scoring history, staleness
// state, and every evaluation for that game. All inputs for a game flow
// through the single goroutine running run, which is what keeps per-game
// processing FIFO.
type worker struct {
	gameID string
	eng    *Engine
	cancel context.CancelFunc
	inbox  chan event
	logger *slog.Logger

	// Owned by the run goroutine.
	hist        *game.History
	lastSnap    *game.Snapshot
	lastArrival time.Time
	degraded    bool
}

func newWorker(gameID string, eng *Engine, cancel context.CancelFunc) *worker {
	return &worker{
		gameID: gameID,
		eng:    eng,
		cancel: cancel,
		inbox:  make(chan event, inboxSize),
		logger: eng.logger.With("game_id", gameID),
	}
}

// offer enqueues a push-style event without blocking the caller. A full
// inbox drops the event; the next poll re-derives from fresh state anyway.
func (w *worker) offer(ev event) {
	select {
	case w.inbox <- ev:
	default:
		w.logger.Warn("Worker inbox full, dropping event")
	}
}

// run polls the game feed on the engine's cadence and folds in pushed
// events between polls.
func (w *worker) run(ctx context.Context) {
	defer func() {
		if w.degraded {
			metrics.DegradedGames.Dec()
		}
	}()

	w.lastArrival = time.Now()
	w.poll(ctx)

	ticker := time.NewTicker(w.eng.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
			if ctx.Err() != nil {
				return
			}
		case ev := <-w.inbox:
			w.handleEvent(ctx, ev)
		}
	}
}

// poll fetches a snapshot and runs the pipeline on it. Fetch failures are
// tolerated; the staleness check decides when they add up to degraded mode.
func (w *worker) poll(ctx context.Context) {
	snap, err := w.eng.games.Poll(ctx, w.gameID)
	if err != nil {
		if errors.Is(err, feed.ErrNotFound) {
			w.logger.Debug("Game not found on feed yet")
		} else if ctx.Err() == nil {
			w.logger.Warn("Snapshot poll failed", "error", err)
		}
		w.checkStaleness(time.Now())
		return
	}

	now := time.Now()
	w.lastArrival = now
	if w.degraded {
		// Fresh data after an outage: re-baseline so the gap is not read
		// as a scoring run or probability swing.
		w.logger.Info("Feed recovered, resetting baseline")
		if w.hist != nil {
			w.hist.ResetBaseline(snap)
		}
		w.degraded = false
		metrics.DegradedGames.Dec()
	}

	w.process(ctx, snap, nil, nil, now)

	if w.hist != nil {
		w.hist.Advance(snap)
	}
	w.lastSnap = &snap
	metrics.SnapshotsProcessed.Inc()

	if snap.Final() {
		w.logger.Info("Game final, tearing down",
			"home", snap.HomeScore, "away", snap.AwayScore)
		w.eng.finishGame(ctx, w.gameID)
	}
}

// handleEvent evaluates a pushed input against the last known snapshot.
// History does not advance: no new score observation happened.
func (w *worker) handleEvent(ctx context.Context, ev event) {
	now := time.Now()
	w.checkStaleness(now)

	snap := w.currentSnapshot()
	switch {
	case ev.injury != nil:
		w.process(ctx, snap, []signal.InjuryEvent{*ev.injury}, nil, now)
	case ev.tick != nil:
		quote := ev.tick.Quote()
		w.process(ctx, snap, nil, map[string]market.Quote{quote.Ticker: quote}, now)
	}
}

// currentSnapshot returns the last polled snapshot, or a placeholder when
// the first poll has not landed yet.
func (w *worker) currentSnapshot() game.Snapshot {
	if w.lastSnap != nil {
		return *w.lastSnap
	}
	return game.Snapshot{GameID: w.gameID, Status: game.StatusScheduled}
}

// checkStaleness flips the game into degraded mode once no snapshot has
// arrived for stalenessFactor poll intervals. Degraded games keep running
// but magnitude-based signals are suppressed until the feed recovers.
func (w *worker) checkStaleness(now time.Time) {
	if w.degraded || w.lastSnap == nil || !w.lastSnap.InProgress() {
		return
	}
	if now.Sub(w.lastArrival) > time.Duration(stalenessFactor)*w.eng.cfg.PollInterval {
		w.logger.Warn("Feed stale, entering degraded mode",
			"last_arrival", w.lastArrival)
		w.degraded = true
		metrics.DegradedGames.Inc()
	}
}

// process runs one evaluation: assemble inputs, derive signals, and push
// each through rules, dedup, persistence, and dispatch.
func (w *worker) process(ctx context.Context, snap game.Snapshot,
	injuries []signal.InjuryEvent, pushed map[string]market.Quote, now time.Time) {

	bets, err := w.eng.bets.OpenBetsForGame(ctx, w.gameID)
	if err != nil {
		w.logger.Error("Open-bet lookup failed", "error", err)
		return
	}
	if len(bets) == 0 {
		return
	}

	if w.hist == nil {
		w.hist = game.NewHistory(game.ProfileFor(snap.League), w.eng.cfg.HistoryRetention)
	}

	prefs := w.loadPreferences(ctx, bets)
	if len(prefs) == 0 {
		return
	}
	thresholds := make(map[string]signal.Thresholds, len(prefs))
	for userID, pref := range prefs {
		thresholds[userID] = pref.Thresholds()
	}

	in := signal.Input{
		Cur:               snap,
		History:           w.hist,
		Profile:           game.ProfileFor(snap.League),
		Now:               now,
		Bets:              bets,
		Quotes:            w.loadQuotes(ctx, bets, pushed),
		Injuries:          injuries,
		Degraded:          w.degraded,
		LineMoveThreshold: w.eng.cfg.LineMoveThreshold,
	}

	sigs := signal.Derive(in, thresholds)
	for _, sig := range sigs {
		metrics.SignalsDerived.WithLabelValues(sig.Type).Inc()
		if sig.Type == signal.TypeGameStarting {
			w.hist.MarkStartAlerted()
		}
		w.emit(ctx, prefs[sig.UserID], sig, now)
	}
}

// emit takes one signal through the user-facing half of the pipeline.
func (w *worker) emit(ctx context.Context, pref rules.AlertPreference, sig signal.Signal, now time.Time) {
	intent := w.eng.evaluator.Evaluate(pref, sig, now)
	if intent == nil {
		metrics.IntentsSuppressed.WithLabelValues("preferences").Inc()
		return
	}

	decision := w.eng.deduper.Decide(*intent)
	if !decision.Accepted {
		metrics.IntentsSuppressed.WithLabelValues(decision.Reason).Inc()
		return
	}

	a := decision.Alert
	if err := w.eng.alerts.Insert(ctx, a); err != nil {
		w.logger.Warn("Alert insert failed, retrying once", "alert_id", a.AlertID, "error", err)
		if err := w.eng.alerts.Insert(ctx, a); err != nil {
			w.logger.Error("Alert insert failed, dropping", "alert_id", a.AlertID, "error", err)
			metrics.AlertWriteFailures.Inc()
			return
		}
	}
	metrics.AlertsCreated.WithLabelValues(a.AlertType, a.Priority).Inc()

	w.eng.dispatcher.Enqueue(dispatch.Task{Alert: a, Channels: pref.Channels()})
}

// loadPreferences resolves a preference snapshot for every distinct bettor
// on this game. A failed read skips the user for this evaluation only.
func (w *worker) loadPreferences(ctx context.Context, bets []market.OpenBet) map[string]rules.AlertPreference {
	prefs := make(map[string]rules.AlertPreference)
	for _, b := range bets {
		if _, ok := prefs[b.UserID]; ok {
			continue
		}
		pref, err := w.eng.prefs.Get(ctx, b.UserID)
		if err != nil {
			w.logger.Error("Preference lookup failed", "user_id", b.UserID, "error", err)
			continue
		}
		prefs[b.UserID] = pref
	}
	return prefs
}

// loadQuotes fetches current odds for every distinct market the bets
// reference. Pushed quotes win over cached ones; stale or missing markets
// are left out, which quietly disables hedge and line checks for them.
func (w *worker) loadQuotes(ctx context.Context, bets []market.OpenBet, pushed map[string]market.Quote) map[string]market.Quote {
	quotes := make(map[string]market.Quote)
	for _, b := range bets {
		if b.MarketTicker == "" {
			continue
		}
		if _, ok := quotes[b.MarketTicker]; ok {
			continue
		}
		if q, ok := pushed[b.MarketTicker]; ok {
			quotes[b.MarketTicker] = q
			continue
		}
		q, err := w.eng.odds.CurrentOdds(ctx, b.MarketTicker)
		if err != nil {
			if !errors.Is(err, feed.ErrNotFound) && !errors.Is(err, feed.ErrStale) {
				w.logger.Warn("Odds lookup failed", "ticker", b.MarketTicker, "error", err)
			}
			continue
		}
		quotes[b.MarketTicker] = q
	}
	return quotes
}
