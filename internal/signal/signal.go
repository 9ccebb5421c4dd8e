// Package signal derives typed alert candidates from consecutive game
// snapshots, scoring history, open bets, and live market quotes.
//
// Pipeline: snapshot arrives → raw game deltas computed once → per-user
// thresholds applied → candidate signals. Derivation is pure: the same
// inputs always produce the same signals, and nothing here touches the
// network or mutates shared state.
package signal

import (
	"time"

	"github.com/betpulse/betpulse-engine/internal/game"
	"github.com/betpulse/betpulse-engine/internal/market"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Alert types. These values are persisted and exposed over the API.
const (
	TypeGameStarting     = "game_starting"
	TypeMomentumShift    = "momentum_shift"
	TypeCloseFinish      = "close_finish"
	TypeCriticalMoment   = "critical_moment"
	TypeWinProbChange    = "win_prob_change"
	TypeHedgeOpportunity = "hedge_opportunity"
	TypeLineMovement     = "line_movement"
	TypeInjuryUpdate     = "injury_update"
)

// Types lists every alert type in display order.
var Types = []string{
	TypeGameStarting,
	TypeMomentumShift,
	TypeCloseFinish,
	TypeCriticalMoment,
	TypeWinProbChange,
	TypeHedgeOpportunity,
	TypeLineMovement,
	TypeInjuryUpdate,
}

// Known reports whether t is a recognized alert type.
func Known(t string) bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

const (
	// StartLeadWindow is the pre-game lead for game_starting. The engine
	// also uses it to decide when a scheduled game needs a worker.
	StartLeadWindow = 10 * time.Minute
	// Trailing game-clock window for momentum sums.
	momentumWindow = 5 * time.Minute
	// Remaining time under which a close game becomes a critical moment.
	criticalClock = 2 * time.Minute
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Thresholds are the per-user numeric knobs the deriver applies. All
// comparisons are inclusive: metric == threshold fires.
type Thresholds struct {
	MomentumPoints  int     // one side's points in the trailing window
	WinProbDelta    float64 // |Δ win probability| between snapshots, fraction
	HedgeProfitRate float64 // guaranteed profit rate, fraction
	CloseFinishMins int     // "final N minutes" window
}

// InjuryEvent is a push-style injury report tagged to a tracked game.
type InjuryEvent struct {
	GameID     string    `json:"game_id"`
	Team       string    `json:"team"`
	Player     string    `json:"player"`
	Detail     string    `json:"detail"`
	ReportedAt time.Time `json:"reported_at"`
}

// Payload carries the context an alert renders and stores. Fields are
// type-specific; unused ones stay zero and are omitted from JSON.
type Payload struct {
	HomeTeam  string `json:"home_team,omitempty"`
	AwayTeam  string `json:"away_team,omitempty"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Period    int    `json:"period,omitempty"`
	Clock     string `json:"clock,omitempty"`

	Metric float64 `json:"metric"`

	StartTime     time.Time `json:"start_time"`
	WinProbBefore float64   `json:"win_prob_before,omitempty"`
	WinProbAfter  float64   `json:"win_prob_after,omitempty"`

	BetID        string  `json:"bet_id,omitempty"`
	MarketTicker string  `json:"market_ticker,omitempty"`
	LineBefore   float64 `json:"line_before,omitempty"`
	LineAfter    float64 `json:"line_after,omitempty"`
	HedgeStake   float64 `json:"hedge_stake,omitempty"`
	HedgeProfit  float64 `json:"hedge_profit,omitempty"`

	Player string `json:"player,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Signal is one derived alert candidate for one user.
type Signal struct {
	Type      string
	GameID    string
	UserID    string
	Team      string  // scoring side, bet side, or injured player's team
	Metric    float64 // the value that cleared the threshold
	Threshold float64 // the bar it cleared; zero for unthresholded types
	Payload   Payload
	At        time.Time // candidate timestamp
}

// Input bundles everything one derivation pass reads.
type Input struct {
	Cur     game.Snapshot
	History *game.History // pre-advance: History.Prev() is the delta baseline
	Profile game.Profile
	Now     time.Time

	Bets     []market.OpenBet        // open bets on this game, all users
	Quotes   map[string]market.Quote // current quotes by market ticker
	Injuries []InjuryEvent           // pending injury events for this game

	// Degraded suppresses everything except game_starting and
	// injury_update while the feed is stale.
	Degraded bool

	// LineMoveThreshold is system-level; line moves have no per-user knob.
	LineMoveThreshold float64
}
