// Package market holds the betting-side domain: open bets, market quotes,
// odds conversions, and the hedge arithmetic behind hedge alerts.
package market

import "time"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Bet types carried by open bet rows.
const (
	BetSpread    = "spread"
	BetTotal     = "total"
	BetMoneyline = "moneyline"
)

// Market sides.
const (
	SideHome  = "home"
	SideAway  = "away"
	SideOver  = "over"
	SideUnder = "under"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// OpenBet is an unsettled bet read from the bets table.
type OpenBet struct {
	BetID        string
	UserID       string
	GameID       string
	BetType      string // "spread" | "total" | "moneyline"
	Side         string // "home" | "away" | "over" | "under"
	Amount       float64
	Odds         int     // American odds at placement
	Line         float64 // spread/total line at placement, 0 for moneyline
	MarketTicker string
	PlacedAt     time.Time
}

// Quote is the current market state for one ticker, as read from the odds
// feed. Odds are decimal, keyed by side.
type Quote struct {
	Ticker    string             `json:"ticker"`
	Odds      map[string]float64 `json:"odds"`
	Line      float64            `json:"line"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// SideOdds returns the current decimal odds for a side of the quote.
func (q Quote) SideOdds(side string) (float64, bool) {
	d, ok := q.Odds[side]
	return d, ok
}

// OppositeSide returns the side that hedges the given one, or "" for sides
// that have no market opposite.
func OppositeSide(side string) string {
	switch side {
	case SideHome:
		return SideAway
	case SideAway:
		return SideHome
	case SideOver:
		return SideUnder
	case SideUnder:
		return SideOver
	default:
		return ""
	}
}
