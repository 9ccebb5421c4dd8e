// Package game holds the live game domain: score snapshots from the feed,
// per-league timing profiles, clock arithmetic, and the rolling scoring
// history the signal deriver reads.
package game

import "time"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Game status values as they arrive from the scoreboard feed.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusFinal      = "final"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Snapshot is one observation of a live game.
type Snapshot struct {
	GameID      string
	League      string // "nba" | "nfl" | "nhl" | ...
	HomeTeam    string
	AwayTeam    string
	HomeScore   int
	AwayScore   int
	Period      int
	Clock       string // "M:SS" remaining in period, empty between periods
	Status      string
	StartTime   time.Time
	HomeWinProb *float64 // nil when the feed carries no model output
	ObservedAt  time.Time
}

// InProgress reports whether the game is live.
func (s Snapshot) InProgress() bool { return s.Status == StatusInProgress }

// Final reports whether the game has ended.
func (s Snapshot) Final() bool { return s.Status == StatusFinal }

// Margin returns home score minus away score.
func (s Snapshot) Margin() int { return s.HomeScore - s.AwayScore }

// Leader returns the team currently ahead, or "" when tied.
func (s Snapshot) Leader() string {
	switch {
	case s.HomeScore > s.AwayScore:
		return s.HomeTeam
	case s.AwayScore > s.HomeScore:
		return s.AwayTeam
	default:
		return ""
	}
}

// Profile carries the per-league timing and scoring shape the deriver needs.
type Profile struct {
	League         string
	Periods        int           // regulation period count
	PeriodLength   time.Duration // regulation period length
	CloseScoreBand int           // margin at or under this is a close game
}

var profiles = map[string]Profile{
	"nba": {League: "nba", Periods: 4, PeriodLength: 12 * time.Minute, CloseScoreBand: 8},
	"nfl": {League: "nfl", Periods: 4, PeriodLength: 15 * time.Minute, CloseScoreBand: 8},
	"nhl": {League: "nhl", Periods: 3, PeriodLength: 20 * time.Minute, CloseScoreBand: 1},
}

// Fallback for leagues without a tuned profile.
var defaultProfile = Profile{League: "", Periods: 4, PeriodLength: 12 * time.Minute, CloseScoreBand: 8}

// ProfileFor returns the timing profile for a league, falling back to the
// NBA-shaped default for unknown leagues.
func ProfileFor(league string) Profile {
	if p, ok := profiles[league]; ok {
		return p
	}
	return defaultProfile
}

// Regulation returns the total regulation game time.
func (p Profile) Regulation() time.Duration {
	return time.Duration(p.Periods) * p.PeriodLength
}
