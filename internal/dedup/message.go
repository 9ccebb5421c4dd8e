package dedup

import (
	"fmt"
	"time"

	"github.com/betpulse/betpulse-engine/internal/rules"
	"github.com/betpulse/betpulse-engine/internal/signal"
)

var titles = map[string]string{
	signal.TypeGameStarting:     "Game starting soon",
	signal.TypeMomentumShift:    "Momentum shift",
	signal.TypeCloseFinish:      "Close finish",
	signal.TypeCriticalMoment:   "Critical moment",
	signal.TypeWinProbChange:    "Win probability swing",
	signal.TypeHedgeOpportunity: "Hedge opportunity",
	signal.TypeLineMovement:     "Line movement",
	signal.TypeInjuryUpdate:     "Injury update",
}

func buildTitle(in rules.Intent) string {
	if t, ok := titles[in.AlertType]; ok {
		return t
	}
	return "Game alert"
}

func buildMessage(in rules.Intent) string {
	p := in.Payload
	score := fmt.Sprintf("%s %d, %s %d", p.HomeTeam, p.HomeScore, p.AwayTeam, p.AwayScore)

	switch in.AlertType {
	case signal.TypeGameStarting:
		mins := int(in.Metric + 0.5)
		if mins <= 0 {
			return fmt.Sprintf("%s at %s is tipping off now", p.AwayTeam, p.HomeTeam)
		}
		return fmt.Sprintf("%s at %s starts in %d min", p.AwayTeam, p.HomeTeam, mins)
	case signal.TypeMomentumShift:
		return fmt.Sprintf("%s on a %d-point run. %s", in.Team, int(in.Metric), score)
	case signal.TypeCloseFinish:
		return fmt.Sprintf("%s with %s left", score, clockLeft(in.Metric, p.Clock))
	case signal.TypeCriticalMoment:
		return fmt.Sprintf("%s, %s left. Decision time", score, clockLeft(in.Metric, p.Clock))
	case signal.TypeWinProbChange:
		return fmt.Sprintf("%s win probability moved from %.0f%% to %.0f%%",
			in.Team, p.WinProbBefore*100, p.WinProbAfter*100)
	case signal.TypeHedgeOpportunity:
		return fmt.Sprintf("Hedge %s for $%.2f to lock in %.1f%% profit",
			p.MarketTicker, p.HedgeStake, in.Metric*100)
	case signal.TypeLineMovement:
		return fmt.Sprintf("%s line moved from %+.1f to %+.1f",
			p.MarketTicker, p.LineBefore, p.LineAfter)
	case signal.TypeInjuryUpdate:
		if in.Team != "" {
			return fmt.Sprintf("%s (%s): %s", p.Player, in.Team, p.Detail)
		}
		return fmt.Sprintf("%s: %s", p.Player, p.Detail)
	default:
		return score
	}
}

// clockLeft prefers the raw feed clock, falling back to the metric seconds.
func clockLeft(seconds float64, clock string) string {
	if clock != "" {
		return clock
	}
	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
