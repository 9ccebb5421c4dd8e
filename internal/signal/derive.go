package signal

import (
	"math"
	"sort"
	"time"

	"github.com/betpulse/betpulse-engine/internal/game"
	"github.com/betpulse/betpulse-engine/internal/market"
)

// Derive runs one evaluation pass over a game and returns every candidate
// signal across the given users. Users map user_id to that user's resolved
// thresholds; game-scoped signals fan out to all of them, bet-scoped signals
// only to the bet owner. The history is read pre-advance: its baseline is
// the previous snapshot.
func Derive(in Input, users map[string]Thresholds) []Signal {
	var out []Signal

	// Injury events and the pre-game alert pass through even when the feed
	// is degraded. Everything else needs trustworthy snapshot data.
	out = append(out, deriveInjuries(in, users)...)
	out = append(out, deriveGameStarting(in, users)...)
	if in.Degraded {
		return out
	}

	out = append(out, deriveMomentum(in, users)...)
	out = append(out, deriveCloseness(in, users)...)
	out = append(out, deriveWinProb(in, users)...)
	out = append(out, deriveHedges(in, users)...)
	out = append(out, deriveLineMoves(in, users)...)
	return out
}

// sortedUsers returns user IDs in stable order so derivation output is
// deterministic for a given input.
func sortedUsers(users map[string]Thresholds) []string {
	ids := make([]string, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// basePayload copies the snapshot context every alert renders.
func basePayload(s game.Snapshot) Payload {
	return Payload{
		HomeTeam:  s.HomeTeam,
		AwayTeam:  s.AwayTeam,
		HomeScore: s.HomeScore,
		AwayScore: s.AwayScore,
		Period:    s.Period,
		Clock:     s.Clock,
	}
}

// --------------------------------------------------------------------------
// Game-scoped signals
// --------------------------------------------------------------------------

func deriveGameStarting(in Input, users map[string]Thresholds) []Signal {
	s := in.Cur
	if s.Status != game.StatusScheduled || s.StartTime.IsZero() {
		return nil
	}
	if in.History.StartAlerted() {
		return nil
	}
	until := s.StartTime.Sub(in.Now)
	if until > StartLeadWindow {
		return nil
	}

	payload := basePayload(s)
	payload.StartTime = s.StartTime
	payload.Metric = until.Minutes()

	var out []Signal
	for _, uid := range sortedUsers(users) {
		out = append(out, Signal{
			Type:    TypeGameStarting,
			GameID:  s.GameID,
			UserID:  uid,
			Metric:  until.Minutes(),
			Payload: payload,
			At:      in.Now,
		})
	}
	return out
}

func deriveMomentum(in Input, users map[string]Thresholds) []Signal {
	s := in.Cur
	prev, ok := in.History.Prev()
	if !ok || !s.InProgress() {
		return nil
	}
	elapsed, err := game.Elapsed(s, in.Profile)
	if err != nil {
		// Unparsable clock: skip clock-derived signals for this tick.
		return nil
	}

	home, away := in.History.TeamPoints(elapsed, momentumWindow)
	home += s.HomeScore - prev.HomeScore
	away += s.AwayScore - prev.AwayScore

	var team string
	var run int
	switch {
	case home > away:
		team, run = s.HomeTeam, home
	case away > home:
		team, run = s.AwayTeam, away
	default:
		return nil // no side is outscoring the other
	}

	payload := basePayload(s)
	payload.Metric = float64(run)

	var out []Signal
	for _, uid := range sortedUsers(users) {
		th := users[uid]
		if th.MomentumPoints <= 0 || run < th.MomentumPoints {
			continue
		}
		out = append(out, Signal{
			Type:      TypeMomentumShift,
			GameID:    s.GameID,
			UserID:    uid,
			Team:      team,
			Metric:    float64(run),
			Threshold: float64(th.MomentumPoints),
			Payload:   payload,
			At:        in.Now,
		})
	}
	return out
}

// deriveCloseness emits close_finish and, under two minutes, the compound
// critical_moment signal.
func deriveCloseness(in Input, users map[string]Thresholds) []Signal {
	s := in.Cur
	if !s.InProgress() {
		return nil
	}
	margin := s.Margin()
	if margin < 0 {
		margin = -margin
	}
	if margin > in.Profile.CloseScoreBand {
		return nil
	}

	var remaining time.Duration
	var err error
	if game.InOvertime(s, in.Profile) {
		remaining, err = game.ParseClock(s.Clock)
	} else {
		remaining, err = game.RegulationRemaining(s, in.Profile)
	}
	if err != nil {
		return nil
	}

	payload := basePayload(s)
	payload.Metric = remaining.Seconds()

	var out []Signal
	for _, uid := range sortedUsers(users) {
		th := users[uid]
		window := time.Duration(th.CloseFinishMins) * time.Minute
		inWindow := game.InOvertime(s, in.Profile) || remaining <= window
		if th.CloseFinishMins <= 0 || !inWindow {
			continue
		}
		out = append(out, Signal{
			Type:    TypeCloseFinish,
			GameID:  s.GameID,
			UserID:  uid,
			Metric:  remaining.Seconds(),
			Payload: payload,
			At:      in.Now,
		})
		if remaining < criticalClock {
			out = append(out, Signal{
				Type:    TypeCriticalMoment,
				GameID:  s.GameID,
				UserID:  uid,
				Metric:  remaining.Seconds(),
				Payload: payload,
				At:      in.Now,
			})
		}
	}
	return out
}

func deriveWinProb(in Input, users map[string]Thresholds) []Signal {
	s := in.Cur
	prev, ok := in.History.Prev()
	if !ok || !s.InProgress() {
		return nil
	}
	if prev.HomeWinProb == nil || s.HomeWinProb == nil {
		return nil
	}
	before, after := *prev.HomeWinProb, *s.HomeWinProb
	delta := math.Abs(after - before)
	if delta == 0 {
		return nil
	}

	team := s.HomeTeam
	if after < before {
		team = s.AwayTeam
	}
	payload := basePayload(s)
	payload.Metric = delta
	payload.WinProbBefore = before
	payload.WinProbAfter = after

	var out []Signal
	for _, uid := range sortedUsers(users) {
		th := users[uid]
		if th.WinProbDelta <= 0 || delta < th.WinProbDelta {
			continue
		}
		out = append(out, Signal{
			Type:      TypeWinProbChange,
			GameID:    s.GameID,
			UserID:    uid,
			Team:      team,
			Metric:    delta,
			Threshold: th.WinProbDelta,
			Payload:   payload,
			At:        in.Now,
		})
	}
	return out
}

func deriveInjuries(in Input, users map[string]Thresholds) []Signal {
	var out []Signal
	for _, ev := range in.Injuries {
		payload := basePayload(in.Cur)
		payload.Player = ev.Player
		payload.Detail = ev.Detail
		for _, uid := range sortedUsers(users) {
			out = append(out, Signal{
				Type:    TypeInjuryUpdate,
				GameID:  in.Cur.GameID,
				UserID:  uid,
				Team:    ev.Team,
				Payload: payload,
				At:      in.Now,
			})
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Bet-scoped signals
// --------------------------------------------------------------------------

func deriveHedges(in Input, users map[string]Thresholds) []Signal {
	if in.Cur.Final() {
		return nil
	}
	var out []Signal
	for _, bet := range in.Bets {
		th, ok := users[bet.UserID]
		if !ok || th.HedgeProfitRate <= 0 {
			continue
		}
		quote, ok := in.Quotes[bet.MarketTicker]
		if !ok {
			continue
		}
		opposite := market.OppositeSide(bet.Side)
		d2, ok := quote.SideOdds(opposite)
		if !ok {
			continue
		}
		d1, err := market.AmericanToDecimal(bet.Odds)
		if err != nil {
			continue
		}
		plan, err := market.SolveHedge(bet.Amount, d1, d2)
		if err != nil || plan.ProfitRate < th.HedgeProfitRate {
			continue
		}

		payload := basePayload(in.Cur)
		payload.Metric = plan.ProfitRate
		payload.BetID = bet.BetID
		payload.MarketTicker = bet.MarketTicker
		payload.HedgeStake = plan.HedgeStake
		payload.HedgeProfit = plan.Profit

		out = append(out, Signal{
			Type:      TypeHedgeOpportunity,
			GameID:    bet.GameID,
			UserID:    bet.UserID,
			Team:      bet.Side,
			Metric:    plan.ProfitRate,
			Threshold: th.HedgeProfitRate,
			Payload:   payload,
			At:        in.Now,
		})
	}
	return out
}

func deriveLineMoves(in Input, users map[string]Thresholds) []Signal {
	if in.Cur.Final() || in.LineMoveThreshold <= 0 {
		return nil
	}
	var out []Signal
	for _, bet := range in.Bets {
		if bet.BetType == market.BetMoneyline {
			continue // no line to move
		}
		if _, ok := users[bet.UserID]; !ok {
			continue
		}
		quote, ok := in.Quotes[bet.MarketTicker]
		if !ok {
			continue
		}
		delta := math.Abs(quote.Line - bet.Line)
		if delta < in.LineMoveThreshold {
			continue
		}

		payload := basePayload(in.Cur)
		payload.Metric = delta
		payload.BetID = bet.BetID
		payload.MarketTicker = bet.MarketTicker
		payload.LineBefore = bet.Line
		payload.LineAfter = quote.Line

		out = append(out, Signal{
			Type:      TypeLineMovement,
			GameID:    bet.GameID,
			UserID:    bet.UserID,
			Team:      bet.Side,
			Metric:    delta,
			Threshold: in.LineMoveThreshold,
			Payload:   payload,
			At:        in.Now,
		})
	}
	return out
}
