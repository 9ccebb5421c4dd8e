package signal

import (
	"math"
	"testing"
	"time"

	"github.com/betpulse/betpulse-engine/internal/game"
	"github.com/betpulse/betpulse-engine/internal/market"
)

var testNow = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

func defaultThresholds() Thresholds {
	return Thresholds{
		MomentumPoints:  8,
		WinProbDelta:    0.10,
		HedgeProfitRate: 0.05,
		CloseFinishMins: 5,
	}
}

func liveSnap(period int, clock string, home, away int) game.Snapshot {
	return game.Snapshot{
		GameID:     "g1",
		League:     "nba",
		HomeTeam:   "Lakers",
		AwayTeam:   "Celtics",
		HomeScore:  home,
		AwayScore:  away,
		Period:     period,
		Clock:      clock,
		Status:     game.StatusInProgress,
		ObservedAt: testNow,
	}
}

func histWithBaseline(prev game.Snapshot) *game.History {
	h := game.NewHistory(game.ProfileFor("nba"), 15*time.Minute)
	h.Advance(prev)
	return h
}

func baseInput(cur game.Snapshot, hist *game.History) Input {
	return Input{
		Cur:     cur,
		History: hist,
		Profile: game.ProfileFor("nba"),
		Now:     testNow,
	}
}

func typesOf(sigs []Signal) map[string]int {
	out := make(map[string]int)
	for _, s := range sigs {
		out[s.Type]++
	}
	return out
}

// --------------------------------------------------------------------------
// game_starting
// --------------------------------------------------------------------------

func TestDeriveGameStarting(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds(), "erin": defaultThresholds()}

	scheduled := func(lead time.Duration) game.Snapshot {
		return game.Snapshot{
			GameID:    "g1",
			League:    "nba",
			HomeTeam:  "Lakers",
			AwayTeam:  "Celtics",
			Status:    game.StatusScheduled,
			StartTime: testNow.Add(lead),
		}
	}

	tests := []struct {
		name string
		lead time.Duration
		want int
	}{
		{"inside lead window", 8 * time.Minute, 2},
		{"exactly at lead window", 10 * time.Minute, 2},
		{"too early", 11 * time.Minute, 0},
		{"already tipping off", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput(scheduled(tt.lead), game.NewHistory(game.ProfileFor("nba"), 15*time.Minute))
			sigs := Derive(in, users)
			if len(sigs) != tt.want {
				t.Fatalf("got %d signals, want %d", len(sigs), tt.want)
			}
			for _, s := range sigs {
				if s.Type != TypeGameStarting {
					t.Errorf("signal type = %s, want %s", s.Type, TypeGameStarting)
				}
				if s.Payload.StartTime.IsZero() {
					t.Error("payload missing start time")
				}
			}
		})
	}
}

func TestDeriveGameStartingOncePerGame(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds()}
	hist := game.NewHistory(game.ProfileFor("nba"), 15*time.Minute)
	hist.MarkStartAlerted()

	snap := game.Snapshot{
		GameID:    "g1",
		Status:    game.StatusScheduled,
		StartTime: testNow.Add(5 * time.Minute),
	}
	if sigs := Derive(baseInput(snap, hist), users); len(sigs) != 0 {
		t.Errorf("latched game produced %d signals, want 0", len(sigs))
	}
}

func TestDeriveGameStartingSurvivesDegraded(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds()}
	snap := game.Snapshot{
		GameID:    "g1",
		Status:    game.StatusScheduled,
		StartTime: testNow.Add(5 * time.Minute),
	}
	in := baseInput(snap, game.NewHistory(game.ProfileFor("nba"), 15*time.Minute))
	in.Degraded = true

	sigs := Derive(in, users)
	if len(sigs) != 1 || sigs[0].Type != TypeGameStarting {
		t.Errorf("degraded derive = %+v, want one game_starting", typesOf(sigs))
	}
}

// --------------------------------------------------------------------------
// momentum_shift
// --------------------------------------------------------------------------

func TestDeriveMomentum(t *testing.T) {
	tests := []struct {
		name      string
		prevHome  int
		prevAway  int
		curHome   int
		curAway   int
		threshold int
		want      int
		wantTeam  string
	}{
		{"home run clears bar", 70, 65, 80, 67, 8, 1, "Lakers"},
		{"run equal to bar fires", 70, 65, 78, 65, 8, 1, "Lakers"},
		{"run under bar", 70, 65, 77, 65, 8, 0, ""},
		{"away run", 70, 65, 70, 75, 8, 1, "Celtics"},
		{"both sides even", 70, 65, 78, 73, 8, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := map[string]Thresholds{"dave": {
				MomentumPoints:  tt.threshold,
				WinProbDelta:    0.10,
				HedgeProfitRate: 0.05,
				CloseFinishMins: 1,
			}}
			hist := histWithBaseline(liveSnap(3, "8:00", tt.prevHome, tt.prevAway))
			cur := liveSnap(3, "6:00", tt.curHome, tt.curAway)

			var got []Signal
			for _, s := range Derive(baseInput(cur, hist), users) {
				if s.Type == TypeMomentumShift {
					got = append(got, s)
				}
			}
			if len(got) != tt.want {
				t.Fatalf("got %d momentum signals, want %d", len(got), tt.want)
			}
			if tt.want == 1 && got[0].Team != tt.wantTeam {
				t.Errorf("Team = %q, want %q", got[0].Team, tt.wantTeam)
			}
		})
	}
}

func TestDeriveMomentumAccumulatesWindow(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds()}

	hist := game.NewHistory(game.ProfileFor("nba"), 15*time.Minute)
	hist.Advance(liveSnap(3, "8:00", 60, 60))
	hist.Advance(liveSnap(3, "7:00", 66, 60)) // +6 home logged

	cur := liveSnap(3, "6:30", 70, 60) // +4 home pending
	sigs := Derive(baseInput(cur, hist), users)

	var momentum *Signal
	for i := range sigs {
		if sigs[i].Type == TypeMomentumShift {
			momentum = &sigs[i]
		}
	}
	if momentum == nil {
		t.Fatal("expected a momentum signal from the accumulated run")
	}
	if momentum.Metric != 10 {
		t.Errorf("Metric = %v, want 10", momentum.Metric)
	}
	if momentum.Threshold != 8 {
		t.Errorf("Threshold = %v, want 8", momentum.Threshold)
	}
}

func TestDeriveMomentumNeedsBaseline(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds()}
	hist := game.NewHistory(game.ProfileFor("nba"), 15*time.Minute)

	cur := liveSnap(3, "6:00", 80, 60)
	for _, s := range Derive(baseInput(cur, hist), users) {
		if s.Type == TypeMomentumShift {
			t.Fatal("momentum fired without a baseline snapshot")
		}
	}
}

// --------------------------------------------------------------------------
// close_finish / critical_moment
// --------------------------------------------------------------------------

func TestDeriveCloseness(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds()}

	tests := []struct {
		name         string
		period       int
		clock        string
		home, away   int
		wantClose    bool
		wantCritical bool
	}{
		{"close late game", 4, "4:30", 100, 96, true, false},
		{"window boundary inclusive", 4, "5:00", 100, 96, true, false},
		{"under two minutes", 4, "1:59", 100, 96, true, true},
		{"blowout", 4, "1:00", 110, 90, false, false},
		{"margin at band edge", 4, "3:00", 104, 96, true, false},
		{"too early", 3, "6:00", 80, 78, false, false},
		{"overtime always in window", 5, "3:00", 104, 103, true, false},
		{"overtime critical", 5, "1:30", 104, 103, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := histWithBaseline(liveSnap(tt.period, "9:00", tt.home, tt.away))
			cur := liveSnap(tt.period, tt.clock, tt.home, tt.away)

			got := typesOf(Derive(baseInput(cur, hist), users))
			if (got[TypeCloseFinish] == 1) != tt.wantClose {
				t.Errorf("close_finish fired = %v, want %v", got[TypeCloseFinish] == 1, tt.wantClose)
			}
			if (got[TypeCriticalMoment] == 1) != tt.wantCritical {
				t.Errorf("critical_moment fired = %v, want %v", got[TypeCriticalMoment] == 1, tt.wantCritical)
			}
		})
	}
}

func TestDeriveClosenessPerUserWindow(t *testing.T) {
	users := map[string]Thresholds{
		"dave": defaultThresholds(), // 5 minute window
		"erin": {MomentumPoints: 8, WinProbDelta: 0.10, HedgeProfitRate: 0.05, CloseFinishMins: 3},
	}

	hist := histWithBaseline(liveSnap(4, "9:00", 100, 96))
	cur := liveSnap(4, "4:30", 100, 96) // 4:30 left: inside 5, outside 3

	byUser := make(map[string]bool)
	for _, s := range Derive(baseInput(cur, hist), users) {
		if s.Type == TypeCloseFinish {
			byUser[s.UserID] = true
		}
	}
	if !byUser["dave"] || byUser["erin"] {
		t.Errorf("close_finish users = %v, want dave only", byUser)
	}
}

// --------------------------------------------------------------------------
// win_prob_change
// --------------------------------------------------------------------------

func probSnap(period int, clock string, prob float64) game.Snapshot {
	s := liveSnap(period, clock, 80, 78)
	s.HomeWinProb = &prob
	return s
}

func TestDeriveWinProb(t *testing.T) {
	tests := []struct {
		name          string
		before, after float64
		threshold     float64
		want          int
		wantTeam      string
	}{
		{"swing clears bar", 0.55, 0.70, 0.10, 1, "Lakers"},
		// 0.5 and 0.625 are exact in binary, so the delta lands exactly on
		// the threshold: inclusive comparison must fire.
		{"swing equal to bar fires", 0.5, 0.625, 0.125, 1, "Lakers"},
		{"swing toward away", 0.70, 0.55, 0.10, 1, "Celtics"},
		{"swing under bar", 0.55, 0.60, 0.10, 0, ""},
		{"no movement", 0.55, 0.55, 0.10, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := map[string]Thresholds{"dave": {
				MomentumPoints:  8,
				WinProbDelta:    tt.threshold,
				HedgeProfitRate: 0.05,
				CloseFinishMins: 5,
			}}
			hist := histWithBaseline(probSnap(3, "8:00", tt.before))
			cur := probSnap(3, "6:00", tt.after)

			var got []Signal
			for _, s := range Derive(baseInput(cur, hist), users) {
				if s.Type == TypeWinProbChange {
					got = append(got, s)
				}
			}
			if len(got) != tt.want {
				t.Fatalf("got %d win-prob signals, want %d", len(got), tt.want)
			}
			if tt.want == 1 {
				if got[0].Team != tt.wantTeam {
					t.Errorf("Team = %q, want %q", got[0].Team, tt.wantTeam)
				}
				if math.Abs(got[0].Payload.WinProbBefore-tt.before) > 1e-9 ||
					math.Abs(got[0].Payload.WinProbAfter-tt.after) > 1e-9 {
					t.Errorf("payload probs = %v → %v, want %v → %v",
						got[0].Payload.WinProbBefore, got[0].Payload.WinProbAfter, tt.before, tt.after)
				}
			}
		})
	}
}

func TestDeriveWinProbNeedsModelOutput(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds()}

	hist := histWithBaseline(liveSnap(3, "8:00", 80, 78)) // no prob
	cur := probSnap(3, "6:00", 0.70)

	for _, s := range Derive(baseInput(cur, hist), users) {
		if s.Type == TypeWinProbChange {
			t.Fatal("win_prob_change fired without a baseline probability")
		}
	}
}

// --------------------------------------------------------------------------
// hedge_opportunity
// --------------------------------------------------------------------------

func hedgeBet(userID string, amount float64, odds int) market.OpenBet {
	return market.OpenBet{
		BetID:        "b1",
		UserID:       userID,
		GameID:       "g1",
		BetType:      market.BetMoneyline,
		Side:         market.SideHome,
		Amount:       amount,
		Odds:         odds,
		MarketTicker: "NBA-LAL-BOS-ML",
	}
}

func TestDeriveHedges(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds()}

	tests := []struct {
		name     string
		odds     int     // original American odds
		opposite float64 // current decimal odds on the other side
		want     int
	}{
		// 100 at +100: hedging at 2.5 locks 20 on a 180 outlay, 11.1%.
		{"profitable hedge", 100, 2.5, 1},
		{"unprofitable hedge", 100, 1.5, 0},
		// Barely past break-even: ~0.5% stays under the 5% bar.
		{"rate under bar", 100, 2.02, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput(liveSnap(3, "6:00", 80, 78), histWithBaseline(liveSnap(3, "8:00", 80, 78)))
			in.Bets = []market.OpenBet{hedgeBet("dave", 100, tt.odds)}
			in.Quotes = map[string]market.Quote{
				"NBA-LAL-BOS-ML": {
					Ticker: "NBA-LAL-BOS-ML",
					Odds:   map[string]float64{market.SideAway: tt.opposite},
				},
			}

			var got []Signal
			for _, s := range Derive(in, users) {
				if s.Type == TypeHedgeOpportunity {
					got = append(got, s)
				}
			}
			if len(got) != tt.want {
				t.Fatalf("got %d hedge signals, want %d", len(got), tt.want)
			}
			if tt.want == 1 {
				if got[0].UserID != "dave" {
					t.Errorf("UserID = %q, want dave", got[0].UserID)
				}
				if math.Abs(got[0].Payload.HedgeStake-80) > 0.001 {
					t.Errorf("HedgeStake = %v, want 80", got[0].Payload.HedgeStake)
				}
				if math.Abs(got[0].Payload.HedgeProfit-20) > 0.001 {
					t.Errorf("HedgeProfit = %v, want 20", got[0].Payload.HedgeProfit)
				}
			}
		})
	}
}

func TestDeriveHedgesSkipsWithoutQuote(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds()}

	in := baseInput(liveSnap(3, "6:00", 80, 78), histWithBaseline(liveSnap(3, "8:00", 80, 78)))
	in.Bets = []market.OpenBet{hedgeBet("dave", 100, 100)}

	for _, s := range Derive(in, users) {
		if s.Type == TypeHedgeOpportunity {
			t.Fatal("hedge fired with no market quote")
		}
	}
}

func TestDeriveHedgesOnlyForBetOwner(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds(), "erin": defaultThresholds()}

	in := baseInput(liveSnap(3, "6:00", 80, 78), histWithBaseline(liveSnap(3, "8:00", 80, 78)))
	in.Bets = []market.OpenBet{hedgeBet("dave", 100, 100)}
	in.Quotes = map[string]market.Quote{
		"NBA-LAL-BOS-ML": {
			Ticker: "NBA-LAL-BOS-ML",
			Odds:   map[string]float64{market.SideAway: 2.5},
		},
	}

	for _, s := range Derive(in, users) {
		if s.Type == TypeHedgeOpportunity && s.UserID != "dave" {
			t.Errorf("hedge signal for %q, should only reach the bet owner", s.UserID)
		}
	}
}

// --------------------------------------------------------------------------
// line_movement
// --------------------------------------------------------------------------

func TestDeriveLineMoves(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds()}

	spreadBet := market.OpenBet{
		BetID:        "b2",
		UserID:       "dave",
		GameID:       "g1",
		BetType:      market.BetSpread,
		Side:         market.SideHome,
		Amount:       50,
		Odds:         -110,
		Line:         -4.5,
		MarketTicker: "NBA-LAL-BOS-SPREAD",
	}

	tests := []struct {
		name      string
		betType   string
		curLine   float64
		threshold float64
		want      int
	}{
		{"move clears bar", market.BetSpread, -6.0, 1.0, 1},
		{"move equal to bar fires", market.BetSpread, -5.5, 1.0, 1},
		{"move under bar", market.BetSpread, -5.0, 1.0, 0},
		{"moneyline has no line", market.BetMoneyline, -6.0, 1.0, 0},
		{"threshold disabled", market.BetSpread, -6.0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bet := spreadBet
			bet.BetType = tt.betType

			in := baseInput(liveSnap(3, "6:00", 80, 78), histWithBaseline(liveSnap(3, "8:00", 80, 78)))
			in.Bets = []market.OpenBet{bet}
			in.Quotes = map[string]market.Quote{
				"NBA-LAL-BOS-SPREAD": {Ticker: "NBA-LAL-BOS-SPREAD", Line: tt.curLine},
			}
			in.LineMoveThreshold = tt.threshold

			var got []Signal
			for _, s := range Derive(in, users) {
				if s.Type == TypeLineMovement {
					got = append(got, s)
				}
			}
			if len(got) != tt.want {
				t.Fatalf("got %d line signals, want %d", len(got), tt.want)
			}
			if tt.want == 1 {
				if got[0].Payload.LineBefore != -4.5 || got[0].Payload.LineAfter != tt.curLine {
					t.Errorf("line payload = %v → %v, want -4.5 → %v",
						got[0].Payload.LineBefore, got[0].Payload.LineAfter, tt.curLine)
				}
			}
		})
	}
}

// --------------------------------------------------------------------------
// injury_update
// --------------------------------------------------------------------------

func TestDeriveInjuriesFanOut(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds(), "erin": defaultThresholds()}

	in := baseInput(liveSnap(2, "5:00", 55, 50), histWithBaseline(liveSnap(2, "7:00", 50, 48)))
	in.Injuries = []InjuryEvent{{
		GameID:     "g1",
		Team:       "Lakers",
		Player:     "A. Davis",
		Detail:     "ankle, questionable to return",
		ReportedAt: testNow,
	}}

	var got []Signal
	for _, s := range Derive(in, users) {
		if s.Type == TypeInjuryUpdate {
			got = append(got, s)
		}
	}
	if len(got) != 2 {
		t.Fatalf("got %d injury signals, want one per user", len(got))
	}
	if got[0].UserID != "dave" || got[1].UserID != "erin" {
		t.Errorf("fan-out order = %s, %s; want dave, erin", got[0].UserID, got[1].UserID)
	}
	if got[0].Payload.Player != "A. Davis" || got[0].Team != "Lakers" {
		t.Errorf("payload = %+v", got[0].Payload)
	}
}

// --------------------------------------------------------------------------
// degraded mode
// --------------------------------------------------------------------------

func TestDeriveDegradedSuppressesSnapshotSignals(t *testing.T) {
	users := map[string]Thresholds{"dave": defaultThresholds()}

	// A snapshot that would fire momentum, closeness and win-prob all at
	// once, plus a pending injury.
	before, after := 0.50, 0.80
	prev := liveSnap(4, "4:00", 90, 88)
	prev.HomeWinProb = &before
	cur := liveSnap(4, "1:30", 102, 88)
	cur.HomeWinProb = &after

	in := baseInput(cur, histWithBaseline(prev))
	in.Injuries = []InjuryEvent{{GameID: "g1", Team: "Lakers", Player: "L. James", Detail: "knee"}}
	in.Degraded = true

	got := typesOf(Derive(in, users))
	if len(got) != 1 || got[TypeInjuryUpdate] != 1 {
		t.Errorf("degraded derive = %v, want injury_update only", got)
	}
}
