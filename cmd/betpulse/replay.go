package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/betpulse/betpulse-engine/internal/dedup"
	"github.com/betpulse/betpulse-engine/internal/game"
	"github.com/betpulse/betpulse-engine/internal/market"
	"github.com/betpulse/betpulse-engine/internal/rules"
	"github.com/betpulse/betpulse-engine/internal/signal"
)

// --------------------------------------------------------------------------
// replay command: run recorded snapshots through the signal pipeline
// --------------------------------------------------------------------------

// replayFile is the recorded scenario shape. Snapshots are replayed in file
// order; injuries are folded into the snapshot they are stamped before.
type replayFile struct {
	Preferences []rules.AlertPreference `json:"preferences"`
	Bets        []market.OpenBet        `json:"bets"`
	Quotes      map[string]market.Quote `json:"quotes"`
	Injuries    []signal.InjuryEvent    `json:"injuries"`
	Snapshots   []replaySnapshot        `json:"snapshots"`
}

type replaySnapshot struct {
	GameID      string    `json:"game_id"`
	League      string    `json:"league"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	HomeScore   int       `json:"home_score"`
	AwayScore   int       `json:"away_score"`
	Period      int       `json:"period"`
	Clock       string    `json:"clock"`
	Status      string    `json:"status"`
	StartTime   time.Time `json:"start_time"`
	HomeWinProb *float64  `json:"home_win_prob"`
	ObservedAt  time.Time `json:"observed_at"`
}

func (r replaySnapshot) snapshot() game.Snapshot {
	return game.Snapshot{
		GameID:      r.GameID,
		League:      r.League,
		HomeTeam:    r.HomeTeam,
		AwayTeam:    r.AwayTeam,
		HomeScore:   r.HomeScore,
		AwayScore:   r.AwayScore,
		Period:      r.Period,
		Clock:       r.Clock,
		Status:      r.Status,
		StartTime:   r.StartTime,
		HomeWinProb: r.HomeWinProb,
		ObservedAt:  r.ObservedAt,
	}
}

func replayCmd() *cobra.Command {
	var (
		file       string
		cooldown   time.Duration
		lineThresh float64
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded snapshot file through the signal pipeline",
		Long: `Replay runs a JSON scenario file through derivation, rule evaluation, and
dedup exactly as the engine does live, printing every accepted alert. No
database or feed connection is involved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var scenario replayFile
			if err := json.Unmarshal(raw, &scenario); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			if len(scenario.Snapshots) == 0 {
				return fmt.Errorf("scenario has no snapshots")
			}
			return runReplay(scenario, cooldown, lineThresh)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Scenario JSON file")
	cmd.Flags().DurationVar(&cooldown, "cooldown", 5*time.Minute, "Dedup cool-down window")
	cmd.Flags().Float64Var(&lineThresh, "line-threshold", 1.0, "Line movement threshold")
	return cmd
}

func runReplay(scenario replayFile, cooldown time.Duration, lineThresh float64) error {
	prefs := make(map[string]rules.AlertPreference, len(scenario.Preferences))
	thresholds := make(map[string]signal.Thresholds, len(scenario.Preferences))
	for _, p := range scenario.Preferences {
		prefs[p.UserID] = p
		thresholds[p.UserID] = p.Thresholds()
	}
	// Bettors without a preference entry replay against the defaults, same
	// as a live preference-store miss.
	for _, b := range scenario.Bets {
		if _, ok := prefs[b.UserID]; !ok {
			p := rules.Defaults(b.UserID)
			prefs[b.UserID] = p
			thresholds[b.UserID] = p.Thresholds()
		}
	}

	profile := game.ProfileFor(scenario.Snapshots[0].League)
	hist := game.NewHistory(profile, 15*time.Minute)
	deduper := dedup.New(cooldown)
	evaluator := rules.NewEvaluator(rules.DefaultQuietHoursBypass)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	accepted, suppressed := 0, 0
	for i, rs := range scenario.Snapshots {
		snap := rs.snapshot()
		in := signal.Input{
			Cur:               snap,
			History:           hist,
			Profile:           profile,
			Now:               snap.ObservedAt,
			Bets:              scenario.Bets,
			Quotes:            scenario.Quotes,
			LineMoveThreshold: lineThresh,
		}
		if i == 0 {
			in.Injuries = scenario.Injuries
		}

		for _, sig := range signal.Derive(in, thresholds) {
			if sig.Type == signal.TypeGameStarting {
				hist.MarkStartAlerted()
			}
			intent := evaluator.Evaluate(prefs[sig.UserID], sig, snap.ObservedAt)
			if intent == nil {
				suppressed++
				continue
			}
			decision := deduper.Decide(*intent)
			if !decision.Accepted {
				suppressed++
				continue
			}
			accepted++
			if err := enc.Encode(decision.Alert); err != nil {
				return err
			}
		}
		hist.Advance(snap)
	}

	logger.Info("Replay finished",
		"snapshots", len(scenario.Snapshots),
		"accepted", accepted,
		"suppressed", suppressed)
	return nil
}
