// Command betpulse is the BetPulse operator CLI.
//
// Usage:
//
//	betpulse prefs get --user u_123
//	betpulse prefs set --file prefs.json
//	betpulse prefs set --file prefs.json --validate-only
//	betpulse alerts --user u_123 --all --limit 20
//	betpulse analytics --user u_123 --period 7d
//	betpulse replay --file snapshots.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/betpulse/betpulse-engine/internal/alert"
	"github.com/betpulse/betpulse-engine/internal/config"
	"github.com/betpulse/betpulse-engine/internal/db"
	"github.com/betpulse/betpulse-engine/internal/feedback"
	"github.com/betpulse/betpulse-engine/internal/rules"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "betpulse",
		Short: "BetPulse alert engine operator CLI",
	}

	root.AddCommand(prefsCmd())
	root.AddCommand(alertsCmd())
	root.AddCommand(analyticsCmd())
	root.AddCommand(replayCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// prefs command
// --------------------------------------------------------------------------

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect and update alert preferences",
	}
	cmd.AddCommand(prefsGetCmd())
	cmd.AddCommand(prefsSetCmd())
	return cmd
}

func prefsGetCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a user's preferences (defaults when never saved)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return runDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				pref, err := rules.GetPreference(ctx, pool.Pool, userID)
				if err != nil {
					return err
				}
				return printJSON(pref)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	return cmd
}

func prefsSetCmd() *cobra.Command {
	var (
		file         string
		validateOnly bool
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Validate and save a preference file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var pref rules.AlertPreference
			if err := json.Unmarshal(raw, &pref); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			if pref.UserID == "" {
				return fmt.Errorf("preference file must carry user_id")
			}

			if validateOnly {
				if err := pref.Validate(); err != nil {
					return reportValidation(err)
				}
				logger.Info("Preference file is valid", "user_id", pref.UserID)
				return nil
			}

			return runDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if err := rules.UpsertPreference(ctx, pool.Pool, pref); err != nil {
					return reportValidation(err)
				}
				logger.Info("Preferences saved", "user_id", pref.UserID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Preference JSON file")
	cmd.Flags().BoolVar(&validateOnly, "validate-only", false, "Validate without saving")
	return cmd
}

// reportValidation surfaces the offending field when validation failed.
func reportValidation(err error) error {
	var verr *rules.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("field %s: %s", verr.Field, verr.Reason)
	}
	return err
}

// --------------------------------------------------------------------------
// alerts command
// --------------------------------------------------------------------------

func alertsCmd() *cobra.Command {
	var (
		userID string
		all    bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List a user's alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return runDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				var (
					alerts []alert.Alert
					err    error
				)
				if all {
					alerts, err = alert.ListRecent(ctx, pool.Pool, userID, limit)
				} else {
					alerts, err = alert.ListUnread(ctx, pool.Pool, userID)
				}
				if err != nil {
					return err
				}
				logger.Info("Alerts", "user_id", userID, "count", len(alerts))
				return printJSON(alerts)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().BoolVar(&all, "all", false, "Include read, dismissed, and expired alerts")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max rows with --all")
	return cmd
}

// --------------------------------------------------------------------------
// analytics command
// --------------------------------------------------------------------------

func analyticsCmd() *cobra.Command {
	var (
		userID string
		period string
	)
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print feedback analytics for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return runDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				stats, err := feedback.GetAnalytics(ctx, pool.Pool, userID, period, time.Now())
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringVar(&period, "period", "30d", "Lookback window (24h, 7d, 30d)")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runDB handles config loading, DB connection, and context cancellation.
func runDB(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
