package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GetPreference loads a user's preference row. Users who never saved one get
// the defaults, so callers never see a partially-defined preference.
func GetPreference(ctx context.Context, pool *pgxpool.Pool, userID string) (AlertPreference, error) {
	var p AlertPreference
	err := pool.QueryRow(ctx, "get_alert_preference", userID).Scan(
		&p.UserID, &p.AlertsEnabled,
		&p.GameStarting, &p.MomentumShift, &p.CloseFinish, &p.CriticalMoment,
		&p.WinProbChange, &p.HedgeOpportunity, &p.LineMovement, &p.InjuryUpdate,
		&p.WinProbChangeThreshold, &p.MomentumPointsThreshold,
		&p.HedgeProfitThreshold, &p.CloseFinishMinutes,
		&p.ChannelApp, &p.ChannelEmail, &p.ChannelSMS,
		&p.QuietHoursEnabled, &p.QuietHoursStart, &p.QuietHoursEnd, &p.Timezone,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Defaults(userID), nil
	}
	if err != nil {
		return AlertPreference{}, fmt.Errorf("get preference: %w", err)
	}
	return p, nil
}

// UpsertPreference validates and saves a preference row.
func UpsertPreference(ctx context.Context, pool *pgxpool.Pool, p AlertPreference) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO alert_preferences (
			user_id, alerts_enabled,
			game_starting, momentum_shift, close_finish, critical_moment,
			win_prob_change, hedge_opportunity, line_movement, injury_update,
			win_prob_change_threshold, momentum_points_threshold,
			hedge_profit_threshold, close_finish_minutes,
			channel_app, channel_email, channel_sms,
			quiet_hours_enabled, quiet_hours_start, quiet_hours_end, timezone,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			alerts_enabled = EXCLUDED.alerts_enabled,
			game_starting = EXCLUDED.game_starting,
			momentum_shift = EXCLUDED.momentum_shift,
			close_finish = EXCLUDED.close_finish,
			critical_moment = EXCLUDED.critical_moment,
			win_prob_change = EXCLUDED.win_prob_change,
			hedge_opportunity = EXCLUDED.hedge_opportunity,
			line_movement = EXCLUDED.line_movement,
			injury_update = EXCLUDED.injury_update,
			win_prob_change_threshold = EXCLUDED.win_prob_change_threshold,
			momentum_points_threshold = EXCLUDED.momentum_points_threshold,
			hedge_profit_threshold = EXCLUDED.hedge_profit_threshold,
			close_finish_minutes = EXCLUDED.close_finish_minutes,
			channel_app = EXCLUDED.channel_app,
			channel_email = EXCLUDED.channel_email,
			channel_sms = EXCLUDED.channel_sms,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			timezone = EXCLUDED.timezone,
			updated_at = NOW()`,
		p.UserID, p.AlertsEnabled,
		p.GameStarting, p.MomentumShift, p.CloseFinish, p.CriticalMoment,
		p.WinProbChange, p.HedgeOpportunity, p.LineMovement, p.InjuryUpdate,
		p.WinProbChangeThreshold, p.MomentumPointsThreshold,
		p.HedgeProfitThreshold, p.CloseFinishMinutes,
		p.ChannelApp, p.ChannelEmail, p.ChannelSMS,
		p.QuietHoursEnabled, p.QuietHoursStart, p.QuietHoursEnd, p.Timezone,
	)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}
