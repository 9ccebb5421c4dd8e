// Package rules applies a user's alert preferences to derived signals.
//
// A preference row is loaded with defaults resolved up front, validated at
// write time, and then consulted per signal: master switch, per-type flag,
// quiet hours. Surviving signals become alert intents carrying a priority
// hint for the dedup stage.
package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/betpulse/betpulse-engine/internal/signal"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Priority tiers, lowest to highest.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// priorityHints maps alert type to its base priority.
var priorityHints = map[string]string{
	signal.TypeGameStarting:     PriorityLow,
	signal.TypeMomentumShift:    PriorityMedium,
	signal.TypeLineMovement:     PriorityMedium,
	signal.TypeInjuryUpdate:     PriorityMedium,
	signal.TypeCloseFinish:      PriorityHigh,
	signal.TypeWinProbChange:    PriorityHigh,
	signal.TypeCriticalMoment:   PriorityUrgent,
	signal.TypeHedgeOpportunity: PriorityUrgent,
}

// HintFor returns the base priority for an alert type.
func HintFor(alertType string) string {
	if p, ok := priorityHints[alertType]; ok {
		return p
	}
	return PriorityMedium
}

// DefaultQuietHoursBypass lists the types that cut through quiet hours when
// no policy override is configured: time-sensitive money signals.
var DefaultQuietHoursBypass = []string{signal.TypeCriticalMoment, signal.TypeHedgeOpportunity}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// AlertPreference is one user's alerting configuration, fully resolved.
// Quiet hour bounds are "HH:MM" wall-clock strings in the user's timezone.
type AlertPreference struct {
	UserID        string `json:"user_id"`
	AlertsEnabled bool   `json:"alerts_enabled"`

	GameStarting     bool `json:"game_starting"`
	MomentumShift    bool `json:"momentum_shift"`
	CloseFinish      bool `json:"close_finish"`
	CriticalMoment   bool `json:"critical_moment"`
	WinProbChange    bool `json:"win_prob_change"`
	HedgeOpportunity bool `json:"hedge_opportunity"`
	LineMovement     bool `json:"line_movement"`
	InjuryUpdate     bool `json:"injury_update"`

	WinProbChangeThreshold  float64 `json:"win_prob_change_threshold"`
	MomentumPointsThreshold int     `json:"momentum_points_threshold"`
	HedgeProfitThreshold    float64 `json:"hedge_profit_threshold"`
	CloseFinishMinutes      int     `json:"close_finish_minutes"`

	ChannelApp   bool `json:"channel_app"`
	ChannelEmail bool `json:"channel_email"`
	ChannelSMS   bool `json:"channel_sms"`

	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start"`
	QuietHoursEnd     string `json:"quiet_hours_end"`
	Timezone          string `json:"timezone"`
}

// Defaults returns the preference row a user has before saving anything.
func Defaults(userID string) AlertPreference {
	return AlertPreference{
		UserID:        userID,
		AlertsEnabled: true,

		GameStarting:     true,
		MomentumShift:    true,
		CloseFinish:      true,
		CriticalMoment:   true,
		WinProbChange:    true,
		HedgeOpportunity: true,
		LineMovement:     true,
		InjuryUpdate:     true,

		WinProbChangeThreshold:  0.10,
		MomentumPointsThreshold: 8,
		HedgeProfitThreshold:    0.05,
		CloseFinishMinutes:      5,

		ChannelApp: true,

		QuietHoursStart: "22:00",
		QuietHoursEnd:   "08:00",
		Timezone:        "UTC",
	}
}

// TypeEnabled reports whether alerts of the given type are switched on.
func (p AlertPreference) TypeEnabled(alertType string) bool {
	switch alertType {
	case signal.TypeGameStarting:
		return p.GameStarting
	case signal.TypeMomentumShift:
		return p.MomentumShift
	case signal.TypeCloseFinish:
		return p.CloseFinish
	case signal.TypeCriticalMoment:
		return p.CriticalMoment
	case signal.TypeWinProbChange:
		return p.WinProbChange
	case signal.TypeHedgeOpportunity:
		return p.HedgeOpportunity
	case signal.TypeLineMovement:
		return p.LineMovement
	case signal.TypeInjuryUpdate:
		return p.InjuryUpdate
	default:
		return false
	}
}

// Thresholds projects the numeric knobs into the deriver's input shape.
func (p AlertPreference) Thresholds() signal.Thresholds {
	return signal.Thresholds{
		MomentumPoints:  p.MomentumPointsThreshold,
		WinProbDelta:    p.WinProbChangeThreshold,
		HedgeProfitRate: p.HedgeProfitThreshold,
		CloseFinishMins: p.CloseFinishMinutes,
	}
}

// Channels returns the enabled delivery channel names.
func (p AlertPreference) Channels() []string {
	var cs []string
	if p.ChannelApp {
		cs = append(cs, "app")
	}
	if p.ChannelEmail {
		cs = append(cs, "email")
	}
	if p.ChannelSMS {
		cs = append(cs, "sms")
	}
	return cs
}

// --------------------------------------------------------------------------
// Validation
// --------------------------------------------------------------------------

// ValidationError reports one malformed preference field. Malformed rows are
// rejected at write time so evaluation never sees them.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid preference %s: %s", e.Field, e.Reason)
}

// Validate checks every numeric and clock field. Returns the first problem
// found as a *ValidationError.
func (p AlertPreference) Validate() error {
	if p.WinProbChangeThreshold <= 0 || p.WinProbChangeThreshold > 1 {
		return &ValidationError{Field: "win_prob_change_threshold", Reason: "must be in (0,1]"}
	}
	if p.MomentumPointsThreshold <= 0 {
		return &ValidationError{Field: "momentum_points_threshold", Reason: "must be positive"}
	}
	if p.HedgeProfitThreshold <= 0 || p.HedgeProfitThreshold > 1 {
		return &ValidationError{Field: "hedge_profit_threshold", Reason: "must be in (0,1]"}
	}
	if p.CloseFinishMinutes <= 0 {
		return &ValidationError{Field: "close_finish_minutes", Reason: "must be positive"}
	}
	if _, err := parseClockMinute(p.QuietHoursStart); err != nil {
		return &ValidationError{Field: "quiet_hours_start", Reason: err.Error()}
	}
	if _, err := parseClockMinute(p.QuietHoursEnd); err != nil {
		return &ValidationError{Field: "quiet_hours_end", Reason: err.Error()}
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return &ValidationError{Field: "timezone", Reason: "unknown timezone"}
	}
	return nil
}

// parseClockMinute parses "HH:MM" into minutes from midnight.
func parseClockMinute(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%q has a bad hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%q has a bad minute", s)
	}
	return h*60 + m, nil
}

// InQuietHours reports whether now falls inside the user's quiet window.
// The window is [start, end) in the user's timezone and may wrap midnight.
// An equal start and end is an empty window.
func (p AlertPreference) InQuietHours(now time.Time) bool {
	if !p.QuietHoursEnabled {
		return false
	}
	start, err := parseClockMinute(p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := parseClockMinute(p.QuietHoursEnd)
	if err != nil {
		return false
	}
	if start == end {
		return false
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc = time.UTC
	}
	t := now.In(loc)
	cur := t.Hour()*60 + t.Minute()

	if start < end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end // wraps midnight
}
