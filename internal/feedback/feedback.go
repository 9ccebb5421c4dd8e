// Package feedback links user reactions back to the alerts that caused them
// and aggregates quality metrics. Feedback is write-once per alert and never
// feeds back into rule evaluation.
package feedback

import (
	"errors"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Feedback actions.
const (
	ActionLedToBet  = "led_to_bet"
	ActionDismissed = "dismissed"
	ActionIgnored   = "ignored"
)

// An alert dismissed faster than this engaged nobody: count it as noise.
const quickDismissSeconds = 10

// ErrInvalidAction rejects unknown feedback actions at the boundary.
var ErrInvalidAction = errors.New("invalid feedback action")

// ValidAction reports whether a is a known feedback action.
func ValidAction(a string) bool {
	return a == ActionLedToBet || a == ActionDismissed || a == ActionIgnored
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Record is one user's reaction to one alert. At most one per alert.
type Record struct {
	AlertID             string    `json:"alert_id"`
	UserID              string    `json:"user_id"`
	Action              string    `json:"action"`
	TimeToActionSeconds int       `json:"time_to_action_seconds"`
	CreatedAt           time.Time `json:"created_at"`
}

// TypeStats is the per-alert-type slice of the aggregate metrics.
type TypeStats struct {
	Alerts          int     `json:"alerts"`
	Feedback        int     `json:"feedback"`
	LedToBet        int     `json:"led_to_bet"`
	QuickDismissals int     `json:"quick_dismissals"`
	UsefulRate      float64 `json:"useful_rate"`
	ConversionRate  float64 `json:"conversion_rate"`
}

// Analytics aggregates alert quality for one user over a period.
//
// Denominators: usefulRate and falsePositiveRate are fractions of alerts
// that received feedback; conversionRate is bets per alert created.
type Analytics struct {
	UserID            string               `json:"user_id"`
	Period            string               `json:"period"`
	Alerts            int                  `json:"alerts"`
	Feedback          int                  `json:"feedback"`
	UsefulRate        float64              `json:"useful_rate"`
	FalsePositiveRate float64              `json:"false_positive_rate"`
	ConversionRate    float64              `json:"conversion_rate"`
	AvgTimeToAction   float64              `json:"avg_time_to_action_seconds"`
	ByAlertType       map[string]TypeStats `json:"by_alert_type"`
}
