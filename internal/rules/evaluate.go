package rules

import (
	"time"

	"github.com/betpulse/betpulse-engine/internal/signal"
)

// Intent is a signal that survived rule evaluation, ready for dedup.
// Ephemeral: never persisted.
type Intent struct {
	UserID       string
	GameID       string
	AlertType    string
	PriorityHint string
	Team         string
	Metric       float64
	Threshold    float64
	Payload      signal.Payload
	At           time.Time
}

// Evaluator turns signals into intents under a user's preferences. The
// bypass set names alert types that quiet hours never suppress; it is a
// deployment policy, not a per-user knob.
type Evaluator struct {
	bypass map[string]bool
}

// NewEvaluator builds an Evaluator with the given quiet-hours bypass types.
// Pass DefaultQuietHoursBypass unless policy says otherwise.
func NewEvaluator(bypass []string) *Evaluator {
	m := make(map[string]bool, len(bypass))
	for _, t := range bypass {
		m[t] = true
	}
	return &Evaluator{bypass: m}
}

// Evaluate applies the preference checks in order: master switch, per-type
// flag, quiet hours. Returns nil when the signal is suppressed; suppression
// is the normal case, not an error.
func (e *Evaluator) Evaluate(pref AlertPreference, sig signal.Signal, now time.Time) *Intent {
	if !pref.AlertsEnabled {
		return nil
	}
	if !pref.TypeEnabled(sig.Type) {
		return nil
	}
	if pref.InQuietHours(now) && !e.bypass[sig.Type] {
		return nil
	}
	return &Intent{
		UserID:       sig.UserID,
		GameID:       sig.GameID,
		AlertType:    sig.Type,
		PriorityHint: HintFor(sig.Type),
		Team:         sig.Team,
		Metric:       sig.Metric,
		Threshold:    sig.Threshold,
		Payload:      sig.Payload,
		At:           sig.At,
	}
}
