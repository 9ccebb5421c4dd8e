// Package dedup collapses repeated alert intents and assigns final priority.
//
// State is an in-process keyed store guarded by a mutex, keyed by
// (user, game, alert type). It is injected into the engine and lives for the
// process, shared safely across game workers.
package dedup

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/betpulse/betpulse-engine/internal/alert"
	"github.com/betpulse/betpulse-engine/internal/rules"
	"github.com/betpulse/betpulse-engine/internal/signal"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// A repeat within the cool-down passes anyway when its metric grew by
	// at least this factor.
	escalationFactor = 1.5
	// Final priority is upgraded to urgent when the metric reaches this
	// multiple of its threshold.
	urgentUpgradeFactor = 2.0
)

// Suppression reasons, exposed on decisions and counted in metrics.
const (
	ReasonCooldown = "cooldown"
)

// magnitudeTypes get the escalation override and the urgent upgrade. The
// other types obey the plain cool-down only.
var magnitudeTypes = map[string]bool{
	signal.TypeMomentumShift: true,
	signal.TypeWinProbChange: true,
	signal.TypeLineMovement:  true,
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

type key struct {
	userID    string
	gameID    string
	alertType string
}

type entry struct {
	emittedAt time.Time
	metric    float64
}

// Decision is the outcome for one intent: an alert ready to persist, or a
// suppression with its reason.
type Decision struct {
	Accepted  bool
	Reason    string
	Escalated bool
	Alert     alert.Alert
}

// Deduper holds last-emission state per (user, game, alert type).
type Deduper struct {
	mu       sync.Mutex
	cooldown time.Duration
	entries  map[key]entry
}

// New creates a Deduper with the system-level cool-down window.
func New(cooldown time.Duration) *Deduper {
	return &Deduper{
		cooldown: cooldown,
		entries:  make(map[key]entry),
	}
}

// Decide accepts or suppresses an intent. On acceptance the emission is
// recorded and the final alert record is built: priority starts from the
// hint and upgrades to urgent when a magnitude metric reaches twice its
// threshold.
func (d *Deduper) Decide(in rules.Intent) Decision {
	k := key{userID: in.UserID, gameID: in.GameID, alertType: in.AlertType}

	d.mu.Lock()
	defer d.mu.Unlock()

	escalated := false
	if last, ok := d.entries[k]; ok && in.At.Sub(last.emittedAt) < d.cooldown {
		if !magnitudeTypes[in.AlertType] {
			return Decision{Reason: ReasonCooldown}
		}
		if math.Abs(in.Metric) < escalationFactor*math.Abs(last.metric) {
			return Decision{Reason: ReasonCooldown}
		}
		escalated = true
	}

	d.entries[k] = entry{emittedAt: in.At, metric: in.Metric}

	priority := in.PriorityHint
	if magnitudeTypes[in.AlertType] && in.Threshold > 0 &&
		math.Abs(in.Metric) >= urgentUpgradeFactor*in.Threshold {
		priority = rules.PriorityUrgent
	}

	return Decision{
		Accepted:  true,
		Escalated: escalated,
		Alert: alert.Alert{
			AlertID:   uuid.NewString(),
			UserID:    in.UserID,
			GameID:    in.GameID,
			AlertType: in.AlertType,
			Title:     buildTitle(in),
			Message:   buildMessage(in),
			Priority:  priority,
			Payload:   in.Payload,
			CreatedAt: in.At,
		},
	}
}

// PurgeGame drops all state for a game once it stops being tracked.
func (d *Deduper) PurgeGame(gameID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := range d.entries {
		if k.gameID == gameID {
			delete(d.entries, k)
		}
	}
}

// Sweep evicts entries idle longer than maxAge and returns how many went.
// Run periodically; dead keys otherwise accumulate for the process lifetime.
func (d *Deduper) Sweep(now time.Time, maxAge time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	evicted := 0
	for k, e := range d.entries {
		if now.Sub(e.emittedAt) > maxAge {
			delete(d.entries, k)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of live keys.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
