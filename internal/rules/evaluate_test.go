package rules

import (
	"testing"
	"time"

	"github.com/betpulse/betpulse-engine/internal/signal"
)

func testSignal(typ string) signal.Signal {
	return signal.Signal{
		Type:      typ,
		GameID:    "g1",
		UserID:    "dave",
		Metric:    12,
		Threshold: 8,
		At:        time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC),
	}
}

func TestEvaluatePassesThrough(t *testing.T) {
	e := NewEvaluator(DefaultQuietHoursBypass)
	sig := testSignal(signal.TypeMomentumShift)

	intent := e.Evaluate(Defaults("dave"), sig, sig.At)
	if intent == nil {
		t.Fatal("enabled preference should produce an intent")
	}
	if intent.UserID != "dave" || intent.GameID != "g1" {
		t.Errorf("intent identity = %s/%s", intent.UserID, intent.GameID)
	}
	if intent.AlertType != signal.TypeMomentumShift {
		t.Errorf("AlertType = %s", intent.AlertType)
	}
	if intent.PriorityHint != PriorityMedium {
		t.Errorf("PriorityHint = %s, want medium", intent.PriorityHint)
	}
	if intent.Metric != 12 || intent.Threshold != 8 {
		t.Errorf("metric/threshold = %v/%v, want 12/8", intent.Metric, intent.Threshold)
	}
	if !intent.At.Equal(sig.At) {
		t.Errorf("At = %v, want %v", intent.At, sig.At)
	}
}

func TestEvaluateMasterSwitch(t *testing.T) {
	e := NewEvaluator(DefaultQuietHoursBypass)
	pref := Defaults("dave")
	pref.AlertsEnabled = false

	// The master switch beats everything, bypass types included.
	for _, typ := range signal.Types {
		sig := testSignal(typ)
		if e.Evaluate(pref, sig, sig.At) != nil {
			t.Errorf("type %s passed with alerts disabled", typ)
		}
	}
}

func TestEvaluatePerTypeFlag(t *testing.T) {
	e := NewEvaluator(DefaultQuietHoursBypass)
	pref := Defaults("dave")
	pref.MomentumShift = false

	sig := testSignal(signal.TypeMomentumShift)
	if e.Evaluate(pref, sig, sig.At) != nil {
		t.Error("disabled type should be suppressed")
	}

	other := testSignal(signal.TypeCloseFinish)
	if e.Evaluate(pref, other, other.At) == nil {
		t.Error("other types should be unaffected")
	}
}

func TestEvaluateQuietHours(t *testing.T) {
	e := NewEvaluator(DefaultQuietHoursBypass)
	pref := Defaults("dave")
	pref.QuietHoursEnabled = true // 22:00 → 08:00 UTC

	quietTime := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	loudTime := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		alertType string
		now       time.Time
		wantPass  bool
	}{
		{"medium suppressed at night", signal.TypeMomentumShift, quietTime, false},
		{"high suppressed at night", signal.TypeWinProbChange, quietTime, false},
		{"critical moment cuts through", signal.TypeCriticalMoment, quietTime, true},
		{"hedge cuts through", signal.TypeHedgeOpportunity, quietTime, true},
		{"daytime unaffected", signal.TypeMomentumShift, loudTime, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := testSignal(tt.alertType)
			got := e.Evaluate(pref, sig, tt.now) != nil
			if got != tt.wantPass {
				t.Errorf("pass = %v, want %v", got, tt.wantPass)
			}
		})
	}
}

func TestEvaluateCustomBypass(t *testing.T) {
	// Policy override: nothing cuts through quiet hours.
	e := NewEvaluator(nil)
	pref := Defaults("dave")
	pref.QuietHoursEnabled = true

	quietTime := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	sig := testSignal(signal.TypeCriticalMoment)
	if e.Evaluate(pref, sig, quietTime) != nil {
		t.Error("empty bypass set should suppress critical_moment at night")
	}
}
