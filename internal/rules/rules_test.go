package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/betpulse/betpulse-engine/internal/signal"
)

func TestDefaults(t *testing.T) {
	p := Defaults("dave")

	if p.UserID != "dave" || !p.AlertsEnabled {
		t.Fatalf("Defaults() = %+v", p)
	}
	for _, typ := range signal.Types {
		if !p.TypeEnabled(typ) {
			t.Errorf("default preference should enable %s", typ)
		}
	}
	if p.MomentumPointsThreshold != 8 || p.CloseFinishMinutes != 5 {
		t.Errorf("default thresholds = %d points, %d minutes; want 8, 5",
			p.MomentumPointsThreshold, p.CloseFinishMinutes)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestTypeEnabled(t *testing.T) {
	p := Defaults("dave")
	p.MomentumShift = false
	p.HedgeOpportunity = false

	if p.TypeEnabled(signal.TypeMomentumShift) {
		t.Error("momentum_shift should be off")
	}
	if p.TypeEnabled(signal.TypeHedgeOpportunity) {
		t.Error("hedge_opportunity should be off")
	}
	if !p.TypeEnabled(signal.TypeCloseFinish) {
		t.Error("close_finish should stay on")
	}
	if p.TypeEnabled("made_up_type") {
		t.Error("unknown types are never enabled")
	}
}

func TestChannels(t *testing.T) {
	p := Defaults("dave")
	got := p.Channels()
	if len(got) != 1 || got[0] != "app" {
		t.Errorf("default channels = %v, want [app]", got)
	}

	p.ChannelEmail = true
	p.ChannelSMS = true
	got = p.Channels()
	if len(got) != 3 {
		t.Errorf("channels = %v, want app, email, sms", got)
	}

	p.ChannelApp, p.ChannelEmail, p.ChannelSMS = false, false, false
	if got := p.Channels(); len(got) != 0 {
		t.Errorf("channels = %v, want none", got)
	}
}

func TestThresholdsProjection(t *testing.T) {
	p := Defaults("dave")
	p.MomentumPointsThreshold = 12
	p.WinProbChangeThreshold = 0.2

	th := p.Thresholds()
	if th.MomentumPoints != 12 || th.WinProbDelta != 0.2 ||
		th.HedgeProfitRate != 0.05 || th.CloseFinishMins != 5 {
		t.Errorf("Thresholds() = %+v", th)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*AlertPreference)
		wantField string
	}{
		{"win prob zero", func(p *AlertPreference) { p.WinProbChangeThreshold = 0 }, "win_prob_change_threshold"},
		{"win prob above one", func(p *AlertPreference) { p.WinProbChangeThreshold = 1.5 }, "win_prob_change_threshold"},
		{"momentum zero", func(p *AlertPreference) { p.MomentumPointsThreshold = 0 }, "momentum_points_threshold"},
		{"hedge negative", func(p *AlertPreference) { p.HedgeProfitThreshold = -0.1 }, "hedge_profit_threshold"},
		{"close finish zero", func(p *AlertPreference) { p.CloseFinishMinutes = 0 }, "close_finish_minutes"},
		{"bad quiet start", func(p *AlertPreference) { p.QuietHoursStart = "25:00" }, "quiet_hours_start"},
		{"bad quiet end", func(p *AlertPreference) { p.QuietHoursEnd = "8pm" }, "quiet_hours_end"},
		{"bad timezone", func(p *AlertPreference) { p.Timezone = "Not/AZone" }, "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Defaults("dave")
			tt.mutate(&p)

			err := p.Validate()
			if err == nil {
				t.Fatal("expected a validation error, got nil")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestInQuietHours(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2026, 3, 14, hour, min, 0, 0, time.UTC)
	}

	tests := []struct {
		name       string
		start, end string
		now        time.Time
		want       bool
	}{
		// 22:00 → 08:00 wraps midnight.
		{"late evening", "22:00", "08:00", at(23, 0), true},
		{"after midnight", "22:00", "08:00", at(2, 30), true},
		{"last quiet minute", "22:00", "08:00", at(7, 59), true},
		{"end is exclusive", "22:00", "08:00", at(8, 0), false},
		{"start is inclusive", "22:00", "08:00", at(22, 0), true},
		{"just before start", "22:00", "08:00", at(21, 59), false},
		{"midday", "22:00", "08:00", at(12, 0), false},
		// Same-day window.
		{"inside same-day window", "09:00", "17:00", at(13, 0), true},
		{"same-day end exclusive", "09:00", "17:00", at(17, 0), false},
		{"before same-day window", "09:00", "17:00", at(8, 59), false},
		// Degenerate window.
		{"equal bounds never quiet", "10:00", "10:00", at(10, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Defaults("dave")
			p.QuietHoursEnabled = true
			p.QuietHoursStart = tt.start
			p.QuietHoursEnd = tt.end

			if got := p.InQuietHours(tt.now); got != tt.want {
				t.Errorf("InQuietHours(%s) = %v, want %v",
					tt.now.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestInQuietHoursDisabled(t *testing.T) {
	p := Defaults("dave")
	p.QuietHoursEnabled = false
	p.QuietHoursStart = "00:00"
	p.QuietHoursEnd = "23:59"

	if p.InQuietHours(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)) {
		t.Error("disabled quiet hours should never suppress")
	}
}

func TestHintFor(t *testing.T) {
	tests := []struct {
		alertType string
		want      string
	}{
		{signal.TypeGameStarting, PriorityLow},
		{signal.TypeMomentumShift, PriorityMedium},
		{signal.TypeLineMovement, PriorityMedium},
		{signal.TypeInjuryUpdate, PriorityMedium},
		{signal.TypeCloseFinish, PriorityHigh},
		{signal.TypeWinProbChange, PriorityHigh},
		{signal.TypeCriticalMoment, PriorityUrgent},
		{signal.TypeHedgeOpportunity, PriorityUrgent},
		{"made_up_type", PriorityMedium},
	}

	for _, tt := range tests {
		if got := HintFor(tt.alertType); got != tt.want {
			t.Errorf("HintFor(%s) = %s, want %s", tt.alertType, got, tt.want)
		}
	}
}
