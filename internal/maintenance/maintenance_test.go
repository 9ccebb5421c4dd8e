package maintenance

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.CleanupInterval != time.Hour {
		t.Errorf("CleanupInterval = %v, want 1h", cfg.CleanupInterval)
	}
	if cfg.ExpireInterval != 15*time.Minute {
		t.Errorf("ExpireInterval = %v, want 15m", cfg.ExpireInterval)
	}
	if cfg.AlertRetention != 30*24*time.Hour {
		t.Errorf("AlertRetention = %v, want 30d", cfg.AlertRetention)
	}
	if cfg.ExpireAfter != 12*time.Hour {
		t.Errorf("ExpireAfter = %v, want 12h", cfg.ExpireAfter)
	}
}

func TestRunLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time)
	done := make(chan struct{})

	var calls int
	go func() {
		runLoop(ctx, ticks, func() { calls++ })
		close(done)
	}()

	ticks <- time.Now()
	ticks <- time.Now()
	cancel()
	<-done

	if calls != 2 {
		t.Errorf("task ran %d times, want 2", calls)
	}
}
