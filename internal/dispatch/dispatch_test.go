package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/betpulse/betpulse-engine/internal/alert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeChannel struct {
	name string

	mu    sync.Mutex
	calls int
	fail  int // fail this many sends before succeeding
	sent  []string
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(ctx context.Context, a alert.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.fail {
		return errors.New("provider down")
	}
	c.sent = append(c.sent, a.AlertID)
	return nil
}

func (c *fakeChannel) sentIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func task(id string, channels ...string) Task {
	return Task{
		Alert:    alert.Alert{AlertID: id, UserID: "dave", Title: "Momentum shift"},
		Channels: channels,
	}
}

func TestDispatcherDrainsQueueOnShutdown(t *testing.T) {
	app := &fakeChannel{name: "app"}
	d := New(Config{QueueSize: 8, Workers: 2, MaxAttempts: 1}, []Channel{app}, testLogger())

	for _, id := range []string{"a1", "a2", "a3"} {
		if !d.Enqueue(task(id, "app")) {
			t.Fatalf("enqueue %s rejected", id)
		}
	}

	// Already-cancelled context: Start must still flush what was accepted.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	if got := app.sentIDs(); len(got) != 3 {
		t.Errorf("delivered %v, want all three alerts", got)
	}
}

func TestDispatcherMultipleChannels(t *testing.T) {
	app := &fakeChannel{name: "app"}
	email := &fakeChannel{name: "email"}
	d := New(Config{QueueSize: 8, Workers: 1, MaxAttempts: 1}, []Channel{app, email}, testLogger())

	d.Enqueue(task("a1", "app", "email"))
	d.Enqueue(task("a2", "app"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	if got := app.sentIDs(); len(got) != 2 {
		t.Errorf("app got %v, want both alerts", got)
	}
	if got := email.sentIDs(); len(got) != 1 || got[0] != "a1" {
		t.Errorf("email got %v, want [a1]", got)
	}
}

func TestDispatcherSkipsUnknownChannel(t *testing.T) {
	app := &fakeChannel{name: "app"}
	d := New(Config{QueueSize: 8, Workers: 1, MaxAttempts: 1}, []Channel{app}, testLogger())

	d.Enqueue(task("a1", "sms")) // nobody registered sms

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	if got := app.sentIDs(); len(got) != 0 {
		t.Errorf("app got %v, want nothing", got)
	}
}

func TestDispatcherRetriesFailedSend(t *testing.T) {
	app := &fakeChannel{name: "app", fail: 1}
	d := New(Config{QueueSize: 8, Workers: 1, MaxAttempts: 3}, []Channel{app}, testLogger())

	d.Enqueue(task("a1", "app"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	if got := app.sentIDs(); len(got) != 1 {
		t.Fatalf("delivered %v, want [a1] after retry", got)
	}
	if app.calls != 2 {
		t.Errorf("send attempts = %d, want 2", app.calls)
	}
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	app := &fakeChannel{name: "app", fail: 100}
	d := New(Config{QueueSize: 8, Workers: 1, MaxAttempts: 2}, []Channel{app}, testLogger())

	d.Enqueue(task("a1", "app"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	if got := app.sentIDs(); len(got) != 0 {
		t.Errorf("delivered %v, want nothing", got)
	}
	if app.calls != 2 {
		t.Errorf("send attempts = %d, want 2", app.calls)
	}
}

func TestEnqueueRejectsWhenFull(t *testing.T) {
	d := New(Config{QueueSize: 1, Workers: 1, MaxAttempts: 1}, nil, testLogger())

	if !d.Enqueue(task("a1", "app")) {
		t.Fatal("first enqueue should fit")
	}
	if d.Enqueue(task("a2", "app")) {
		t.Error("second enqueue should be dropped, queue is full")
	}
}

func TestEnqueueRejectsAfterShutdown(t *testing.T) {
	d := New(Config{QueueSize: 8, Workers: 1, MaxAttempts: 1}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	if d.Enqueue(task("a1", "app")) {
		t.Error("enqueue after shutdown should be rejected")
	}
}

func TestDeliveryError(t *testing.T) {
	cause := errors.New("smtp timeout")
	err := &DeliveryError{Channel: "email", AlertID: "a1", Err: cause}

	if !strings.Contains(err.Error(), "email") || !strings.Contains(err.Error(), "a1") {
		t.Errorf("Error() = %q, want channel and alert id named", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("DeliveryError should unwrap to its cause")
	}
}

func TestStubChannelNilSafety(t *testing.T) {
	var ch *StubChannel
	if ch.Name() != "" {
		t.Error("nil stub should report an empty name")
	}
	if err := ch.Send(context.Background(), alert.Alert{}); err != nil {
		t.Errorf("nil stub Send = %v, want nil", err)
	}
	if NewStubChannel("", testLogger()) != nil {
		t.Error("empty name should disable the channel")
	}
}

func TestAppChannelPushesToHub(t *testing.T) {
	var pushed []string
	ch := NewAppChannel(pushFunc(func(userID string, a alert.Alert) {
		pushed = append(pushed, userID+"/"+a.AlertID)
	}))

	a := alert.Alert{AlertID: "a1", UserID: "dave"}
	if err := ch.Send(context.Background(), a); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(pushed) != 1 || pushed[0] != "dave/a1" {
		t.Errorf("pushed = %v", pushed)
	}

	// No hub wired: persisted alerts still count as delivered.
	if err := NewAppChannel(nil).Send(context.Background(), a); err != nil {
		t.Errorf("hubless Send = %v, want nil", err)
	}
}

type pushFunc func(userID string, a alert.Alert)

func (f pushFunc) Push(userID string, a alert.Alert) { f(userID, a) }

func TestDispatcherRetryBackoffIsBounded(t *testing.T) {
	app := &fakeChannel{name: "app", fail: 1}
	d := New(Config{QueueSize: 1, Workers: 1, MaxAttempts: 2}, []Channel{app}, testLogger())

	d.Enqueue(task("a1", "app"))

	start := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	// One retry means exactly one base backoff sleep.
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("drain took %v, backoff is runaway", elapsed)
	}
	if got := app.sentIDs(); len(got) != 1 {
		t.Errorf("delivered %v, want [a1]", got)
	}
}
