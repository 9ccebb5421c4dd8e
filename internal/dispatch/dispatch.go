// Package dispatch fans persisted alerts out to delivery channels.
//
// The dispatcher sits behind a buffered queue so a slow channel can never
// stall alert generation. Each task is handled by a fixed worker pool; a
// channel failure is logged and retried with backoff, never rolled back
// into the already-persisted alert and never allowed to block another
// channel or user.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/betpulse/betpulse-engine/internal/alert"
	"github.com/betpulse/betpulse-engine/internal/metrics"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultQueueSize = 256
	defaultWorkers   = 4
	defaultAttempts  = 3
	retryBackoffBase = 500 * time.Millisecond
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Channel delivers one alert to one medium for one user.
type Channel interface {
	Name() string
	Send(ctx context.Context, a alert.Alert) error
}

// DeliveryError wraps a channel failure for one alert.
type DeliveryError struct {
	Channel string
	AlertID string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver alert %s via %s: %v", e.AlertID, e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Task is one persisted alert plus the channel names the owner enabled.
type Task struct {
	Alert    alert.Alert
	Channels []string
}

// Config tunes the dispatcher. Zero values fall back to defaults.
type Config struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
}

// Dispatcher owns the delivery queue and worker pool.
type Dispatcher struct {
	queue       chan Task
	channels    map[string]Channel
	maxAttempts int
	workers     int
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Dispatcher over the given channels.
func New(cfg Config, channels []Channel, logger *slog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultAttempts
	}
	byName := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}
	return &Dispatcher{
		queue:       make(chan Task, cfg.QueueSize),
		channels:    byName,
		maxAttempts: cfg.MaxAttempts,
		workers:     cfg.Workers,
		logger:      logger,
	}
}

// Enqueue hands a task to the worker pool without blocking. When the queue
// is full or the dispatcher is shutting down the task is dropped and
// counted; the alert is already persisted, so the in-app feed still has it.
func (d *Dispatcher) Enqueue(t Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		metrics.DispatchDropped.Inc()
		return false
	}
	select {
	case d.queue <- t:
		return true
	default:
		metrics.DispatchDropped.Inc()
		d.logger.Warn("Dispatch queue full, dropping task",
			"alert_id", t.Alert.AlertID, "user_id", t.Alert.UserID)
		return false
	}
}

// Start runs the worker pool until ctx is cancelled, then drains what is
// already queued so no accepted alert is dropped mid-dispatch.
// Intended to be called with `go`.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Dispatch workers started", "workers", d.workers)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	<-ctx.Done()
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	close(d.queue)

	d.wg.Wait()
	d.logger.Info("Dispatch workers stopped")
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for task := range d.queue {
		d.deliver(task)
	}
}

// deliver attempts every enabled channel independently. Sends run against a
// short background context: queue drain must finish even after the engine
// context is cancelled.
func (d *Dispatcher) deliver(task Task) {
	for _, name := range task.Channels {
		ch, ok := d.channels[name]
		if !ok {
			continue
		}
		if err := d.sendWithRetry(ch, task.Alert); err != nil {
			metrics.DispatchFailures.WithLabelValues(name).Inc()
			d.logger.Error("Delivery failed", "error", err,
				"alert_id", task.Alert.AlertID, "channel", name)
			continue
		}
		metrics.DispatchSent.WithLabelValues(name).Inc()
	}
}

func (d *Dispatcher) sendWithRetry(ch Channel, a alert.Alert) error {
	backoff := retryBackoffBase
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := ch.Send(ctx, a)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < d.maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return &DeliveryError{Channel: ch.Name(), AlertID: a.AlertID, Err: lastErr}
}
