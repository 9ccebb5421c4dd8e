package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/betpulse/betpulse-engine/internal/market"
	"github.com/betpulse/betpulse-engine/internal/signal"
)

// LineTick is a push-style market update from the odds pipeline.
type LineTick struct {
	GameID    string             `json:"game_id"`
	Ticker    string             `json:"ticker"`
	Odds      map[string]float64 `json:"odds"`
	Line      float64            `json:"line"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Quote converts the tick into the market quote shape the deriver consumes.
func (t LineTick) Quote() market.Quote {
	return market.Quote{
		Ticker:    t.Ticker,
		Odds:      t.Odds,
		Line:      t.Line,
		UpdatedAt: t.UpdatedAt,
	}
}

// Consumer reads injury events and line ticks from Kafka and hands them to
// the engine through callbacks. Undecodable messages are logged and
// skipped, never retried.
type Consumer struct {
	injuries *kafka.Reader
	ticks    *kafka.Reader
	logger   *slog.Logger

	OnInjury   func(signal.InjuryEvent)
	OnLineTick func(LineTick)
}

// NewConsumer builds readers for the two engine topics. Either topic may be
// empty to disable it.
func NewConsumer(brokers []string, groupID, injuryTopic, tickTopic string, logger *slog.Logger) *Consumer {
	c := &Consumer{logger: logger}
	if injuryTopic != "" {
		c.injuries = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    injuryTopic,
			MinBytes: 1,
			MaxBytes: 1 << 20,
		})
	}
	if tickTopic != "" {
		c.ticks = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    tickTopic,
			MinBytes: 1,
			MaxBytes: 1 << 20,
		})
	}
	return c
}

// Run consumes both topics until ctx is cancelled, then closes the readers.
// Intended to be called with `go`.
func (c *Consumer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	if c.injuries != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.consume(ctx, c.injuries, c.handleInjury)
		}()
	}
	if c.ticks != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.consume(ctx, c.ticks, c.handleTick)
		}()
	}
	wg.Wait()
}

func (c *Consumer) consume(ctx context.Context, r *kafka.Reader, handle func([]byte)) {
	defer r.Close()
	c.logger.Info("Kafka consumer started", "topic", r.Config().Topic)
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Kafka consumer stopped", "topic", r.Config().Topic)
				return
			}
			c.logger.Warn("Kafka read failed", "topic", r.Config().Topic, "error", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		handle(m.Value)
	}
}

func (c *Consumer) handleInjury(value []byte) {
	var ev signal.InjuryEvent
	if err := json.Unmarshal(value, &ev); err != nil || ev.GameID == "" {
		c.logger.Warn("Invalid injury message", "error", err)
		return
	}
	if ev.ReportedAt.IsZero() {
		ev.ReportedAt = time.Now()
	}
	if c.OnInjury != nil {
		c.OnInjury(ev)
	}
}

func (c *Consumer) handleTick(value []byte) {
	var tick LineTick
	if err := json.Unmarshal(value, &tick); err != nil || tick.GameID == "" || tick.Ticker == "" {
		c.logger.Warn("Invalid line tick message", "error", err)
		return
	}
	if c.OnLineTick != nil {
		c.OnLineTick(tick)
	}
}
