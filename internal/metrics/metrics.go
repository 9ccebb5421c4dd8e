// Package metrics holds the engine's Prometheus collectors and the
// standalone /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betpulse_snapshots_processed_total",
		Help: "Game snapshots run through the signal pipeline",
	})

	SignalsDerived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betpulse_signals_derived_total",
		Help: "Candidate signals by alert type",
	}, []string{"type"})

	IntentsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betpulse_intents_suppressed_total",
		Help: "Alert intents dropped before persistence, by reason",
	}, []string{"reason"})

	AlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betpulse_alerts_created_total",
		Help: "Alerts persisted, by type and final priority",
	}, []string{"type", "priority"})

	AlertWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betpulse_alert_write_failures_total",
		Help: "Alert persistence failures after retry",
	})

	DispatchSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betpulse_dispatch_sent_total",
		Help: "Successful channel deliveries",
	}, []string{"channel"})

	DispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betpulse_dispatch_failures_total",
		Help: "Channel deliveries that exhausted retries",
	}, []string{"channel"})

	DispatchDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betpulse_dispatch_dropped_total",
		Help: "Dispatch tasks dropped because the queue was full",
	})

	DegradedGames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betpulse_degraded_games",
		Help: "Tracked games currently marked degraded for staleness",
	})

	TrackedGames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betpulse_tracked_games",
		Help: "Games with an active worker",
	})

	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "betpulse_ws_clients",
		Help: "Connected websocket clients",
	})
)
