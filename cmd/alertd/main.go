// Command alertd is the BetPulse alert engine daemon.
//
// It tracks every game users hold open bets on, derives alert signals from
// live snapshots, and serves the alert inbox API.
//
// Usage:
//
//	alertd
//	API_PORT=8080 alertd

// @title BetPulse Alert Engine API
// @version 1.0.0
// @description Live betting alert API serving the alert inbox, preference management, feedback analytics, and a realtime websocket stream.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name BetPulse
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/betpulse/betpulse-engine/internal/api"
	"github.com/betpulse/betpulse-engine/internal/cache"
	"github.com/betpulse/betpulse-engine/internal/config"
	"github.com/betpulse/betpulse-engine/internal/db"
	"github.com/betpulse/betpulse-engine/internal/dedup"
	"github.com/betpulse/betpulse-engine/internal/dispatch"
	"github.com/betpulse/betpulse-engine/internal/engine"
	"github.com/betpulse/betpulse-engine/internal/feed"
	"github.com/betpulse/betpulse-engine/internal/listener"
	"github.com/betpulse/betpulse-engine/internal/maintenance"
	"github.com/betpulse/betpulse-engine/internal/metrics"
	"github.com/betpulse/betpulse-engine/internal/push"
	"github.com/betpulse/betpulse-engine/internal/rules"

	_ "github.com/betpulse/betpulse-engine/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Connect to Redis (odds quotes)
	rdb, err := feed.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	logger.Info("Redis connected", "addr", cfg.RedisAddr)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Realtime push hub
	hub := push.NewHub(logger)
	go hub.Run(ctx)

	// Dispatcher over the enabled delivery channels. Email and SMS are
	// logging stand-ins until their providers are wired.
	dispatcher := dispatch.New(dispatch.Config{
		QueueSize:   cfg.DispatchQueueSize,
		Workers:     cfg.DispatchWorkers,
		MaxAttempts: cfg.DispatchMaxAttempts,
	}, []dispatch.Channel{
		dispatch.NewAppChannel(hub),
		dispatch.NewStubChannel("email", logger),
		dispatch.NewStubChannel("sms", logger),
	}, logger)
	dispatchDone := make(chan struct{})
	go func() {
		dispatcher.Start(ctx)
		close(dispatchDone)
	}()

	// Alert engine
	gameFeed := feed.NewHTTPGameFeed(cfg.GameFeedBaseURL, cfg.GameFeedAPIKey, cfg.GameFeedRPM, logger)
	oddsFeed := feed.NewRedisOddsFeed(rdb, cfg.OddsStaleAfter)
	eng := engine.New(engine.Config{
		PollInterval:      cfg.PollInterval,
		HistoryRetention:  cfg.HistoryRetention,
		LineMoveThreshold: cfg.LineMoveThreshold,
	},
		gameFeed, oddsFeed,
		engine.PgBetStore{Pool: pool.Pool},
		engine.PgPreferenceStore{Pool: pool.Pool},
		engine.PgAlertStore{Pool: pool.Pool},
		rules.NewEvaluator(cfg.QuietHoursBypass),
		dedup.New(cfg.CooldownWindow),
		dispatcher, logger)
	engineDone := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(engineDone)
	}()

	// Kafka consumer for injury updates and market ticks. Pushed quotes are
	// cached for the next poll and routed to the owning game's worker.
	consumer := feed.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.InjuryTopic, cfg.LineTickTopic, logger)
	consumer.OnInjury = eng.RouteInjury
	consumer.OnLineTick = func(tick feed.LineTick) {
		if err := oddsFeed.PutQuote(ctx, tick.Quote(), cfg.OddsStaleAfter); err != nil {
			logger.Warn("Quote cache write failed", "ticker", tick.Ticker, "error", err)
		}
		eng.RouteLineTick(tick)
	}
	go consumer.Run(ctx)

	// Bet change listener: a placed or settled bet refreshes the tracked
	// set right away instead of waiting out the next refresh tick.
	go listener.Start(ctx, cfg.DatabaseURL, func(listener.BetEvent) { eng.Poke() }, logger)

	// Start maintenance tickers (cleanup, expiry sweep)
	mcfg := maintenance.DefaultConfig()
	mcfg.AlertRetention = cfg.AlertRetention
	mcfg.ExpireAfter = cfg.AlertExpireAfter
	go maintenance.Start(ctx, pool.Pool, mcfg, logger)

	// Metrics + liveness on a dedicated port
	metricsSrv := metrics.StartServer(strconv.Itoa(cfg.MetricsPort), pool.HealthCheck)

	// Create router
	router := api.NewRouter(pool.Pool, rdb, hub, appCache, cfg, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting BetPulse alert engine",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	_ = metricsSrv.Shutdown(shutdownCtx)

	// Let the engine stop emitting, then let the dispatch queue drain
	<-engineDone
	<-dispatchDone
	logger.Info("Server stopped")
}
