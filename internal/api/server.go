package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/betpulse/betpulse-engine/internal/api/handler"
	"github.com/betpulse/betpulse-engine/internal/cache"
	"github.com/betpulse/betpulse-engine/internal/config"
	"github.com/betpulse/betpulse-engine/internal/push"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *pgxpool.Pool, rdb *redis.Client, hub *push.Hub,
	appCache *cache.Cache, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "Link", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, rdb, hub, appCache, cfg, logger)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/redis", h.HealthCheckRedis)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Alert inbox
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/unread", h.ListUnreadAlerts)
			r.Get("/recent", h.ListRecentAlerts)
			r.Post("/read-all", h.MarkAllAlertsRead)
			r.Post("/{alertID}/read", h.MarkAlertRead)
			r.Post("/{alertID}/dismiss", h.DismissAlert)
			r.Post("/{alertID}/feedback", h.SubmitFeedback)
		})

		// Feedback analytics
		r.Get("/analytics", h.GetAnalytics)

		// Preferences
		r.Get("/preferences", h.GetPreferences)
		r.Put("/preferences", h.UpdatePreferences)

		// Realtime push
		r.Get("/ws", h.ServeWS)
	})

	return r
}
