package http

import (
	"time"

	"banana_clicker/internal/http/handlers"
	"banana_clicker/internal/http/middleware"
	"banana_clicker/internal/service"
	"banana_clicker/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteConfig carries what the routes need beyond the handlers.
type RouteConfig struct {
	Version          string
	AllowedOrigin    string
	IsAdmin          func(int64) bool
	APIRateLimit     int
	APIRateWindow    time.Duration
	ActionRateLimit  int
	ActionRateWindow time.Duration
}

func RegisterRoutes(r *gin.Engine, svc *service.ProgressService, audit *service.AuditService, sweeper handlers.Sweeper, hub *ws.Hub, db handlers.Pinger, cfg RouteConfig) {
	h := handlers.NewHandler(svc, sweeper, audit)
	var (
		sweeps handlers.SweepStatus
		feed   handlers.FeedStatus
	)
	if st, ok := sweeper.(handlers.SweepStatus); ok {
		sweeps = st
	}
	if hub != nil {
		feed = hub
	}
	healthHandler := handlers.NewHealthHandler(db, sweeps, feed, cfg.Version)

	if cfg.APIRateLimit <= 0 {
		cfg.APIRateLimit = 120
	}
	if cfg.APIRateWindow <= 0 {
		cfg.APIRateWindow = time.Minute
	}
	if cfg.IsAdmin == nil {
		cfg.IsAdmin = func(int64) bool { return false }
	}

	r.Use(middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Progress feed
	r.GET("/ws", ws.HandleWS(hub, svc, cfg.AllowedOrigin))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))
	v1.Use(middleware.JWT())
	{
		v1.GET("/progress", h.Progress)
		v1.GET("/shop", h.Shop)
	}

	actions := v1.Group("/actions")
	actions.Use(middleware.ActionRateLimit(cfg.ActionRateLimit, cfg.ActionRateWindow))
	{
		actions.POST("", h.Action)
		actions.POST("/click", h.Click)
		actions.POST("/purchase/:kind", h.Purchase)
		actions.POST("/boost/:kind", h.ActivateBoost)
		actions.POST("/prestige", h.Prestige)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.AdminOnly(cfg.IsAdmin))
	{
		admin.POST("/events", h.StartEvent)
		admin.POST("/sweep", h.Sweep)
		admin.GET("/audit", h.Audit)
	}
}
