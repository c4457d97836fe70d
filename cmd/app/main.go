package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"banana_clicker/internal/bot"
	"banana_clicker/internal/clock"
	"banana_clicker/internal/config"
	"banana_clicker/internal/db"
	"banana_clicker/internal/game"
	httpServer "banana_clicker/internal/http"
	"banana_clicker/internal/http/handlers"
	"banana_clicker/internal/http/middleware"
	"banana_clicker/internal/logger"
	"banana_clicker/internal/repository"
	"banana_clicker/internal/service"
	"banana_clicker/internal/worker"
	"banana_clicker/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store      service.ProgressStore
		auditStore service.AuditStore
		pinger     handlers.Pinger
	)
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, progress is lost on restart")
		store = repository.NewMemoryProgressRepository()
		auditStore = repository.NewMemoryAuditRepository()
	default:
		pool := db.Connect(ctx, cfg.DatabaseURL)
		defer pool.Close()
		store = repository.NewProgressRepository(pool)
		auditStore = repository.NewAuditRepository(pool)
		pinger = pool
	}

	rules := game.DefaultRules()
	rules.OfflineCap = cfg.OfflineCap
	rules.PrestigeBaseRequirement = cfg.PrestigeBaseRequirement

	svc := service.NewProgressService(store, clock.RealClock{}, rules)
	svc.SetConcurrency(cfg.SweepConcurrency)
	hub := ws.NewHub()
	svc.SetNotifier(hub)
	audit := service.NewAuditService(auditStore)
	svc.SetAudit(audit)

	sweeper := worker.NewSweeper(svc, cfg.SweepInterval)
	sweeperDone := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(sweeperDone)
	}()

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer middleware.CloseRedis()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	httpServer.RegisterRoutes(r, svc, audit, sweeper, hub, pinger, httpServer.RouteConfig{
		Version:          version,
		AllowedOrigin:    cfg.AllowedOrigin,
		IsAdmin:          cfg.IsAdmin,
		ActionRateLimit:  cfg.ActionRateLimit,
		ActionRateWindow: cfg.ActionRateWindow,
	})

	var adminBot *bot.AdminBot
	if cfg.AdminBotEnabled {
		b, err := bot.NewAdminBot(cfg.BotToken, svc, sweeper, audit, cfg.AdminTelegramIDs)
		if err != nil {
			logger.Error("admin bot disabled", "error", err)
		} else {
			adminBot = b
			go adminBot.Start()
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "store", cfg.Store, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if adminBot != nil {
		adminBot.Stop()
	}

	select {
	case <-sweeperDone:
	case <-shutdownCtx.Done():
		logger.Warn("sweeper did not stop in time")
	}

	logger.Info("server exited")
}
