package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnjs_backend/internal/cache"
	"learnjs_backend/internal/config"
	"learnjs_backend/internal/db"
	httpServer "learnjs_backend/internal/http"
	"learnjs_backend/internal/http/handlers"
	"learnjs_backend/internal/http/middleware"
	"learnjs_backend/internal/jobs"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/service"
	"learnjs_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	store, err := db.OpenStore(context.Background(), cfg)
	if err != nil {
		logger.Fatal("failed to open storage", "error", err)
	}
	defer store.Close()

	rdb, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, using in-process rate limits and no level cache", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
		middleware.UseRedis(rdb)
		logger.Info("redis connected", "addr", cfg.RedisAddr)
	}

	hub := ws.NewHub()
	ledger := service.NewLedgerService(store)
	ledger.SetNotifier(hub)
	gate := service.NewLevelGate(store, ledger)
	levels := service.NewLevelService(store, gate, cache.NewLevelCache(rdb, cfg.LevelCacheTTL))
	referrals := service.NewReferralService(store, ledger, cfg.PublicURL)
	audit := service.NewAuditService(store)
	accounts := service.NewAccountService(store, ledger, referrals, audit)
	if cfg.BcryptCost > 0 {
		accounts.SetHashCost(cfg.BcryptCost)
	}
	reconcile := service.NewReconcileService(store)

	services := handlers.Services{
		Accounts:  accounts,
		Ledger:    ledger,
		Gate:      gate,
		Levels:    levels,
		Progress:  service.NewProgressService(store, ledger, gate),
		Referrals: referrals,
		Admin:     service.NewAdminService(store, ledger, referrals, levels, audit),
		Audit:     audit,
		Reconcile: reconcile,
	}

	cronManager := jobs.NewCronManager(reconcile, cfg.ReconcileSchedule)
	if err := cronManager.Start(); err != nil {
		logger.Fatal("failed to start cron jobs", "error", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	httpServer.RegisterRoutes(r, httpServer.Deps{
		Config:   cfg,
		Store:    store,
		Redis:    rdb,
		Services: services,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", cfg.AppVersion, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cronManager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
