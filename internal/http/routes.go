package http

import (
	"context"

	"learnjs_backend/internal/config"
	"learnjs_backend/internal/http/handlers"
	"learnjs_backend/internal/http/middleware"
	"learnjs_backend/internal/repository"
	"learnjs_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps is everything the router needs. Redis is optional.
type Deps struct {
	Config   *config.Config
	Store    repository.Store
	Redis    *redis.Client
	Services handlers.Services
	Hub      *ws.Hub
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	cfg := d.Config
	h := handlers.NewHandler(d.Services)

	var redisPing handlers.Pinger
	if d.Redis != nil {
		redisPing = handlers.PingFunc(func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() })
	}
	healthHandler := handlers.NewHealthHandler(d.Store, redisPing, cfg.AppVersion)

	r.Use(middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics(), middleware.CORS(cfg.AllowedOrigins))

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// Live wallet events
	r.GET("/ws", ws.HandleWS(d.Hub, cfg.AllowedOrigins))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit("api", cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(v1, h, cfg, d.Services)
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, cfg *config.Config, s handlers.Services) {
	authRL := middleware.RedisRateLimit("auth", cfg.AuthRateLimit, cfg.AuthRateWindow)
	submitRL := middleware.UserRateLimit("submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow)
	jwt := middleware.JWT()

	// Auth
	auth := api.Group("/auth")
	{
		auth.POST("/register", authRL, h.Register)
		auth.POST("/login", authRL, h.Login)
		auth.POST("/verify", authRL, h.Verify)
		auth.GET("/me", jwt, h.Me)
	}

	// Profile and progress
	users := api.Group("/users", jwt)
	{
		users.GET("/profile", h.Me)
		users.PUT("/profile", h.UpdateProfile)
		users.GET("/progress", h.MyProgress)
		users.GET("/unlocked-levels", h.UnlockedLevels)
		users.POST("/unlock-level/:id", h.UnlockLevel)
	}

	// Levels
	api.GET("/levels", middleware.OptionalJWT(), h.ListLevels)
	levels := api.Group("/levels", jwt)
	{
		levels.GET("/number/:number", h.GetLevelByNumber)
		levels.GET("/:id", h.GetLevel)
		levels.GET("/:id/progress", h.LevelProgress)
		levels.POST("/:id/unlock", h.UnlockLevel)
		levels.POST("/:id/complete-exercise", submitRL, h.CompleteExercise)
		levels.POST("/:id/quiz", submitRL, h.SubmitQuiz)
		levels.POST("/:id/score", submitRL, h.SubmitLevelScore)
	}

	// Coins
	coins := api.Group("/coins", jwt)
	{
		coins.GET("/balance", h.Balance)
		coins.GET("/transactions", h.Transactions)
		coins.POST("/transfer", submitRL, h.Transfer)
		coins.POST("/add-referral", h.ApplyReferral)
	}

	// Referral system
	referral := api.Group("/referral", jwt)
	{
		referral.GET("", h.ReferralInfo)
		referral.POST("/apply", h.ApplyReferral)
	}

	// Admin
	admin := api.Group("/admin", jwt, middleware.AdminOnly(s.Admin))
	{
		admin.GET("/dashboard", h.AdminDashboard)
		admin.GET("/users", h.AdminListUsers)
		admin.GET("/users/:id", h.AdminGetUser)
		admin.PUT("/users/:id/admin", h.AdminSetAdmin)
		admin.POST("/users/:id/referral", h.AdminApplyReferral)
		admin.POST("/add-coins", h.AdminAddCoins)
		admin.GET("/levels", h.AdminListLevels)
		admin.POST("/levels", h.AdminSaveLevel)
		admin.GET("/audit", h.AdminAuditLogs)
		admin.POST("/reconcile", h.AdminReconcile)
	}
}
