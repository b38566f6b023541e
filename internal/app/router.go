// internal/app/router.go
package app

import (
	"prepcoach-service/internal/config"
	checkoutHandler "prepcoach-service/internal/handlers/checkout"
	discountHandler "prepcoach-service/internal/handlers/discount"
	feedHandler "prepcoach-service/internal/handlers/feed"
	sessionHandler "prepcoach-service/internal/handlers/session"
	transcriptHandler "prepcoach-service/internal/handlers/transcript"
	"prepcoach-service/internal/middleware"
	"prepcoach-service/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	SessionHandler    *sessionHandler.SessionHandler
	TranscriptHandler *transcriptHandler.TranscriptHandler
	DiscountHandler   *discountHandler.DiscountHandler
	CheckoutHandler   *checkoutHandler.CheckoutHandler
	FeedHandler       *feedHandler.FeedHandler
	Limiter           *ratelimit.Limiter
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, cfg config.AppConfig, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Live Transcript Feed ====================
	r.GET("/ws/sessions/:id", h.FeedHandler.Subscribe)

	// ==================== Sessions ====================
	sessions := api.Group("/sessions")
	{
		sessions.GET("/paused", h.SessionHandler.PausedSessions)
		sessions.POST("/:id/start", h.SessionHandler.Start)
		sessions.POST("/:id/pause", h.SessionHandler.Pause)
		sessions.POST("/:id/resume", h.SessionHandler.Resume)
		sessions.POST("/:id/abandon", h.SessionHandler.Abandon)
		sessions.POST("/:id/complete", h.SessionHandler.Complete)
		sessions.POST("/:id/events", h.SessionHandler.LogEvent)

		appendLimited := sessions.Group("")
		appendLimited.Use(middleware.RateLimitMiddleware(
			h.Limiter, logger, "append_turn", cfg.AppendRateLimit, cfg.AppendRateWindow,
		))
		{
			appendLimited.POST("/:id/turns", h.TranscriptHandler.AppendTurn)
		}
		sessions.GET("/:id/turns", h.TranscriptHandler.GetHistory)
	}

	// ==================== Discounts ====================
	discounts := api.Group("/discounts")
	discounts.Use(middleware.RateLimitMiddleware(
		h.Limiter, logger, "validate_discount", 30, cfg.AppendRateWindow,
	))
	{
		discounts.POST("/validate", h.DiscountHandler.Validate)
	}

	// ==================== Checkout ====================
	checkout := api.Group("/checkout")
	{
		checkout.POST("", h.CheckoutHandler.CreateCheckout)
		checkout.POST("/webhook", h.CheckoutHandler.Webhook)
	}

	// ==================== Admin (operator key) ====================
	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuthMiddleware(cfg.AdminKeyHash))
	{
		admin.POST("/discounts", h.DiscountHandler.CreateCode)
	}
}
