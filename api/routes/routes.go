package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/cryptolotto/lottery-backend/internal/config"
	"github.com/cryptolotto/lottery-backend/internal/handlers"
	"github.com/cryptolotto/lottery-backend/internal/middleware"
)

// HandlerDependencies bundles the handlers the router wires up
type HandlerDependencies struct {
	AuthHandler    *handlers.AuthHandler
	DrawHandler    *handlers.DrawHandler
	LotteryHandler *handlers.LotteryHandler
	PaymentHandler *handlers.PaymentHandler
	PayoutHandler  *handlers.PayoutHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})

		lottery := public.Group("/lottery")
		{
			lottery.GET("/current", deps.LotteryHandler.GetCurrentDraw)
			lottery.GET("/draws/:id", deps.LotteryHandler.GetDraw)
			lottery.GET("/winners", deps.LotteryHandler.GetWinners)
			lottery.POST("/purchase", deps.LotteryHandler.Purchase)
			lottery.POST("/verify", deps.LotteryHandler.VerifyProof)
		}

		// Provider webhooks authenticate by signature, not by JWT.
		public.POST("/webhooks/payments", deps.PaymentHandler.Webhook)

		auth := public.Group("/admin/auth")
		{
			auth.POST("/register", deps.AuthHandler.Register)
			auth.POST("/login", deps.AuthHandler.Login)
		}
	}

	// Protected admin routes
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(cfg))
	{
		draws := admin.Group("/draws")
		{
			draws.GET("", deps.DrawHandler.GetDraws)
			draws.GET("/:id", deps.DrawHandler.GetDrawByID)
			draws.GET("/:id/tickets", deps.DrawHandler.GetDrawTickets)
			draws.POST("", deps.DrawHandler.CreateDraw)
			draws.POST("/:id/start", deps.DrawHandler.StartDraw)
			draws.POST("/:id/run", deps.DrawHandler.RunDraw)
			draws.POST("/:id/cancel", deps.DrawHandler.CancelDraw)
		}

		payouts := admin.Group("/payouts")
		{
			payouts.GET("", deps.PayoutHandler.GetPayouts)
			payouts.GET("/:id", deps.PayoutHandler.GetPayoutByID)
			payouts.POST("/:id/record", deps.PayoutHandler.RecordPayout)
		}

		admin.GET("/audit", deps.AuthHandler.GetAuditLog)
	}

	return router
}
