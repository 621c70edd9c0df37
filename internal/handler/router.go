package handler

import (
	"net/http"

	"rewardpoints/internal/config"
	"rewardpoints/internal/metrics"
	"rewardpoints/internal/model"

	"github.com/gin-gonic/gin"
)

func SetupRouter(h *Handler, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware(cfg.Server.CORSOrigins))

	loginLimiter := NewIPRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst)

	api := r.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/token", RateLimitMiddleware(loginLimiter), h.ObtainToken)
		api.POST("/token/refresh", RateLimitMiddleware(loginLimiter), h.RefreshToken)
		api.POST("/logout", h.Logout)

		authed := api.Group("", h.AuthMiddleware())
		{
			authed.GET("/me", h.Me)

			authed.GET("/children", h.ListChildren)
			authed.POST("/children", RequireRole(model.RoleParent), h.LinkChild)
			authed.GET("/parents", RequireRole(model.RoleParent), h.ListParents)

			authed.GET("/score-transactions", h.ListTransactions)
			authed.GET("/score-transactions/:no", h.GetTransaction)
			authed.POST("/score-transactions", RequireRole(model.RoleParent), h.CreateTransaction)

			authed.GET("/rewards", h.ListRewards)
			authed.POST("/rewards/:id/redeem", RequireRole(model.RoleChild), h.RedeemReward)

			authed.GET("/reward-requests", h.ListRequests)
			authed.POST("/reward-requests", RequireRole(model.RoleChild), h.CreateRequest)
			authed.POST("/reward-requests/:id/approve", RequireRole(model.RoleParent), h.ApproveRequest)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}
