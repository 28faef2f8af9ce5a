package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"digi-shop/pkg/jwt"
	"digi-shop/pkg/middleware"
)

// NewRouter wires the ops API. Stats and queue depth sit behind JWT
// auth and a per-client rate limit; health and metrics are open for
// probes and scrapers.
func NewRouter(handler *OpsHandler, jwtService *jwt.Service, redisClient *redis.Client, rateLimit int) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	router.GET("/health", handler.Health)
	router.GET("/metrics", handler.Metrics)

	api := router.Group("/api/v1")
	api.POST("/auth/token", handler.IssueToken)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	if redisClient != nil && rateLimit > 0 {
		protected.Use(middleware.RateLimitMiddleware(redisClient, rateLimit, time.Minute))
	}
	protected.GET("/stats", handler.GetStats)
	protected.GET("/queue", handler.GetQueueDepth)

	return router
}
