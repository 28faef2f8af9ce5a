package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RateLimitMiddleware(redisClient *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			userID = c.ClientIP()
		}

		key := fmt.Sprintf("rate_limit:%s:%s", c.Request.URL.Path, userID)

		ctx := c.Request.Context()
		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			c.Abort()
			return
		}

		if count == 1 {
			redisClient.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AllowUpdate applies the same Redis counter to inbound bot updates.
// Used by the Telegram transport, which has no gin context.
func AllowUpdate(ctx context.Context, redisClient *redis.Client, userID int64, limit int, window time.Duration) bool {
	key := fmt.Sprintf("rate_limit:bot:%d", userID)

	count, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		// Fail open: rate limiting is protection, not correctness
		return true
	}
	if count == 1 {
		redisClient.Expire(ctx, key, window)
	}
	return count <= int64(limit)
}
