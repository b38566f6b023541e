// internal/middleware/ratelimit_middleware.go
package middleware

import (
	"net/http"
	"time"

	"prepcoach-service/internal/pkg/ratelimit"
	"prepcoach-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitMiddleware applies a fixed-window per-client-IP limit to a route
// group. If redis is unreachable the request is let through; limiting is a
// shield, not a correctness requirement.
func RateLimitMiddleware(limiter *ratelimit.Limiter, logger *zap.Logger, bucket string, maxRequests int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), bucket, c.ClientIP(), maxRequests, window)
		if err != nil {
			logger.Warn("rate limiter unavailable",
				zap.String("bucket", bucket),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, "too many requests", nil)
			return
		}

		c.Next()
	}
}
