// internal/middleware/admin_middleware.go
package middleware

import (
	"prepcoach-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthMiddleware guards operator routes with a shared key delivered in
// X-Admin-Key and compared against its bcrypt hash from config.
func AdminAuthMiddleware(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Admin-Key")
		if key == "" || keyHash == "" {
			response.Unauthorized(c, "admin key required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			response.Unauthorized(c, "invalid admin key")
			return
		}

		c.Next()
	}
}
