package middleware

import (
	"crypto/subtle"
	"net/http"

	"fortune-report-api/internal/response"

	"github.com/gin-gonic/gin"
)

// AdminKeyHeader carries the admin API key
const AdminKeyHeader = "X-Admin-Key"

// AdminAuthMiddleware guards admin routes with a shared key. With no key
// configured every admin request is refused.
func AdminAuthMiddleware(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			response.ErrorJSON(c, http.StatusForbidden, "Admin API is disabled")
			c.Abort()
			return
		}

		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			response.ErrorJSON(c, http.StatusUnauthorized, "Missing admin key")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
			response.ErrorJSON(c, http.StatusUnauthorized, "Invalid admin key")
			c.Abort()
			return
		}

		c.Next()
	}
}
