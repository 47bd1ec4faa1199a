package middleware

import (
	"strings"
	"time"

	"fortune-report-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request, leveled by status
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logging.Errorw("HTTP request", fields...)
		case status >= 400:
			logging.Warnw("HTTP request", fields...)
		default:
			logging.Infow("HTTP request", fields...)
		}
	}
}
