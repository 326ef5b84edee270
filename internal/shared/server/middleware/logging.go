package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"jobprep-backend/internal/shared/telemetry"
)

// Logging emits one structured line per request. The :id path parameter is
// logged as interview_id or resume_id depending on the route.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "OPTIONS" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"is_guest":    IsGuest(c),
			"client_ip":   c.ClientIP(),
		}
		if id := c.Param("id"); id != "" {
			switch {
			case strings.Contains(c.FullPath(), "/interviews/"):
				fields["interview_id"] = id
			case strings.Contains(c.FullPath(), "/resumes/"):
				fields["resume_id"] = id
			}
		}
		telemetry.Info("request.complete", fields)
	}
}
