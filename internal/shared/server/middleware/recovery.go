package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"jobprep-backend/internal/shared/server/respond"
	"jobprep-backend/internal/shared/telemetry"
)

// Recovery logs a panic with its stack and answers with the 500 envelope.
// Broken client connections are handled by gin without reaching this code.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		telemetry.Error("panic", map[string]any{
			"request_id": RequestIDFromContext(c),
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"error":      rec,
			"stack":      string(debug.Stack()),
		})
		if c.Writer.Written() {
			c.Abort()
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
	})
}
