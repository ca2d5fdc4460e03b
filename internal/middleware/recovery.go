package middleware

import (
	"net/http"
	"runtime/debug"

	"todo-notes/internal/logging"

	"github.com/gin-gonic/gin"
)

// RecoveryWithLog turns a panic into a 500 with a fixed body and logs the
// stack. The variadic logger defaults to a no-op.
func RecoveryWithLog(loggers ...logging.Logger) gin.HandlerFunc {
	var log logging.Logger = logging.Nop()
	if len(loggers) > 0 && loggers[0] != nil {
		log = loggers[0]
	}

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error(c.Request.Context(), "panic recovered",
					"panic", rec,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"request_id", RequestIDFrom(c),
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
