package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/fundgate/ledger-core/internal/logger"
	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 envelope. The panic is logged with
// its stack on the request scoped logger when one is installed.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.FromContext(c.Request.Context(), log).Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"route", c.FullPath(),
				"method", c.Request.Method,
			)
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
		}()

		c.Next()
	}
}
