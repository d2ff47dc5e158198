package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fundgate/ledger-core/internal/logger"
	"github.com/gin-gonic/gin"
)

// Logger writes one access line per request and exposes a request scoped
// logger, tagged with the correlation id, through the request context.
// Server errors log at ERROR, client errors at WARN.
func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestLogger := log
		if correlationID := GetCorrelationID(c); correlationID != "" {
			requestLogger = log.With("correlation_id", correlationID)
		}
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), requestLogger))

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if actor := GetActorID(c); actor != "" {
			attrs = append(attrs, "actor_id", actor)
		}
		if key := c.GetHeader(IdempotencyKeyHeader); key != "" {
			attrs = append(attrs, "idempotency_key", key)
		}

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		requestLogger.Log(c.Request.Context(), level, "Request completed", attrs...)
	}
}
