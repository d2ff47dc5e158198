package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/idempotency"
	"github.com/gin-gonic/gin"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotencyReplayHeader = "Idempotency-Replay"
)

// captureWriter keeps a copy of the response body for the idempotency record
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays stored responses for repeated (path, key) pairs and
// records the response of the first execution. Only mutating verbs are guarded.
// Keys are scoped per caller so two users cannot collide on the same key.
func Idempotency(guard *idempotency.Guard, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !mutating(c.Request.Method) {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", "failed to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		scope := idempotencyScope(c)

		outcome, err := guard.Begin(ctx, scope, key, required, body)
		if err != nil {
			respondIdempotencyError(c, err)
			return
		}

		if outcome.Replay != nil {
			c.Header(IdempotencyReplayHeader, "true")
			contentType := outcome.Replay.ContentType
			if contentType == "" {
				contentType = "application/json; charset=utf-8"
			}
			c.Data(outcome.Replay.StatusCode, contentType, outcome.Replay.Body)
			c.Abort()
			return
		}

		if !outcome.Reserved {
			c.Next()
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		defer func() {
			if r := recover(); r != nil {
				_ = guard.Abandon(ctx, scope, key)
				panic(r)
			}
		}()

		c.Next()

		resp := idempotency.Response{
			StatusCode:  writer.Status(),
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		// Complete logs its own failures; the client already has its response
		_ = guard.Complete(ctx, scope, key, resp)
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func idempotencyScope(c *gin.Context) string {
	scope := c.Request.Method + " " + c.Request.URL.Path
	if caller := GetActorID(c); caller != "" {
		scope += "|" + caller
	}
	return scope
}

func respondIdempotencyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrMissingIdempotencyKey):
		abortWithError(c, http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "the "+IdempotencyKeyHeader+" header is required")
	case errors.Is(err, shared.ErrInvalidIdempotencyKey):
		abortWithError(c, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", err.Error())
	case errors.Is(err, shared.ErrIdempotencyInProgress):
		abortWithError(c, http.StatusConflict, "IDEMPOTENCY_REQUEST_IN_PROGRESS", err.Error())
	case errors.Is(err, shared.ErrIdempotencyKeyReused):
		abortWithError(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
	}
}
