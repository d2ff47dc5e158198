package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/idempotency"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const testIdempotencyKey = "key-0123456789abcdef"

func newIdempotentRouter(required bool, calls *atomic.Int32, status int) *gin.Engine {
	guard := idempotency.NewGuard(slog.New(slog.NewTextHandler(io.Discard, nil)), idempotency.NewMemoryBackend(), config.IdempotencyConfig{
		TTL:          time.Hour,
		MinKeyLength: 16,
		MaxKeyLength: 64,
	})

	router := gin.New()
	router.Use(RequireUser())
	router.Use(Idempotency(guard, required))
	handler := func(c *gin.Context) {
		n := calls.Add(1)
		c.JSON(status, gin.H{"call": n})
	}
	router.POST("/withdrawals", handler)
	router.GET("/withdrawals", handler)
	return router
}

func doRequest(router *gin.Engine, method, user, key, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, "/withdrawals", strings.NewReader(body))
	req.Header.Set(UserIDHeader, user)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestIdempotency(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReplaysStoredResponse", func(t *testing.T) {
		var calls atomic.Int32
		router := newIdempotentRouter(true, &calls, http.StatusCreated)

		first := doRequest(router, http.MethodPost, "user-1", testIdempotencyKey, `{"amount":"10"}`)
		second := doRequest(router, http.MethodPost, "user-1", testIdempotencyKey, `{"amount":"10"}`)

		assert.Equal(t, http.StatusCreated, first.Code)
		assert.Empty(t, first.Header().Get(IdempotencyReplayHeader))
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.Equal(t, "true", second.Header().Get(IdempotencyReplayHeader))
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("MissingKeyOnRequiredRoute", func(t *testing.T) {
		var calls atomic.Int32
		router := newIdempotentRouter(true, &calls, http.StatusCreated)

		rr := doRequest(router, http.MethodPost, "user-1", "", `{}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "MISSING_IDEMPOTENCY_KEY")
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("MissingKeyOnOptionalRoute", func(t *testing.T) {
		var calls atomic.Int32
		router := newIdempotentRouter(false, &calls, http.StatusCreated)

		doRequest(router, http.MethodPost, "user-1", "", `{}`)
		doRequest(router, http.MethodPost, "user-1", "", `{}`)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("MalformedKey", func(t *testing.T) {
		var calls atomic.Int32
		router := newIdempotentRouter(true, &calls, http.StatusCreated)

		rr := doRequest(router, http.MethodPost, "user-1", "short", `{}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "INVALID_IDEMPOTENCY_KEY")
	})

	t.Run("KeyReusedWithDifferentBody", func(t *testing.T) {
		var calls atomic.Int32
		router := newIdempotentRouter(true, &calls, http.StatusCreated)

		doRequest(router, http.MethodPost, "user-1", testIdempotencyKey, `{"amount":"10"}`)
		rr := doRequest(router, http.MethodPost, "user-1", testIdempotencyKey, `{"amount":"99"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "IDEMPOTENCY_KEY_REUSED")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("KeysAreScopedPerCaller", func(t *testing.T) {
		var calls atomic.Int32
		router := newIdempotentRouter(true, &calls, http.StatusCreated)

		doRequest(router, http.MethodPost, "user-1", testIdempotencyKey, `{}`)
		rr := doRequest(router, http.MethodPost, "user-2", testIdempotencyKey, `{}`)
		assert.Empty(t, rr.Header().Get(IdempotencyReplayHeader))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("ServerErrorsAreNotStored", func(t *testing.T) {
		var calls atomic.Int32
		router := newIdempotentRouter(true, &calls, http.StatusBadGateway)

		doRequest(router, http.MethodPost, "user-1", testIdempotencyKey, `{}`)
		rr := doRequest(router, http.MethodPost, "user-1", testIdempotencyKey, `{}`)
		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Empty(t, rr.Header().Get(IdempotencyReplayHeader))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("ReadsAreNotGuarded", func(t *testing.T) {
		var calls atomic.Int32
		router := newIdempotentRouter(true, &calls, http.StatusOK)

		rr := doRequest(router, http.MethodGet, "user-1", "", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		doRequest(router, http.MethodGet, "user-1", testIdempotencyKey, "")
		doRequest(router, http.MethodGet, "user-1", testIdempotencyKey, "")
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("PanicReleasesKey", func(t *testing.T) {
		guard := idempotency.NewGuard(slog.New(slog.NewTextHandler(io.Discard, nil)), idempotency.NewMemoryBackend(), config.IdempotencyConfig{
			TTL: time.Hour, MinKeyLength: 16, MaxKeyLength: 64,
		})
		var calls atomic.Int32
		router := gin.New()
		router.Use(Recovery(slog.New(slog.NewTextHandler(io.Discard, nil))))
		router.Use(RequireUser())
		router.Use(Idempotency(guard, true))
		router.POST("/withdrawals", func(c *gin.Context) {
			if calls.Add(1) == 1 {
				panic("boom")
			}
			c.JSON(http.StatusCreated, gin.H{"ok": true})
		})

		first := doRequest(router, http.MethodPost, "user-1", testIdempotencyKey, `{}`)
		second := doRequest(router, http.MethodPost, "user-1", testIdempotencyKey, `{}`)
		assert.Equal(t, http.StatusInternalServerError, first.Code)
		assert.Equal(t, http.StatusCreated, second.Code)
	})
}
