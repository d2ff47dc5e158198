package api_gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/api_gateway/middleware"
	"github.com/fundgate/ledger-core/internal/api_gateway/service"
	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/data/memory"
	"github.com/fundgate/ledger-core/internal/idempotency"
	"github.com/fundgate/ledger-core/internal/platform/transfer"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testAdminSecret = "s3cret-admin"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := memory.NewStore()

	store := accounting.NewLedgerStore(logger, mem.Ledger())
	escrow := accounting.NewEscrowManager(logger, mem.Transactor(), store)
	workflow := accounting.NewWorkflow(logger, mem.Transactor(), mem.Funding(), store, escrow, transfer.Disabled{}, accounting.Options{
		TransferTimeout: time.Second,
		ClaimLease:      time.Minute,
		FinalizeRetries: 1,
		RetryBackoff:    time.Millisecond,
	})
	bulk, err := accounting.NewBulkApprover(logger, workflow, 2)
	require.NoError(t, err)
	t.Cleanup(bulk.Shutdown)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminSecret), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: 0, WriteTimeout: time.Second},
		Admin:  config.AdminConfig{SecretHash: string(hash)},
	}
	guard := idempotency.NewGuard(logger, idempotency.NewMemoryBackend(), config.IdempotencyConfig{
		Backend: config.IdempotencyBackendMemory,
		TTL:     time.Hour,
	})

	return NewServer(logger, cfg, service.NewAccountService(store), service.NewFundingService(workflow, bulk), guard)
}

type call struct {
	method  string
	path    string
	body    string
	headers map[string]string
}

func (c call) do(s *Server) *httptest.ResponseRecorder {
	var body io.Reader
	if c.body != "" {
		body = bytes.NewBufferString(c.body)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func dataID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data.ID
}

func TestServer_DepositApproveAndRead(t *testing.T) {
	s := newTestServer(t)
	user := map[string]string{
		middleware.UserIDHeader:         "user-1",
		middleware.IdempotencyKeyHeader: "deposit-key-0000001",
	}

	deposit := call{method: http.MethodPost, path: "/api/v1/deposits", body: `{"currency":"USDT","amount":"100"}`, headers: user}
	first := deposit.do(s)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	depositID := dataID(t, first)

	replay := deposit.do(s)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(middleware.IdempotencyReplayHeader))
	assert.Equal(t, depositID, dataID(t, replay))

	approve := call{
		method: http.MethodPost,
		path:   "/api/v1/admin/funding-requests/" + depositID + "/approve",
		headers: map[string]string{
			middleware.AdminSecretHeader:    testAdminSecret,
			middleware.AdminIDHeader:        "admin-1",
			middleware.IdempotencyKeyHeader: "approve-key-0000001",
		},
	}.do(s)
	require.Equal(t, http.StatusOK, approve.Code, approve.Body.String())
	assert.Contains(t, approve.Body.String(), `"status":"APPROVED"`)
	assert.Contains(t, approve.Body.String(), `"reviewed_by":"admin-1"`)

	balance := call{
		method:  http.MethodGet,
		path:    "/api/v1/accounts/user-1/balances/USDT",
		headers: map[string]string{middleware.UserIDHeader: "user-1"},
	}.do(s)
	require.Equal(t, http.StatusOK, balance.Code)
	assert.Contains(t, balance.Body.String(), `"balance":"100"`)
	assert.Contains(t, balance.Body.String(), `"available_balance":"100"`)
}

func TestServer_WithdrawalWithoutGateway(t *testing.T) {
	s := newTestServer(t)
	admin := func(key string) map[string]string {
		return map[string]string{
			middleware.AdminSecretHeader:    testAdminSecret,
			middleware.IdempotencyKeyHeader: key,
		}
	}

	credit := call{
		method:  http.MethodPost,
		path:    "/api/v1/admin/adjustments",
		body:    `{"user_id":"user-2","currency":"USDT","amount":"50","type":"CREDIT","reason":"opening balance"}`,
		headers: admin("credit-key-00000001"),
	}.do(s)
	require.Equal(t, http.StatusCreated, credit.Code, credit.Body.String())

	wd := call{
		method: http.MethodPost,
		path:   "/api/v1/withdrawals",
		body:   `{"currency":"USDT","amount":"20","destination":"0xabc"}`,
		headers: map[string]string{
			middleware.UserIDHeader:         "user-2",
			middleware.IdempotencyKeyHeader: "withdraw-key-000001",
		},
	}.do(s)
	require.Equal(t, http.StatusCreated, wd.Code, wd.Body.String())
	wdID := dataID(t, wd)

	approve := call{
		method:  http.MethodPost,
		path:    "/api/v1/admin/funding-requests/" + wdID + "/approve",
		headers: admin("approve-key-0000002"),
	}.do(s)
	assert.Equal(t, http.StatusBadGateway, approve.Code)
	assert.Contains(t, approve.Body.String(), "PENDING_RETRY")

	// a 5xx outcome is not cached, so the same key may retry
	retry := call{
		method:  http.MethodPost,
		path:    "/api/v1/admin/funding-requests/" + wdID + "/approve",
		headers: admin("approve-key-0000002"),
	}.do(s)
	assert.Equal(t, http.StatusBadGateway, retry.Code)
	assert.Empty(t, retry.Header().Get(middleware.IdempotencyReplayHeader))

	got := call{
		method:  http.MethodGet,
		path:    "/api/v1/funding-requests/" + wdID,
		headers: map[string]string{middleware.UserIDHeader: "user-2"},
	}.do(s)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), `"status":"PENDING"`)

	balance := call{
		method:  http.MethodGet,
		path:    "/api/v1/admin/accounts/user-2/balances/USDT",
		headers: map[string]string{middleware.AdminSecretHeader: testAdminSecret},
	}.do(s)
	require.Equal(t, http.StatusOK, balance.Code)
	assert.Contains(t, balance.Body.String(), `"held_balance":"20"`)
	assert.Contains(t, balance.Body.String(), `"available_balance":"30"`)
}

func TestServer_Guards(t *testing.T) {
	s := newTestServer(t)

	t.Run("MissingUser", func(t *testing.T) {
		w := call{method: http.MethodGet, path: "/api/v1/accounts/user-1/balances/USDT"}.do(s)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("MissingIdempotencyKey", func(t *testing.T) {
		w := call{
			method:  http.MethodPost,
			path:    "/api/v1/deposits",
			body:    `{"currency":"USDT","amount":"1"}`,
			headers: map[string]string{middleware.UserIDHeader: "user-1"},
		}.do(s)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("AdminRequiresCredentials", func(t *testing.T) {
		w := call{
			method:  http.MethodGet,
			path:    "/api/v1/admin/funding-requests",
			headers: map[string]string{middleware.UserIDHeader: "user-1"},
		}.do(s)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Health", func(t *testing.T) {
		w := call{method: http.MethodGet, path: "/health"}.do(s)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "memory", body["idempotency_backend"])
		assert.Equal(t, true, body["idempotency_degraded"])
	})

	t.Run("Metrics", func(t *testing.T) {
		w := call{method: http.MethodGet, path: "/metrics"}.do(s)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestServer_StopBeforeStart(t *testing.T) {
	s := newTestServer(t)
	assert.NoError(t, s.Stop(context.Background()))
}
