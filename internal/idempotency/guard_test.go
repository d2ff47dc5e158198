package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testPath = "/api/v1/withdrawals"
	testKey  = "0123456789abcdef-key"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testConfig() config.IdempotencyConfig {
	return config.IdempotencyConfig{
		Backend:         config.IdempotencyBackendMemory,
		TTL:             24 * time.Hour,
		InProgressLease: 5 * time.Minute,
		MinKeyLength:    16,
		MaxKeyLength:    64,
	}
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Reserve(ctx context.Context, path, key, fingerprint string, lease time.Duration) (*Response, error) {
	args := m.Called(ctx, path, key, fingerprint, lease)
	resp, _ := args.Get(0).(*Response)
	return resp, args.Error(1)
}

func (m *mockBackend) Complete(ctx context.Context, path, key string, resp Response, ttl time.Duration) error {
	return m.Called(ctx, path, key, resp, ttl).Error(0)
}

func (m *mockBackend) Release(ctx context.Context, path, key string) error {
	return m.Called(ctx, path, key).Error(0)
}

func (m *mockBackend) Name() string {
	return "mock"
}

func TestGuard_Begin(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(newTestLogger(), NewMemoryBackend(), testConfig())

	tests := []struct {
		name     string
		key      string
		required bool
		wantErr  error
		reserved bool
	}{
		{name: "absent optional key passes through", key: "", required: false},
		{name: "absent required key", key: "", required: true, wantErr: shared.ErrMissingIdempotencyKey},
		{name: "too short", key: strings.Repeat("a", 15), required: true, wantErr: shared.ErrInvalidIdempotencyKey},
		{name: "too long", key: strings.Repeat("a", 65), required: true, wantErr: shared.ErrInvalidIdempotencyKey},
		{name: "shortest allowed", key: strings.Repeat("b", 16), required: true, reserved: true},
		{name: "longest allowed", key: strings.Repeat("c", 64), required: true, reserved: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := guard.Begin(ctx, testPath, tt.key, tt.required, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.reserved, out.Reserved)
			assert.Nil(t, out.Replay)
		})
	}
}

func TestGuard_ReplayAndInProgress(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(newTestLogger(), NewMemoryBackend(), testConfig())
	body := []byte(`{"amount":"10"}`)

	out, err := guard.Begin(ctx, testPath, testKey, true, body)
	require.NoError(t, err)
	require.True(t, out.Reserved)

	_, err = guard.Begin(ctx, testPath, testKey, true, body)
	assert.ErrorIs(t, err, shared.ErrIdempotencyInProgress)

	resp := Response{StatusCode: 422, ContentType: "application/json", Body: []byte(`{"error":"INSUFFICIENT_FUNDS"}`)}
	require.NoError(t, guard.Complete(ctx, testPath, testKey, resp))

	out, err = guard.Begin(ctx, testPath, testKey, true, body)
	require.NoError(t, err)
	require.NotNil(t, out.Replay)
	assert.False(t, out.Reserved)
	assert.Equal(t, resp, *out.Replay)

	_, err = guard.Begin(ctx, testPath, testKey, true, []byte(`{"amount":"11"}`))
	assert.ErrorIs(t, err, shared.ErrIdempotencyKeyReused)

	out, err = guard.Begin(ctx, "/api/v1/deposits", testKey, true, body)
	require.NoError(t, err)
	assert.True(t, out.Reserved, "keys are scoped by path")
}

func TestGuard_ServerErrorReleasesKey(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(newTestLogger(), NewMemoryBackend(), testConfig())

	_, err := guard.Begin(ctx, testPath, testKey, true, nil)
	require.NoError(t, err)
	require.NoError(t, guard.Complete(ctx, testPath, testKey, Response{StatusCode: 502, Body: []byte(`{}`)}))

	out, err := guard.Begin(ctx, testPath, testKey, true, nil)
	require.NoError(t, err)
	assert.True(t, out.Reserved, "retry with the same key runs again")
}

func TestGuard_ConcurrentDuplicatesRunOnce(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(newTestLogger(), NewMemoryBackend(), testConfig())

	var executed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := guard.Begin(ctx, testPath, testKey, true, nil)
			if err != nil {
				assert.ErrorIs(t, err, shared.ErrIdempotencyInProgress)
				return
			}
			if out.Reserved {
				executed.Add(1)
				assert.NoError(t, guard.Complete(ctx, testPath, testKey, Response{StatusCode: 201}))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), executed.Load())
}

func TestGuard_BackendFailure(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	backend.On("Reserve", ctx, testPath, testKey, mock.Anything, 5*time.Minute).Return(nil, errors.New("server selection timeout"))

	guard := NewGuard(newTestLogger(), backend, testConfig())
	assert.False(t, guard.Degraded())
	assert.Equal(t, "mock", guard.BackendName())

	_, err := guard.Begin(ctx, testPath, testKey, true, nil)
	assert.ErrorIs(t, err, shared.ErrStorage)
	backend.AssertExpectations(t)
}

func TestMemoryBackend_Expiry(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }

	_, err := backend.Reserve(ctx, testPath, testKey, "fp", time.Minute)
	require.NoError(t, err)
	require.NoError(t, backend.Complete(ctx, testPath, testKey, Response{StatusCode: 201}, time.Hour))
	assert.Equal(t, 1, backend.Len())

	now = now.Add(time.Hour)
	assert.Equal(t, 0, backend.Len())

	resp, err := backend.Reserve(ctx, testPath, testKey, "other", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, resp, "expired record is replaced by a fresh reservation")

	assert.ErrorIs(t, backend.Complete(ctx, testPath, "unknown-key-000000", Response{}, time.Hour), ErrReservationNotFound)

	guard := NewGuard(newTestLogger(), backend, testConfig())
	assert.True(t, guard.Degraded())
	assert.Equal(t, config.IdempotencyBackendMemory, guard.BackendName())
}

func TestGuard_UncompletedReservationLapsesAfterLease(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }
	guard := NewGuard(newTestLogger(), backend, testConfig())

	out, err := guard.Begin(ctx, testPath, testKey, true, nil)
	require.NoError(t, err)
	require.True(t, out.Reserved)

	// The handler ran but its response was never stored.
	now = now.Add(4 * time.Minute)
	_, err = guard.Begin(ctx, testPath, testKey, true, nil)
	assert.ErrorIs(t, err, shared.ErrIdempotencyInProgress)

	now = now.Add(time.Minute)
	out, err = guard.Begin(ctx, testPath, testKey, true, nil)
	require.NoError(t, err)
	assert.True(t, out.Reserved, "key is usable again once the lease ends")
}

func TestGuard_CompletedResponseOutlivesLease(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }
	guard := NewGuard(newTestLogger(), backend, testConfig())

	_, err := guard.Begin(ctx, testPath, testKey, true, nil)
	require.NoError(t, err)
	require.NoError(t, guard.Complete(ctx, testPath, testKey, Response{StatusCode: 201, Body: []byte(`{}`)}))

	now = now.Add(23 * time.Hour)
	out, err := guard.Begin(ctx, testPath, testKey, true, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Replay)
	assert.Equal(t, 201, out.Replay.StatusCode)
}

func TestGuard_CompleteFailureIsReported(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	resp := Response{StatusCode: 201}
	backend.On("Complete", mock.Anything, testPath, testKey, resp, 24*time.Hour).Return(errors.New("not primary"))

	guard := NewGuard(newTestLogger(), backend, testConfig())
	assert.Error(t, guard.Complete(ctx, testPath, testKey, resp))
	backend.AssertExpectations(t)
}

func TestNewGuard_LeaseDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.InProgressLease = 0
	assert.Equal(t, 5*time.Minute, NewGuard(newTestLogger(), NewMemoryBackend(), cfg).lease)

	cfg.TTL = time.Minute
	cfg.InProgressLease = time.Hour
	assert.Equal(t, time.Minute, NewGuard(newTestLogger(), NewMemoryBackend(), cfg).lease)
}
