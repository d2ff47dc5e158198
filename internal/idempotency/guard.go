package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/platform/metrics"
)

// Outcome tells the caller what to do with a request
type Outcome struct {
	// Replay is set when a completed response exists; the handler must not run
	Replay *Response
	// Reserved is set when the caller owns the key and must Complete or Abandon it
	Reserved bool
}

// Guard validates keys and drives a Backend
type Guard struct {
	backend  Backend
	ttl      time.Duration
	lease    time.Duration
	minLen   int
	maxLen   int
	degraded bool
	logger   *slog.Logger
}

// NewGuard creates a guard. The memory backend marks the guard degraded.
func NewGuard(logger *slog.Logger, backend Backend, cfg config.IdempotencyConfig) *Guard {
	g := &Guard{
		backend:  backend,
		ttl:      cfg.TTL,
		lease:    cfg.InProgressLease,
		minLen:   cfg.MinKeyLength,
		maxLen:   cfg.MaxKeyLength,
		degraded: backend.Name() == config.IdempotencyBackendMemory,
		logger:   logger,
	}
	if g.ttl <= 0 {
		g.ttl = 24 * time.Hour
	}
	if g.lease <= 0 || g.lease > g.ttl {
		g.lease = min(5*time.Minute, g.ttl)
	}
	if g.minLen <= 0 {
		g.minLen = 16
	}
	if g.maxLen < g.minLen {
		g.maxLen = 64
	}
	if g.degraded {
		logger.Warn("Idempotency guard running on the in-process backend, records are lost on restart and not shared between replicas")
	}
	return g
}

// ValidateKey checks the key length bounds
func (g *Guard) ValidateKey(key string) error {
	if n := len(key); n < g.minLen || n > g.maxLen {
		return fmt.Errorf("%w: length must be between %d and %d", shared.ErrInvalidIdempotencyKey, g.minLen, g.maxLen)
	}
	return nil
}

// Begin decides whether a request runs. An absent key passes through unless required.
func (g *Guard) Begin(ctx context.Context, path, key string, required bool, body []byte) (Outcome, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		if required {
			metrics.IdempotencyResults.WithLabelValues("rejected").Inc()
			return Outcome{}, shared.ErrMissingIdempotencyKey
		}
		return Outcome{}, nil
	}
	if err := g.ValidateKey(key); err != nil {
		metrics.IdempotencyResults.WithLabelValues("rejected").Inc()
		return Outcome{}, err
	}

	cached, err := g.backend.Reserve(ctx, path, key, Fingerprint(body), g.lease)
	switch {
	case errors.Is(err, shared.ErrIdempotencyInProgress):
		metrics.IdempotencyResults.WithLabelValues("in_progress").Inc()
		return Outcome{}, err
	case errors.Is(err, shared.ErrIdempotencyKeyReused):
		metrics.IdempotencyResults.WithLabelValues("rejected").Inc()
		return Outcome{}, err
	case err != nil:
		g.logger.Error("Idempotency reservation failed",
			"path", path,
			"backend", g.backend.Name(),
			"error", err,
		)
		return Outcome{}, fmt.Errorf("%w: idempotency backend: %w", shared.ErrStorage, err)
	}

	if cached != nil {
		metrics.IdempotencyResults.WithLabelValues("replay").Inc()
		g.logger.Info("Replaying idempotent response", "path", path, "status", cached.StatusCode)
		return Outcome{Replay: cached}, nil
	}

	metrics.IdempotencyResults.WithLabelValues("miss").Inc()
	return Outcome{Reserved: true}, nil
}

// Complete stores resp under the key. Server errors release the key instead
// so the client can retry with it. When the store fails the reservation stays
// until its lease ends.
func (g *Guard) Complete(ctx context.Context, path, key string, resp Response) error {
	if resp.StatusCode >= 500 {
		return g.Abandon(ctx, path, key)
	}

	if err := g.backend.Complete(context.WithoutCancel(ctx), path, key, resp, g.ttl); err != nil {
		g.logger.Error("Failed to store idempotent response",
			"path", path,
			"status", resp.StatusCode,
			"error", err,
		)
		return err
	}
	return nil
}

// Abandon releases a reservation without storing a response
func (g *Guard) Abandon(ctx context.Context, path, key string) error {
	metrics.IdempotencyResults.WithLabelValues("released").Inc()
	if err := g.backend.Release(context.WithoutCancel(ctx), path, key); err != nil {
		g.logger.Error("Failed to release idempotency key", "path", path, "error", err)
		return err
	}
	return nil
}

// BackendName reports the active backend
func (g *Guard) BackendName() string {
	return g.backend.Name()
}

// Degraded reports whether records are process-local
func (g *Guard) Degraded() bool {
	return g.degraded
}
