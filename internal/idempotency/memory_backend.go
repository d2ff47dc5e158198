package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/domain/shared"
)

const sweepInterval = time.Minute

type memoryRecord struct {
	fingerprint string
	response    *Response
	expiresAt   time.Time
}

// MemoryBackend keeps records in process memory. It is the degraded mode:
// records are not shared between replicas and vanish on restart.
type MemoryBackend struct {
	mu        sync.Mutex
	records   map[string]*memoryRecord
	now       func() time.Time
	nextSweep time.Time
}

// NewMemoryBackend creates an empty in-process backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]*memoryRecord),
		now:     time.Now,
	}
}

func recordKey(path, key string) string {
	return path + "\x00" + key
}

func (b *MemoryBackend) Reserve(ctx context.Context, path, key, fingerprint string, lease time.Duration) (*Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.sweep(now)

	if rec, ok := b.records[recordKey(path, key)]; ok && now.Before(rec.expiresAt) {
		if rec.fingerprint != fingerprint {
			return nil, shared.ErrIdempotencyKeyReused
		}
		if rec.response == nil {
			return nil, shared.ErrIdempotencyInProgress
		}
		resp := *rec.response
		resp.Body = append([]byte(nil), rec.response.Body...)
		return &resp, nil
	}

	b.records[recordKey(path, key)] = &memoryRecord{
		fingerprint: fingerprint,
		expiresAt:   now.Add(lease),
	}
	return nil, nil
}

func (b *MemoryBackend) Complete(ctx context.Context, path, key string, resp Response, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.records[recordKey(path, key)]
	if !ok || rec.response != nil {
		return ErrReservationNotFound
	}
	stored := resp
	stored.Body = append([]byte(nil), resp.Body...)
	rec.response = &stored
	rec.expiresAt = b.now().Add(ttl)
	return nil
}

func (b *MemoryBackend) Release(ctx context.Context, path, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rec, ok := b.records[recordKey(path, key)]; ok && rec.response == nil {
		delete(b.records, recordKey(path, key))
	}
	return nil
}

func (b *MemoryBackend) Name() string {
	return config.IdempotencyBackendMemory
}

// Len returns the number of live records
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	b.sweep(now)
	n := 0
	for _, rec := range b.records {
		if now.Before(rec.expiresAt) {
			n++
		}
	}
	return n
}

// sweep drops expired records at most once per sweepInterval. Caller holds mu.
func (b *MemoryBackend) sweep(now time.Time) {
	if now.Before(b.nextSweep) {
		return
	}
	for k, rec := range b.records {
		if !now.Before(rec.expiresAt) {
			delete(b.records, k)
		}
	}
	b.nextSweep = now.Add(sweepInterval)
}

var _ Backend = (*MemoryBackend)(nil)
