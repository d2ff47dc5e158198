// Package idempotency deduplicates mutating requests by (path, key).
//
// The first request carrying a key reserves it for a short lease; the response
// is stored when the handler finishes and replayed verbatim for every later
// request with the same key until the record expires. A reservation that is
// never completed frees the key when its lease runs out. Reservation is an atomic check-and-set
// in every backend, so concurrent duplicates never both execute.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrReservationNotFound is returned by Complete when the key is not reserved
var ErrReservationNotFound = errors.New("idempotency reservation not found")

// Response is a cached handler response
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Backend stores reservations and completed responses
type Backend interface {
	// Reserve claims (path, key). It returns (nil, nil) when the caller now owns
	// the key, the stored response when one is complete, shared.ErrIdempotencyInProgress
	// while another caller owns it and shared.ErrIdempotencyKeyReused when the
	// fingerprint differs from the one it was reserved with. The reservation
	// lapses after lease.
	Reserve(ctx context.Context, path, key, fingerprint string, lease time.Duration) (*Response, error)
	// Complete stores resp for a key reserved by the caller and keeps it for ttl
	Complete(ctx context.Context, path, key string, resp Response, ttl time.Duration) error
	// Release drops an uncompleted reservation
	Release(ctx context.Context, path, key string) error
	Name() string
}

// Fingerprint hashes a request body
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
