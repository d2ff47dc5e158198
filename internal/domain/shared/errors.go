package shared

import "errors"

var (
	// ErrInsufficientFunds is returned when a hold or debit exceeds the available balance
	ErrInsufficientFunds = errors.New("insufficient available balance")
	// ErrInvalidStateTransition is returned when a request is not PENDING
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrApprovalInProgress is returned when another reviewer holds the approval claim
	ErrApprovalInProgress = errors.New("approval already in progress")
	// ErrMissingIdempotencyKey is returned when a route requires a key and none was sent
	ErrMissingIdempotencyKey = errors.New("missing idempotency key")
	// ErrInvalidIdempotencyKey is returned when the key length is out of bounds
	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")
	// ErrIdempotencyInProgress is returned when the same key is still being executed
	ErrIdempotencyInProgress = errors.New("request with this idempotency key is in progress")
	// ErrIdempotencyKeyReused is returned when a key is replayed with a different request body
	ErrIdempotencyKeyReused = errors.New("idempotency key reused with a different request")
	// ErrExternalTransferFailure leaves the request PENDING and retryable
	ErrExternalTransferFailure = errors.New("external transfer failed")
	// ErrStorage marks failures of the underlying store
	ErrStorage = errors.New("storage error")

	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidFee       = errors.New("fee must be zero or positive and below the amount")
	ErrInvalidCurrency  = errors.New("currency must be a 3 to 10 character code")
	ErrInvalidEntryType = errors.New("invalid entry type")
	ErrInvalidUserID    = errors.New("user id cannot be empty")
	ErrInvalidActor     = errors.New("actor id cannot be empty")
	ErrReasonRequired   = errors.New("reason cannot be empty")
	ErrHoldNotFound     = errors.New("no outstanding hold for reference")
)
