// Package accounting implements the ledger core: the append-only entry store,
// escrow holds for withdrawals and the approval workflow that gates money
// movement behind administrative review.
package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/platform/metrics"
	"github.com/shopspring/decimal"
)

// AddEntryParams describes one entry to append
type AddEntryParams struct {
	Key         ledger.AccountKey
	Amount      decimal.Decimal
	Type        shared.EntryType
	ReferenceID string
	ActorID     string
	Reason      string
}

// LedgerStore appends entries and derives balances from them.
// It trusts its caller: sufficiency checks belong to EscrowManager.
type LedgerStore struct {
	repo   ledger.Repository
	logger *slog.Logger
}

// NewLedgerStore creates a store over repo
func NewLedgerStore(logger *slog.Logger, repo ledger.Repository) *LedgerStore {
	return &LedgerStore{
		repo:   repo,
		logger: logger,
	}
}

// WithRepository returns a store bound to repo, typically a unit of work's scope
func (s *LedgerStore) WithRepository(repo ledger.Repository) *LedgerStore {
	return &LedgerStore{
		repo:   repo,
		logger: s.logger,
	}
}

// AddEntry appends one APPROVED entry
func (s *LedgerStore) AddEntry(ctx context.Context, p AddEntryParams) (*ledger.Entry, error) {
	entry, err := ledger.NewEntry(p.Key, p.Amount, p.Type, p.ReferenceID, p.ActorID, p.Reason)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to append ledger entry",
			"user_id", p.Key.UserID,
			"currency", p.Key.Currency,
			"entry_type", string(p.Type),
			"reference_id", p.ReferenceID,
			"error", err,
		)
		return nil, storageError("append entry", err)
	}

	metrics.LedgerEntriesWritten.WithLabelValues(string(entry.Type)).Inc()
	s.logger.Debug("Ledger entry appended",
		"entry_id", entry.ID.String(),
		"user_id", entry.UserID,
		"currency", entry.Currency,
		"entry_type", string(entry.Type),
		"amount", entry.Amount.String(),
	)
	return entry, nil
}

// ComputeBalance folds every entry of the account
func (s *LedgerStore) ComputeBalance(ctx context.Context, key ledger.AccountKey) (ledger.Balance, error) {
	if err := key.Validate(); err != nil {
		return ledger.Balance{}, err
	}

	entries, err := s.repo.ListByAccount(ctx, key)
	if err != nil {
		return ledger.Balance{}, storageError("list account entries", err)
	}
	return ledger.Fold(key, entries), nil
}

// OutstandingHold returns the amount still held under referenceID
func (s *LedgerStore) OutstandingHold(ctx context.Context, key ledger.AccountKey, referenceID string) (decimal.Decimal, error) {
	entries, err := s.repo.ListByReference(ctx, key, referenceID)
	if err != nil {
		return decimal.Zero, storageError("list reference entries", err)
	}
	return ledger.OutstandingHold(entries, referenceID), nil
}

// History returns one page of entries, newest first, and the total entry count
func (s *LedgerStore) History(ctx context.Context, key ledger.AccountKey, page, perPage int) ([]*ledger.Entry, int64, error) {
	if err := key.Validate(); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	entries, err := s.repo.ListHistory(ctx, key, perPage, offset)
	if err != nil {
		return nil, 0, storageError("list history", err)
	}

	total, err := s.repo.CountByAccount(ctx, key)
	if err != nil {
		return nil, 0, storageError("count entries", err)
	}

	return entries, total, nil
}

var domainErrors = []error{
	shared.ErrStorage,
	shared.ErrInsufficientFunds,
	shared.ErrInvalidStateTransition,
	shared.ErrApprovalInProgress,
	shared.ErrExternalTransferFailure,
	shared.ErrInvalidAmount,
	shared.ErrInvalidFee,
	shared.ErrInvalidCurrency,
	shared.ErrInvalidEntryType,
	shared.ErrInvalidUserID,
	shared.ErrInvalidActor,
	shared.ErrReasonRequired,
	shared.ErrHoldNotFound,
	funding.ErrInvalidKind,
	funding.ErrRequestNotFound{},
	funding.ErrDuplicateRequest{},
	context.Canceled,
	context.DeadlineExceeded,
}

// storageError marks err as shared.ErrStorage unless it already carries a domain meaning
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: failed to %s: %w", shared.ErrStorage, op, err)
}
