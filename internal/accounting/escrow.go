package accounting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/domain/uow"
	"github.com/fundgate/ledger-core/internal/platform/metrics"
	"github.com/shopspring/decimal"
)

// EscrowManager places and closes withdrawal holds.
//
// Every hold written under a reference is closed by exactly one
// WITHDRAWAL_RELEASE or WITHDRAWAL_COMPLETE for the same amount. The plain
// methods open their own account unit of work; the InScope variants join the
// caller's so the check and the write observe the same snapshot.
type EscrowManager struct {
	transactor uow.Transactor
	store      *LedgerStore
	logger     *slog.Logger
}

// NewEscrowManager creates an escrow manager
func NewEscrowManager(logger *slog.Logger, transactor uow.Transactor, store *LedgerStore) *EscrowManager {
	return &EscrowManager{
		transactor: transactor,
		store:      store,
		logger:     logger,
	}
}

// HoldFunds reserves amount against the available balance
func (m *EscrowManager) HoldFunds(ctx context.Context, key ledger.AccountKey, amount decimal.Decimal, referenceID, actorID string) (*ledger.Entry, error) {
	var entry *ledger.Entry
	err := m.transactor.InAccount(ctx, key, func(ctx context.Context, scope uow.Scope) error {
		var err error
		entry, err = m.HoldFundsInScope(ctx, scope, key, amount, referenceID, actorID)
		return err
	})
	if err != nil {
		return nil, storageError("hold funds", err)
	}
	return entry, nil
}

// HoldFundsInScope fails with shared.ErrInsufficientFunds and writes nothing
// when amount exceeds the available balance
func (m *EscrowManager) HoldFundsInScope(ctx context.Context, scope uow.Scope, key ledger.AccountKey, amount decimal.Decimal, referenceID, actorID string) (*ledger.Entry, error) {
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}

	store := m.store.WithRepository(scope.Entries)
	balance, err := store.ComputeBalance(ctx, key)
	if err != nil {
		metrics.EscrowHolds.WithLabelValues("error").Inc()
		return nil, err
	}

	if balance.AvailableBalance.LessThan(amount) {
		metrics.EscrowHolds.WithLabelValues("insufficient").Inc()
		m.logger.Info("Hold rejected",
			"user_id", key.UserID,
			"currency", key.Currency,
			"reference_id", referenceID,
			"available", balance.AvailableBalance.String(),
			"requested", amount.String(),
		)
		return nil, fmt.Errorf("%w: available %s, requested %s",
			shared.ErrInsufficientFunds, balance.AvailableBalance.String(), amount.String())
	}

	entry, err := store.AddEntry(ctx, AddEntryParams{
		Key:         key,
		Amount:      amount.Neg(),
		Type:        shared.EntryTypeWithdrawalHold,
		ReferenceID: referenceID,
		ActorID:     actorID,
	})
	if err != nil {
		metrics.EscrowHolds.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.EscrowHolds.WithLabelValues("placed").Inc()
	return entry, nil
}

// ReleaseFunds returns held funds to the available balance
func (m *EscrowManager) ReleaseFunds(ctx context.Context, key ledger.AccountKey, amount decimal.Decimal, referenceID, actorID, reason string) (*ledger.Entry, error) {
	var entry *ledger.Entry
	err := m.transactor.InAccount(ctx, key, func(ctx context.Context, scope uow.Scope) error {
		var err error
		entry, err = m.ReleaseFundsInScope(ctx, scope, key, amount, referenceID, actorID, reason)
		return err
	})
	if err != nil {
		return nil, storageError("release funds", err)
	}
	return entry, nil
}

// ReleaseFundsInScope writes a WITHDRAWAL_RELEASE for amount. A reason is required.
func (m *EscrowManager) ReleaseFundsInScope(ctx context.Context, scope uow.Scope, key ledger.AccountKey, amount decimal.Decimal, referenceID, actorID, reason string) (*ledger.Entry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.ErrReasonRequired
	}
	return m.closeHold(ctx, scope, key, amount, shared.EntryTypeWithdrawalRelease, referenceID, actorID, reason)
}

// CompleteHold closes a hold whose funds have left the platform
func (m *EscrowManager) CompleteHold(ctx context.Context, key ledger.AccountKey, amount decimal.Decimal, referenceID, actorID string) (*ledger.Entry, error) {
	var entry *ledger.Entry
	err := m.transactor.InAccount(ctx, key, func(ctx context.Context, scope uow.Scope) error {
		var err error
		entry, err = m.CompleteHoldInScope(ctx, scope, key, amount, referenceID, actorID)
		return err
	})
	if err != nil {
		return nil, storageError("complete hold", err)
	}
	return entry, nil
}

// CompleteHoldInScope writes a WITHDRAWAL_COMPLETE for amount
func (m *EscrowManager) CompleteHoldInScope(ctx context.Context, scope uow.Scope, key ledger.AccountKey, amount decimal.Decimal, referenceID, actorID string) (*ledger.Entry, error) {
	return m.closeHold(ctx, scope, key, amount, shared.EntryTypeWithdrawalComplete, referenceID, actorID, "")
}

// OutstandingHold returns the amount still held under referenceID
func (m *EscrowManager) OutstandingHold(ctx context.Context, key ledger.AccountKey, referenceID string) (decimal.Decimal, error) {
	return m.store.OutstandingHold(ctx, key, referenceID)
}

func (m *EscrowManager) closeHold(ctx context.Context, scope uow.Scope, key ledger.AccountKey, amount decimal.Decimal, entryType shared.EntryType, referenceID, actorID, reason string) (*ledger.Entry, error) {
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if referenceID == "" {
		return nil, shared.ErrHoldNotFound
	}

	store := m.store.WithRepository(scope.Entries)
	held, err := store.OutstandingHold(ctx, key, referenceID)
	if err != nil {
		return nil, err
	}
	if !held.IsPositive() {
		return nil, fmt.Errorf("%w: %s", shared.ErrHoldNotFound, referenceID)
	}
	if amount.GreaterThan(held) {
		return nil, fmt.Errorf("%w: %s exceeds outstanding hold %s", shared.ErrInvalidAmount, amount.String(), held.String())
	}

	entry, err := store.AddEntry(ctx, AddEntryParams{
		Key:         key,
		Amount:      amount,
		Type:        entryType,
		ReferenceID: referenceID,
		ActorID:     actorID,
		Reason:      reason,
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Hold closed",
		"user_id", key.UserID,
		"currency", key.Currency,
		"reference_id", referenceID,
		"entry_type", string(entryType),
		"amount", amount.String(),
	)
	return entry, nil
}
