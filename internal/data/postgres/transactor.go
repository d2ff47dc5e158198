package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/outbox"
	"github.com/fundgate/ledger-core/internal/domain/uow"
	"github.com/fundgate/ledger-core/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const accountLockQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

// AccountTransactor implements uow.Transactor. Each unit of work runs in one
// transaction holding a transaction-scoped advisory lock on the account key,
// so check-then-append sequences on the same account never interleave.
type AccountTransactor struct {
	db     persistence.TxBeginner
	logger *slog.Logger
}

// NewAccountTransactor creates a transactor over the pool
func NewAccountTransactor(logger *slog.Logger, db *persistence.PostgresDB) *AccountTransactor {
	return &AccountTransactor{
		db:     db.Pool(),
		logger: logger,
	}
}

// InAccount runs fn with repositories bound to a locked transaction for key
func (t *AccountTransactor) InAccount(ctx context.Context, key ledger.AccountKey, fn func(ctx context.Context, scope uow.Scope) error) error {
	return persistence.RunInTx(ctx, t.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, accountLockQuery, key.String()); err != nil {
			t.logger.Error("Failed to lock account",
				"user_id", key.UserID,
				"currency", key.Currency,
				"error", err,
			)
			return fmt.Errorf("failed to lock account: %w", err)
		}

		scope := uow.Scope{
			Entries:  &LedgerRepository{querier: tx, logger: t.logger},
			Requests: &FundingRepository{querier: tx, logger: t.logger},
			Outbox:   &OutboxRepository{querier: tx, logger: t.logger},
		}
		return fn(ctx, scope)
	})
}

var (
	_ ledger.Repository  = (*LedgerRepository)(nil)
	_ funding.Repository = (*FundingRepository)(nil)
	_ outbox.Repository  = (*OutboxRepository)(nil)
	_ uow.Transactor     = (*AccountTransactor)(nil)
)
