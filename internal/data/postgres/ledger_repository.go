package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const ledgerEntryColumns = `id, user_id, currency, amount::text, type, status, reference_id, actor_id, reason, created_at`

// LedgerRepository implements ledger.Repository over the append-only ledger_entries table
type LedgerRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLedgerRepository creates a pool-backed ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) *LedgerRepository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *LedgerRepository) WithTx(tx pgx.Tx) *LedgerRepository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append inserts one entry. Amounts travel as text to keep NUMERIC precision.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, user_id, currency, amount, type, status, reference_id, actor_id, reason, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Currency,
		entry.Amount.String(),
		entry.Type,
		entry.Status,
		entry.ReferenceID,
		entry.ActorID,
		entry.Reason,
		entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateEntry{ID: entry.ID.String()}
		}
		r.logger.Error("Failed to append ledger entry",
			"entry_id", entry.ID.String(),
			"entry_type", string(entry.Type),
			"error", err,
		)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// ListByAccount returns all entries of the account in write order
func (r *LedgerRepository) ListByAccount(ctx context.Context, key ledger.AccountKey) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerEntryColumns + `
		FROM ledger_entries
		WHERE user_id = $1 AND currency = $2
		ORDER BY seq ASC
	`
	return r.list(ctx, "list ledger entries", query, key.UserID, key.Currency)
}

// ListByReference returns the account's entries tagged with referenceID
func (r *LedgerRepository) ListByReference(ctx context.Context, key ledger.AccountKey, referenceID string) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerEntryColumns + `
		FROM ledger_entries
		WHERE user_id = $1 AND currency = $2 AND reference_id = $3
		ORDER BY seq ASC
	`
	return r.list(ctx, "list ledger entries by reference", query, key.UserID, key.Currency, referenceID)
}

// ListHistory pages through the account newest first
func (r *LedgerRepository) ListHistory(ctx context.Context, key ledger.AccountKey, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerEntryColumns + `
		FROM ledger_entries
		WHERE user_id = $1 AND currency = $2
		ORDER BY seq DESC
		LIMIT $3 OFFSET $4
	`
	return r.list(ctx, "list ledger history", query, key.UserID, key.Currency, limit, offset)
}

// CountByAccount counts the account's entries
func (r *LedgerRepository) CountByAccount(ctx context.Context, key ledger.AccountKey) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE user_id = $1 AND currency = $2
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, key.UserID, key.Currency).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries",
			"user_id", key.UserID,
			"currency", key.Currency,
			"error", err,
		)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

func (r *LedgerRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var (
		entry  ledger.Entry
		amount string
	)
	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Currency,
		&amount,
		&entry.Type,
		&entry.Status,
		&entry.ReferenceID,
		&entry.ActorID,
		&entry.Reason,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return &entry, nil
}
