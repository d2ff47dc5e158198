package accounting

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fundgate/ledger-core/internal/data/memory"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/domain/uow"
	"github.com/fundgate/ledger-core/internal/platform/transfer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testKey = ledger.AccountKey{UserID: "user-1", Currency: "USD"}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeTransfers records gateway calls and fails for selected requests
type fakeTransfers struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
	sent  map[uuid.UUID]decimal.Decimal
	fail  map[uuid.UUID]error
}

func newFakeTransfers() *fakeTransfers {
	return &fakeTransfers{
		calls: make(map[uuid.UUID]int),
		sent:  make(map[uuid.UUID]decimal.Decimal),
		fail:  make(map[uuid.UUID]error),
	}
}

func (f *fakeTransfers) ExecuteTransfer(ctx context.Context, order transfer.Order) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[order.RequestID]++
	if err := f.fail[order.RequestID]; err != nil {
		return "", err
	}
	f.sent[order.RequestID] = order.Amount
	return "0x" + order.RequestID.String()[:8], nil
}

func (f *fakeTransfers) failFor(id uuid.UUID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[id] = err
}

func (f *fakeTransfers) callsFor(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeTransfers) sentFor(id uuid.UUID) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[id]
}

// flakyTransactor fails every ledger append while failAppends is set
type flakyTransactor struct {
	inner       uow.Transactor
	failAppends atomic.Bool
}

type failingEntries struct {
	ledger.Repository
}

func (failingEntries) Append(ctx context.Context, entry *ledger.Entry) error {
	return errors.New("connection reset by peer")
}

func (f *flakyTransactor) InAccount(ctx context.Context, key ledger.AccountKey, fn func(ctx context.Context, scope uow.Scope) error) error {
	return f.inner.InAccount(ctx, key, func(ctx context.Context, scope uow.Scope) error {
		if f.failAppends.Load() {
			scope.Entries = failingEntries{Repository: scope.Entries}
		}
		return fn(ctx, scope)
	})
}

type fixture struct {
	store      *memory.Store
	ledger     *LedgerStore
	escrow     *EscrowManager
	workflow   *Workflow
	transfers  *fakeTransfers
	transactor *flakyTransactor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := newTestLogger()
	store := memory.NewStore()
	transactor := &flakyTransactor{inner: store.Transactor()}
	transfers := newFakeTransfers()

	ledgerStore := NewLedgerStore(logger, store.Ledger())
	escrow := NewEscrowManager(logger, transactor, ledgerStore)
	workflow := NewWorkflow(logger, transactor, store.Funding(), ledgerStore, escrow, transfers, Options{
		TransferTimeout: time.Second,
		ClaimLease:      5 * time.Second,
		FinalizeRetries: 2,
		RetryBackoff:    time.Millisecond,
	})

	return &fixture{
		store:      store,
		ledger:     ledgerStore,
		escrow:     escrow,
		workflow:   workflow,
		transfers:  transfers,
		transactor: transactor,
	}
}

func (f *fixture) fund(t *testing.T, key ledger.AccountKey, amounts ...string) {
	t.Helper()
	for _, a := range amounts {
		_, err := f.ledger.AddEntry(context.Background(), AddEntryParams{
			Key:     key,
			Amount:  dec(a),
			Type:    shared.EntryTypeDeposit,
			ActorID: "seed",
		})
		require.NoError(t, err)
	}
}

func (f *fixture) balance(t *testing.T, key ledger.AccountKey) ledger.Balance {
	t.Helper()
	b, err := f.ledger.ComputeBalance(context.Background(), key)
	require.NoError(t, err)
	return b
}

func (f *fixture) entryCount(t *testing.T, key ledger.AccountKey) int64 {
	t.Helper()
	n, err := f.store.Ledger().CountByAccount(context.Background(), key)
	require.NoError(t, err)
	return n
}

func (f *fixture) submitWithdrawal(t *testing.T, key ledger.AccountKey, amount string) uuid.UUID {
	t.Helper()
	req, err := f.workflow.SubmitWithdrawal(context.Background(), SubmitParams{
		Key:         key,
		Amount:      dec(amount),
		Destination: "0xdest",
	})
	require.NoError(t, err)
	return req.ID
}
