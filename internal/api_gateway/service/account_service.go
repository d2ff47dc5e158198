package service

import (
	"context"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
)

type AccountServiceImpl struct {
	store *accounting.LedgerStore
}

func NewAccountService(store *accounting.LedgerStore) *AccountServiceImpl {
	return &AccountServiceImpl{store: store}
}

func (s *AccountServiceImpl) GetBalance(ctx context.Context, userID, currency string) (ledger.Balance, error) {
	key, err := ledger.NewAccountKey(userID, currency)
	if err != nil {
		return ledger.Balance{}, err
	}
	return s.store.ComputeBalance(ctx, key)
}

func (s *AccountServiceImpl) GetHistory(ctx context.Context, userID, currency string, page, perPage int) ([]*ledger.Entry, int64, error) {
	key, err := ledger.NewAccountKey(userID, currency)
	if err != nil {
		return nil, 0, err
	}
	return s.store.History(ctx, key, page, perPage)
}

var _ AccountService = (*AccountServiceImpl)(nil)
