package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/fundgate/ledger-core/internal/domain/uow"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountTransactor_InAccount(t *testing.T) {
	ctx := context.Background()
	key := ledger.AccountKey{UserID: "user-1", Currency: "USDT"}
	lockQuery := `SELECT pg_advisory_xact_lock\(hashtextextended\(\$1, 0\)\)`

	t.Run("success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		tr := &AccountTransactor{db: mock, logger: newTestLogger()}

		mock.ExpectBegin()
		mock.ExpectExec(lockQuery).WithArgs("user-1|USDT").WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery(`SELECT COUNT`).WithArgs("user-1", "USDT").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
		mock.ExpectCommit()

		var count int64
		err = tr.InAccount(ctx, key, func(ctx context.Context, scope uow.Scope) error {
			var err error
			count, err = scope.Entries.CountByAccount(ctx, key)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fn error rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		tr := &AccountTransactor{db: mock, logger: newTestLogger()}
		fnErr := errors.New("insufficient")

		mock.ExpectBegin()
		mock.ExpectExec(lockQuery).WithArgs("user-1|USDT").WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectRollback()

		err = tr.InAccount(ctx, key, func(ctx context.Context, scope uow.Scope) error { return fnErr })
		assert.ErrorIs(t, err, fnErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		tr := &AccountTransactor{db: mock, logger: newTestLogger()}

		mock.ExpectBegin()
		mock.ExpectExec(lockQuery).WithArgs("user-1|USDT").WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		called := false
		err = tr.InAccount(ctx, key, func(ctx context.Context, scope uow.Scope) error { called = true; return nil })
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to lock account")
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
