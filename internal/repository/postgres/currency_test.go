package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/models"
	"github.com/nkiryanov/escrowledger/internal/repository"
	"github.com/nkiryanov/escrowledger/internal/testutil"
)

func TestCurrency(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			fn(innerTx, NewStorage(innerTx))
		})
	}

	dec := decimal.RequireFromString

	t.Run("CreateTransaction", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			profileID := uuid.New()
			txn := models.CurrencyTransaction{ProfileID: profileID, Amount: dec("500"), ExternalReference: "pi_1"}

			created, err := storage.Currency().CreateTransaction(t.Context(), txn)
			require.NoError(t, err)
			require.True(t, created)

			created, err = storage.Currency().CreateTransaction(t.Context(), txn)
			require.NoError(t, err)
			require.False(t, created, "same external reference has to be skipped")

			list, err := storage.Currency().ListTransactions(t.Context(), profileID)
			require.NoError(t, err)
			require.Len(t, list, 1)
			require.Equal(t, "pi_1", list[0].ExternalReference)
		})
	})

	t.Run("Balance", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			profileID := uuid.New()

			_, err := storage.Currency().GetBalance(t.Context(), profileID)
			require.ErrorIs(t, err, apperrors.ErrCurrencyBalanceNotFound)

			_, err = storage.Currency().AddBalance(t.Context(), profileID, dec("500"))
			require.NoError(t, err)
			b, err := storage.Currency().AddBalance(t.Context(), profileID, dec("250"))
			require.NoError(t, err)
			require.True(t, b.Balance.Equal(dec("750")))

			got, err := storage.Currency().GetBalance(t.Context(), profileID)
			require.NoError(t, err)
			require.True(t, got.Balance.Equal(dec("750")))

			_, err = storage.Currency().AddBalance(t.Context(), profileID, decimal.Zero)
			require.ErrorIs(t, err, apperrors.ErrAmountInvalid)
		})
	})
}
