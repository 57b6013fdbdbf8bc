package wallet

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/escrowledger/internal/repository"
	"github.com/nkiryanov/escrowledger/internal/repository/postgres"
	"github.com/nkiryanov/escrowledger/internal/testutil"
)

func TestWallet(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(s *Service, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewService(storage.Wallet()), storage)
		})
	}

	t.Run("empty wallet", func(t *testing.T) {
		inTx(t, func(s *Service, _ repository.Storage) {
			profileID := uuid.New()

			w, err := s.GetWallet(t.Context(), profileID)

			require.NoError(t, err)
			require.Equal(t, profileID, w.ProfileID)
			require.True(t, w.AvailableBalance.IsZero())

			entries, err := s.ListEntries(t.Context(), profileID, 0)
			require.NoError(t, err)
			require.Empty(t, entries)
		})
	})

	t.Run("wallet with entries", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage) {
			profileID := uuid.New()
			_, err := storage.Wallet().CreditPending(t.Context(), profileID, decimal.NewFromInt(90), "escrow:proposal:p-1")
			require.NoError(t, err)

			w, err := s.GetWallet(t.Context(), profileID)
			require.NoError(t, err)
			require.True(t, w.PendingBalance.Equal(decimal.NewFromInt(90)))

			entries, err := s.ListEntries(t.Context(), profileID, 500)
			require.NoError(t, err)
			require.Len(t, entries, 1)
		})
	})
}
