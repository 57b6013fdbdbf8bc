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

func TestWallet(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			fn(innerTx, NewStorage(innerTx))
		})
	}

	dec := decimal.RequireFromString

	t.Run("CreditPending", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			profileID := uuid.New()

			t.Run("creates wallet if absent", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					w, err := storage.Wallet().CreditPending(t.Context(), profileID, dec("90.00"), "escrow:proposal:p-1")

					require.NoError(t, err)
					require.Equal(t, profileID, w.ProfileID)
					require.True(t, w.PendingBalance.Equal(dec("90")), "pending has to be credited")
					require.True(t, w.AvailableBalance.IsZero())
					require.True(t, w.TotalEarned.IsZero(), "total earned grows on release only")
				})
			})

			t.Run("adds to existing wallet", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().CreditPending(t.Context(), profileID, dec("10.50"), "a")
					require.NoError(t, err)

					w, err := storage.Wallet().CreditPending(t.Context(), profileID, dec("0.25"), "b")

					require.NoError(t, err)
					require.True(t, w.PendingBalance.Equal(dec("10.75")))
				})
			})

			t.Run("non positive amount", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().CreditPending(t.Context(), profileID, decimal.Zero, "a")

					require.ErrorIs(t, err, apperrors.ErrAmountInvalid)
				})
			})
		})
	})

	t.Run("MoveToAvailable", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			profileID := uuid.New()
			_, err := storage.Wallet().CreditPending(t.Context(), profileID, dec("90"), "escrow:proposal:p-1")
			require.NoError(t, err)

			t.Run("moves pending to available", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					w, err := storage.Wallet().MoveToAvailable(t.Context(), profileID, dec("90"), "escrow:proposal:p-1")

					require.NoError(t, err)
					require.True(t, w.PendingBalance.IsZero())
					require.True(t, w.AvailableBalance.Equal(dec("90")))
					require.True(t, w.TotalEarned.Equal(dec("90")))
				})
			})

			t.Run("pending never goes negative", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					w, err := storage.Wallet().MoveToAvailable(t.Context(), profileID, dec("100"), "escrow:proposal:p-1")

					require.NoError(t, err)
					require.True(t, w.PendingBalance.IsZero(), "pending has to be floored at zero")
					require.True(t, w.AvailableBalance.Equal(dec("100")))
				})
			})

			t.Run("creates wallet if absent", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					w, err := storage.Wallet().MoveToAvailable(t.Context(), uuid.New(), dec("5"), "x")

					require.NoError(t, err)
					require.True(t, w.PendingBalance.IsZero())
					require.True(t, w.AvailableBalance.Equal(dec("5")))
					require.True(t, w.TotalEarned.Equal(dec("5")))
				})
			})
		})
	})

	t.Run("DebitAvailable", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			profileID := uuid.New()
			_, err := storage.Wallet().MoveToAvailable(t.Context(), profileID, dec("100"), "seed")
			require.NoError(t, err)

			t.Run("debit ok", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					w, err := storage.Wallet().DebitAvailable(t.Context(), profileID, dec("70"), "withdrawal:1")

					require.NoError(t, err)
					require.True(t, w.AvailableBalance.Equal(dec("30")))
					require.True(t, w.TotalWithdrawn.Equal(dec("70")))
				})
			})

			t.Run("debit whole balance", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					w, err := storage.Wallet().DebitAvailable(t.Context(), profileID, dec("100"), "withdrawal:1")

					require.NoError(t, err)
					require.True(t, w.AvailableBalance.IsZero())
				})
			})

			t.Run("insufficient funds", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().DebitAvailable(t.Context(), profileID, dec("100.01"), "withdrawal:1")
					require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)

					w, err := storage.Wallet().GetWallet(t.Context(), profileID, false)
					require.NoError(t, err)
					require.True(t, w.AvailableBalance.Equal(dec("100")), "balance has to stay unchanged")
				})
			})

			t.Run("no wallet", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().DebitAvailable(t.Context(), uuid.New(), dec("1"), "withdrawal:1")

					require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)
				})
			})
		})
	})

	t.Run("RefundAvailable", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			profileID := uuid.New()
			_, err := storage.Wallet().MoveToAvailable(t.Context(), profileID, dec("100"), "seed")
			require.NoError(t, err)
			_, err = storage.Wallet().DebitAvailable(t.Context(), profileID, dec("40"), "withdrawal:1")
			require.NoError(t, err)

			t.Run("refund restores balance", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					w, err := storage.Wallet().RefundAvailable(t.Context(), profileID, dec("40"), "withdrawal:1")

					require.NoError(t, err)
					require.True(t, w.AvailableBalance.Equal(dec("100")))
					require.True(t, w.TotalWithdrawn.IsZero())
				})
			})

			t.Run("total withdrawn floored at zero", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					w, err := storage.Wallet().RefundAvailable(t.Context(), profileID, dec("50"), "withdrawal:1")

					require.NoError(t, err)
					require.True(t, w.TotalWithdrawn.IsZero())
					require.True(t, w.AvailableBalance.Equal(dec("110")))
				})
			})

			t.Run("no wallet", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().RefundAvailable(t.Context(), uuid.New(), dec("1"), "withdrawal:1")

					require.ErrorIs(t, err, apperrors.ErrWalletNotFound)
				})
			})
		})
	})

	t.Run("GetWallet and ListEntries", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			profileID := uuid.New()

			_, err := storage.Wallet().GetWallet(t.Context(), profileID, false)
			require.ErrorIs(t, err, apperrors.ErrWalletNotFound)

			_, err = storage.Wallet().CreditPending(t.Context(), profileID, dec("10"), "escrow:proposal:p-1")
			require.NoError(t, err)
			_, err = storage.Wallet().MoveToAvailable(t.Context(), profileID, dec("10"), "escrow:proposal:p-1")
			require.NoError(t, err)

			w, err := storage.Wallet().GetWallet(t.Context(), profileID, true)
			require.NoError(t, err)
			require.True(t, w.AvailableBalance.Equal(dec("10")))

			entries, err := storage.Wallet().ListEntries(t.Context(), profileID, 10)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			require.Equal(t, models.EntryMoveToAvailable, entries[0].Kind, "newest entry first")
			require.Equal(t, models.EntryCreditPending, entries[1].Kind)
			require.Equal(t, "escrow:proposal:p-1", entries[1].Reference)

			limited, err := storage.Wallet().ListEntries(t.Context(), profileID, 1)
			require.NoError(t, err)
			require.Len(t, limited, 1)
		})
	})
}
