package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/models"
)

type WalletRepo struct {
	DB DBTX
}

const walletColumns = `profile_id, pending_balance, available_balance, total_earned, total_withdrawn, created_at, updated_at`

const creditPending = `-- name: CreditPending
INSERT INTO wallets AS w (profile_id, pending_balance)
VALUES ($1, $2)
ON CONFLICT (profile_id) DO UPDATE
SET pending_balance = w.pending_balance + EXCLUDED.pending_balance,
    updated_at = clock_timestamp()
RETURNING ` + walletColumns

func (r *WalletRepo) CreditPending(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, reference string) (models.Wallet, error) {
	return r.mutate(ctx, creditPending, models.EntryCreditPending, profileID, amount, reference)
}

const moveToAvailable = `-- name: MoveToAvailable
INSERT INTO wallets AS w (profile_id, available_balance, total_earned)
VALUES ($1, $2, $2)
ON CONFLICT (profile_id) DO UPDATE
SET pending_balance = GREATEST(0, w.pending_balance - EXCLUDED.available_balance),
    available_balance = w.available_balance + EXCLUDED.available_balance,
    total_earned = w.total_earned + EXCLUDED.available_balance,
    updated_at = clock_timestamp()
RETURNING ` + walletColumns

func (r *WalletRepo) MoveToAvailable(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, reference string) (models.Wallet, error) {
	return r.mutate(ctx, moveToAvailable, models.EntryMoveToAvailable, profileID, amount, reference)
}

const debitAvailable = `-- name: DebitAvailable
UPDATE wallets
SET available_balance = available_balance - $2,
    total_withdrawn = total_withdrawn + $2,
    updated_at = clock_timestamp()
WHERE profile_id = $1 AND available_balance >= $2
RETURNING ` + walletColumns

// No row means either no wallet or not enough funds; both are insufficient balance for the caller
func (r *WalletRepo) DebitAvailable(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, reference string) (models.Wallet, error) {
	w, err := r.mutate(ctx, debitAvailable, models.EntryDebitAvailable, profileID, amount, reference)
	if errors.Is(err, apperrors.ErrWalletNotFound) {
		return w, apperrors.ErrBalanceInsufficient
	}
	return w, err
}

const refundAvailable = `-- name: RefundAvailable
UPDATE wallets
SET available_balance = available_balance + $2,
    total_withdrawn = GREATEST(0, total_withdrawn - $2),
    updated_at = clock_timestamp()
WHERE profile_id = $1
RETURNING ` + walletColumns

func (r *WalletRepo) RefundAvailable(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, reference string) (models.Wallet, error) {
	return r.mutate(ctx, refundAvailable, models.EntryRefundAvailable, profileID, amount, reference)
}

const createEntry = `-- name: CreateWalletEntry
INSERT INTO wallet_entries (id, profile_id, kind, amount, reference)
VALUES ($1, $2, $3, $4, $5)
`

// Apply one balance statement and record it in wallet_entries
func (r *WalletRepo) mutate(ctx context.Context, query string, kind string, profileID uuid.UUID, amount decimal.Decimal, reference string) (models.Wallet, error) {
	if !amount.IsPositive() {
		return models.Wallet{}, apperrors.ErrAmountInvalid
	}

	rows, _ := r.DB.Query(ctx, query, profileID, amount)
	w, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		return w, apperrors.ErrWalletNotFound
	default:
		return w, fmt.Errorf("db error: %w", err)
	}

	_, err = r.DB.Exec(ctx, createEntry, uuid.New(), profileID, kind, amount, reference)
	if err != nil {
		return w, fmt.Errorf("db error: %w", err)
	}

	return w, nil
}

const getWallet = `-- name: GetWallet
SELECT ` + walletColumns + ` FROM wallets
WHERE profile_id = $1
`

func (r *WalletRepo) GetWallet(ctx context.Context, profileID uuid.UUID, forUpdate bool) (models.Wallet, error) {
	query := getWallet
	if forUpdate {
		query += "FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, profileID)
	w, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return w, nil
	case errors.Is(err, pgx.ErrNoRows):
		return w, apperrors.ErrWalletNotFound
	default:
		return w, fmt.Errorf("db error: %w", err)
	}
}

const listEntries = `-- name: ListWalletEntries
SELECT id, profile_id, kind, amount, reference, created_at FROM wallet_entries
WHERE profile_id = $1
ORDER BY created_at DESC, id
LIMIT $2
`

func (r *WalletRepo) ListEntries(ctx context.Context, profileID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	rows, _ := r.DB.Query(ctx, listEntries, profileID, limit)
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.WalletEntry, error) {
		var e models.WalletEntry
		err := row.Scan(&e.ID, &e.ProfileID, &e.Kind, &e.Amount, &e.Reference, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

func rowToWallet(row pgx.CollectableRow) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ProfileID, &w.PendingBalance, &w.AvailableBalance, &w.TotalEarned, &w.TotalWithdrawn, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}
