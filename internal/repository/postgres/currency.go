package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/models"
)

type CurrencyRepo struct {
	DB DBTX
}

const createCurrencyTransaction = `-- name: CreateCurrencyTransaction
INSERT INTO currency_transactions (id, profile_id, amount, external_reference, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (external_reference) DO NOTHING
`

func (r *CurrencyRepo) CreateTransaction(ctx context.Context, t models.CurrencyTransaction) (bool, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	tag, err := r.DB.Exec(ctx, createCurrencyTransaction, t.ID, t.ProfileID, t.Amount, t.ExternalReference, t.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

const addCurrencyBalance = `-- name: AddCurrencyBalance
INSERT INTO currency_balances AS b (profile_id, balance)
VALUES ($1, $2)
ON CONFLICT (profile_id) DO UPDATE
SET balance = b.balance + EXCLUDED.balance,
    updated_at = clock_timestamp()
RETURNING profile_id, balance, updated_at
`

func (r *CurrencyRepo) AddBalance(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) (models.CurrencyBalance, error) {
	if !amount.IsPositive() {
		return models.CurrencyBalance{}, apperrors.ErrAmountInvalid
	}

	rows, _ := r.DB.Query(ctx, addCurrencyBalance, profileID, amount)
	b, err := pgx.CollectOneRow(rows, rowToCurrencyBalance)
	if err != nil {
		return b, fmt.Errorf("db error: %w", err)
	}

	return b, nil
}

const getCurrencyBalance = `-- name: GetCurrencyBalance
SELECT profile_id, balance, updated_at FROM currency_balances
WHERE profile_id = $1
`

func (r *CurrencyRepo) GetBalance(ctx context.Context, profileID uuid.UUID) (models.CurrencyBalance, error) {
	rows, _ := r.DB.Query(ctx, getCurrencyBalance, profileID)
	b, err := pgx.CollectOneRow(rows, rowToCurrencyBalance)

	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, pgx.ErrNoRows):
		return b, apperrors.ErrCurrencyBalanceNotFound
	default:
		return b, fmt.Errorf("db error: %w", err)
	}
}

const listCurrencyTransactions = `-- name: ListCurrencyTransactions
SELECT id, profile_id, amount, external_reference, created_at FROM currency_transactions
WHERE profile_id = $1
ORDER BY created_at DESC
`

func (r *CurrencyRepo) ListTransactions(ctx context.Context, profileID uuid.UUID) ([]models.CurrencyTransaction, error) {
	rows, _ := r.DB.Query(ctx, listCurrencyTransactions, profileID)
	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CurrencyTransaction, error) {
		var t models.CurrencyTransaction
		err := row.Scan(&t.ID, &t.ProfileID, &t.Amount, &t.ExternalReference, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return txs, nil
}

func rowToCurrencyBalance(row pgx.CollectableRow) (models.CurrencyBalance, error) {
	var b models.CurrencyBalance
	err := row.Scan(&b.ProfileID, &b.Balance, &b.UpdatedAt)
	return b, err
}
