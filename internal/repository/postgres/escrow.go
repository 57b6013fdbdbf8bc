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

type EscrowRepo struct {
	DB DBTX
}

const escrowColumns = `id, kind, deal_id, gross_amount, recipient_profile_id, payment_status,
	platform_commission, recipient_amount, external_payment_id, created_at, modified_at`

// Create escrow transaction
// If transaction for the deal already exists return it as is
const createEscrow = `-- name: CreateEscrow
WITH insert_escrow AS (
	INSERT INTO escrow_transactions (id, kind, deal_id, gross_amount, recipient_profile_id, payment_status, created_at, modified_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	ON CONFLICT (kind, deal_id) DO NOTHING
	RETURNING ` + escrowColumns + `
)
SELECT ` + escrowColumns + ` FROM insert_escrow
UNION ALL
SELECT ` + escrowColumns + ` FROM escrow_transactions WHERE kind = $2 AND deal_id = $3
LIMIT 1
`

func (r *EscrowRepo) CreateEscrow(ctx context.Context, t models.EscrowTransaction) (models.EscrowTransaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.PaymentStatus == "" {
		t.PaymentStatus = models.PaymentStatusPending
	}

	rows, _ := r.DB.Query(ctx, createEscrow, t.ID, t.Kind, t.DealID, t.GrossAmount, t.RecipientProfileID, t.PaymentStatus, time.Now())
	got, err := pgx.CollectOneRow(rows, rowToEscrow)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Concurrent insert committed after the statement snapshot was taken
		got, err = r.GetEscrow(ctx, t.Ref(), false)
		if err != nil {
			return got, err
		}
		return got, apperrors.ErrEscrowAlreadyExists
	case err != nil:
		return got, fmt.Errorf("db error: %w", err)
	case got.ID != t.ID:
		return got, apperrors.ErrEscrowAlreadyExists
	default:
		return got, nil
	}
}

const getEscrow = `-- name: GetEscrow
SELECT ` + escrowColumns + ` FROM escrow_transactions
WHERE kind = $1 AND deal_id = $2
`

func (r *EscrowRepo) GetEscrow(ctx context.Context, ref models.EscrowRef, forUpdate bool) (models.EscrowTransaction, error) {
	query := getEscrow
	if forUpdate {
		query += "FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, ref.Kind, ref.DealID)
	t, err := pgx.CollectOneRow(rows, rowToEscrow)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, apperrors.ErrEscrowNotFound
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

// The status guard is repeated in SQL so the split can be written only once
const setPaid = `-- name: SetEscrowPaid
UPDATE escrow_transactions
SET payment_status = 'paid_escrow',
    platform_commission = $2,
    recipient_amount = $3,
    external_payment_id = NULLIF($4, ''),
    modified_at = clock_timestamp()
WHERE id = $1 AND payment_status = 'pending'
RETURNING ` + escrowColumns

func (r *EscrowRepo) SetPaid(ctx context.Context, id uuid.UUID, platformCommission, recipientAmount decimal.Decimal, paymentID string) (models.EscrowTransaction, error) {
	rows, _ := r.DB.Query(ctx, setPaid, id, platformCommission, recipientAmount, paymentID)
	return collectTransition(rows)
}

const setStatus = `-- name: SetEscrowStatus
UPDATE escrow_transactions
SET payment_status = $3,
    modified_at = clock_timestamp()
WHERE id = $1 AND payment_status = $2
RETURNING ` + escrowColumns

func (r *EscrowRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to string) (models.EscrowTransaction, error) {
	rows, _ := r.DB.Query(ctx, setStatus, id, from, to)
	return collectTransition(rows)
}

func collectTransition(rows pgx.Rows) (models.EscrowTransaction, error) {
	t, err := pgx.CollectOneRow(rows, rowToEscrow)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, apperrors.ErrEscrowStatusConflict
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

func rowToEscrow(row pgx.CollectableRow) (models.EscrowTransaction, error) {
	var t models.EscrowTransaction
	err := row.Scan(
		&t.ID, &t.Kind, &t.DealID, &t.GrossAmount, &t.RecipientProfileID, &t.PaymentStatus,
		&t.PlatformCommission, &t.RecipientAmount, &t.ExternalPaymentID, &t.CreatedAt, &t.ModifiedAt,
	)
	return t, err
}
