package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/models"
)

type WithdrawalRepo struct {
	DB DBTX
}

const withdrawalColumns = `id, profile_id, amount, status, external_payout_id, failure_reason, created_at, modified_at`

const createWithdrawal = `-- name: CreateWithdrawal
INSERT INTO withdrawal_requests (id, profile_id, amount, status, created_at, modified_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING ` + withdrawalColumns

func (r *WithdrawalRepo) CreateWithdrawal(ctx context.Context, w models.WithdrawalRequest) (models.WithdrawalRequest, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Status == "" {
		w.Status = models.WithdrawalStatusPending
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createWithdrawal, w.ID, w.ProfileID, w.Amount, w.Status, w.CreatedAt)
	created, err := pgx.CollectOneRow(rows, rowToWithdrawal)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return created, apperrors.ErrWalletNotFound
		}
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getWithdrawalByID = `-- name: GetWithdrawalByID
SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
WHERE id = $1
`

const getWithdrawalByPayoutID = `-- name: GetWithdrawalByPayoutID
SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
WHERE external_payout_id = $1
`

func (r *WithdrawalRepo) GetWithdrawal(ctx context.Context, ref models.PayoutRef, forUpdate bool) (models.WithdrawalRequest, error) {
	var (
		query string
		arg   any
	)
	switch {
	case ref.WithdrawalID != uuid.Nil:
		query, arg = getWithdrawalByID, ref.WithdrawalID
	case ref.PayoutID != "":
		query, arg = getWithdrawalByPayoutID, ref.PayoutID
	default:
		return models.WithdrawalRequest{}, apperrors.ErrWithdrawalNotFound
	}
	if forUpdate {
		query += "FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, arg)
	w, err := pgx.CollectOneRow(rows, rowToWithdrawal)

	switch {
	case err == nil:
		return w, nil
	case errors.Is(err, pgx.ErrNoRows):
		return w, apperrors.ErrWithdrawalNotFound
	default:
		return w, fmt.Errorf("db error: %w", err)
	}
}

const finishWithdrawal = `-- name: FinishWithdrawal
UPDATE withdrawal_requests
SET status = $2,
    failure_reason = NULLIF($3, ''),
    modified_at = clock_timestamp()
WHERE id = $1 AND status = 'pending'
RETURNING ` + withdrawalColumns

func (r *WithdrawalRepo) Finish(ctx context.Context, id uuid.UUID, status string, failureReason string) (models.WithdrawalRequest, error) {
	rows, _ := r.DB.Query(ctx, finishWithdrawal, id, status, failureReason)
	w, err := pgx.CollectOneRow(rows, rowToWithdrawal)

	switch {
	case err == nil:
		return w, nil
	case errors.Is(err, pgx.ErrNoRows):
		return w, apperrors.ErrWithdrawalNotPending
	default:
		return w, fmt.Errorf("db error: %w", err)
	}
}

const attachPayout = `-- name: AttachPayout
UPDATE withdrawal_requests
SET external_payout_id = $2,
    modified_at = clock_timestamp()
WHERE id = $1 AND status = 'pending' AND (external_payout_id IS NULL OR external_payout_id = $2)
RETURNING ` + withdrawalColumns

func (r *WithdrawalRepo) AttachPayout(ctx context.Context, id uuid.UUID, payoutID string) (models.WithdrawalRequest, error) {
	rows, _ := r.DB.Query(ctx, attachPayout, id, payoutID)
	w, err := pgx.CollectOneRow(rows, rowToWithdrawal)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return w, nil
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
		return w, apperrors.ErrPayoutIDTaken
	case errors.Is(err, pgx.ErrNoRows):
		// Either not exists, not pending or bound to a different payout
		existing, getErr := r.GetWithdrawal(ctx, models.PayoutRef{WithdrawalID: id}, false)
		if getErr != nil {
			return w, getErr
		}
		if existing.Status != models.WithdrawalStatusPending {
			return existing, apperrors.ErrWithdrawalNotPending
		}
		return existing, apperrors.ErrPayoutIDTaken
	default:
		return w, fmt.Errorf("db error: %w", err)
	}
}

const listWithdrawals = `-- name: ListWithdrawals
SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
WHERE profile_id = $1
ORDER BY created_at DESC
`

func (r *WithdrawalRepo) ListWithdrawals(ctx context.Context, profileID uuid.UUID) ([]models.WithdrawalRequest, error) {
	rows, _ := r.DB.Query(ctx, listWithdrawals, profileID)
	withdrawals, err := pgx.CollectRows(rows, rowToWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return withdrawals, nil
}

func rowToWithdrawal(row pgx.CollectableRow) (models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(&w.ID, &w.ProfileID, &w.Amount, &w.Status, &w.ExternalPayoutID, &w.FailureReason, &w.CreatedAt, &w.ModifiedAt)
	return w, err
}
