package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
)

type PlanRepo struct {
	DB DBTX
}

const getActiveCommission = `-- name: GetActiveCommission
SELECT commission_pct FROM subscription_plans
WHERE profile_id = $1 AND active
`

func (r *PlanRepo) GetActiveCommission(ctx context.Context, profileID uuid.UUID) (decimal.Decimal, error) {
	var pct decimal.Decimal
	err := r.DB.QueryRow(ctx, getActiveCommission, profileID).Scan(&pct)

	switch {
	case err == nil:
		return pct, nil
	case errors.Is(err, pgx.ErrNoRows):
		return pct, apperrors.ErrPlanNotFound
	default:
		return pct, fmt.Errorf("db error: %w", err)
	}
}

const setPlan = `-- name: SetPlan
INSERT INTO subscription_plans (profile_id, commission_pct, active)
VALUES ($1, $2, $3)
ON CONFLICT (profile_id) DO UPDATE
SET commission_pct = EXCLUDED.commission_pct,
    active = EXCLUDED.active
`

func (r *PlanRepo) SetPlan(ctx context.Context, profileID uuid.UUID, commissionPct decimal.Decimal, active bool) error {
	if commissionPct.IsNegative() || commissionPct.GreaterThan(decimal.NewFromInt(100)) {
		return apperrors.ErrCommissionInvalid
	}

	_, err := r.DB.Exec(ctx, setPlan, profileID, commissionPct, active)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
