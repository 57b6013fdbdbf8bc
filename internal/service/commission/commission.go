package commission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
)

var hundred = decimal.NewFromInt(100)

// Platform and recipient parts of a gross amount
// PlatformCommission + RecipientAmount always equals the gross amount
type Split struct {
	PlatformCommission decimal.Decimal
	RecipientAmount    decimal.Decimal
}

// Split gross amount by commission percentage
// Commission is rounded half-up to cents, recipient gets the rest
func Calculate(gross decimal.Decimal, pct decimal.Decimal) (Split, error) {
	if !gross.IsPositive() {
		return Split{}, apperrors.ErrAmountInvalid
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return Split{}, apperrors.ErrCommissionInvalid
	}

	platform := gross.Mul(pct).Div(hundred).Round(2)

	return Split{
		PlatformCommission: platform,
		RecipientAmount:    gross.Sub(platform),
	}, nil
}

type PlanLookup interface {
	// Has to return apperrors.ErrPlanNotFound if profile has no active plan
	GetActiveCommission(ctx context.Context, profileID uuid.UUID) (decimal.Decimal, error)
}

type Calculator struct {
	// Subscription plans of recipients
	Plans PlanLookup

	// Percentage used when recipient has no active plan
	DefaultPct decimal.Decimal
}

// Split gross amount with the recipient's plan commission
func (c Calculator) ForRecipient(ctx context.Context, gross decimal.Decimal, recipientID uuid.UUID) (Split, error) {
	pct, err := c.Plans.GetActiveCommission(ctx, recipientID)

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrPlanNotFound):
		pct = c.DefaultPct
	default:
		return Split{}, fmt.Errorf("can't get recipient plan. Err: %w", err)
	}

	return Calculate(gross, pct)
}
