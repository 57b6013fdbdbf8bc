package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusFailed    = "failed"
)

type WithdrawalRequest struct {
	ID               uuid.UUID
	ProfileID        uuid.UUID
	Amount           decimal.Decimal
	Status           string
	ExternalPayoutID *string
	FailureReason    *string
	CreatedAt        time.Time
	ModifiedAt       time.Time
}

func (w WithdrawalRequest) Reference() string {
	return "withdrawal:" + w.ID.String()
}

// Payout lifecycle events point to a withdrawal either by its id or by the gateway payout id
// WithdrawalID takes precedence when both set
type PayoutRef struct {
	WithdrawalID uuid.UUID
	PayoutID     string
}
