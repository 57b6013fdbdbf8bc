package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet entry kinds, one per ledger operation
const (
	EntryCreditPending   = "credit_pending"
	EntryMoveToAvailable = "move_to_available"
	EntryDebitAvailable  = "debit_available"
	EntryRefundAvailable = "refund_available"
)

type Wallet struct {
	ProfileID        uuid.UUID
	PendingBalance   decimal.Decimal
	AvailableBalance decimal.Decimal
	TotalEarned      decimal.Decimal
	TotalWithdrawn   decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Append-only record of a single wallet mutation
type WalletEntry struct {
	ID        uuid.UUID
	ProfileID uuid.UUID
	Kind      string
	Amount    decimal.Decimal
	Reference string
	CreatedAt time.Time
}
