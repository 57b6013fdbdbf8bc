package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CurrencyBalance struct {
	ProfileID uuid.UUID
	Balance   decimal.Decimal
	UpdatedAt time.Time
}

type CurrencyTransaction struct {
	ID                uuid.UUID
	ProfileID         uuid.UUID
	Amount            decimal.Decimal
	ExternalReference string
	CreatedAt         time.Time
}
