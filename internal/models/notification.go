package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationPayoutFailed = "payout_failed"
)

type Notification struct {
	ID        uuid.UUID
	ProfileID uuid.UUID
	Kind      string
	Message   string
	CreatedAt time.Time
	SentAt    *time.Time // nil until delivered
}
