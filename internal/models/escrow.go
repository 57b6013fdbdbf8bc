package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EscrowKindProposal    = "proposal"
	EscrowKindNegotiation = "negotiation"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusPaidEscrow = "paid_escrow"
	PaymentStatusReleased   = "released"
	PaymentStatusFailed     = "failed"
)

type EscrowTransaction struct {
	ID                 uuid.UUID
	Kind               string
	DealID             string
	GrossAmount        decimal.Decimal
	RecipientProfileID uuid.UUID
	PaymentStatus      string
	PlatformCommission *decimal.Decimal // nil until paid_escrow
	RecipientAmount    *decimal.Decimal // nil until paid_escrow
	ExternalPaymentID  *string
	CreatedAt          time.Time
	ModifiedAt         time.Time
}

// Released and failed transactions never change again
func (t EscrowTransaction) IsTerminal() bool {
	return t.PaymentStatus == PaymentStatusReleased || t.PaymentStatus == PaymentStatusFailed
}

func (t EscrowTransaction) Ref() EscrowRef {
	return EscrowRef{Kind: t.Kind, DealID: t.DealID}
}

// Reference used in wallet entries
func (t EscrowTransaction) Reference() string {
	return t.Ref().String()
}

// Identifies escrow transaction the way the marketplace knows it: proposal or negotiation id
type EscrowRef struct {
	Kind   string
	DealID string
}

func (r EscrowRef) String() string {
	return "escrow:" + r.Kind + ":" + r.DealID
}

func ValidEscrowKind(kind string) bool {
	return kind == EscrowKindProposal || kind == EscrowKindNegotiation
}

// What the gateway reported about a successful payment
// Gross and RecipientID are optional; when set they must match the stored transaction
type PaymentConfirmation struct {
	PaymentID   string
	Gross       *decimal.Decimal
	RecipientID *uuid.UUID
}

func (p PaymentConfirmation) Matches(t EscrowTransaction) bool {
	if p.Gross != nil && !p.Gross.Equal(t.GrossAmount) {
		return false
	}
	if p.RecipientID != nil && *p.RecipientID != t.RecipientProfileID {
		return false
	}
	return true
}
