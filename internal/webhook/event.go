package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/models"
)

type Kind string

const (
	KindPaymentSucceeded Kind = "payment.succeeded"
	KindPaymentFailed    Kind = "payment.failed"
	KindChargeCaptured   Kind = "charge.captured"
	KindPayoutPaid       Kind = "payout.paid"
	KindPayoutFailed     Kind = "payout.failed"
	KindUnknown          Kind = "unknown"
)

// Metadata keys the marketplace attaches to gateway objects
const (
	metaProposalID       = "proposal_id"
	metaNegotiationID    = "negotiation_id"
	metaRecipientID      = "recipient_id"
	metaCurrencyPurchase = "currency_purchase"
	metaCurrencyAmount   = "currency_amount"
	metaProfileID        = "profile_id"
	metaWithdrawalID     = "withdrawal_id"
	metaFailureReason    = "failure_reason"
)

// Gateway event resolved to exactly one target
// Metadata is read only here, handlers get typed targets
type Event struct {
	ID      string
	Kind    Kind
	Type    string // as declared by gateway
	Created time.Time

	Escrow   *EscrowTarget
	Payout   *PayoutTarget
	Currency *CurrencyTarget
}

type EscrowTarget struct {
	Ref          models.EscrowRef
	Confirmation models.PaymentConfirmation
	Reason       string
}

type PayoutTarget struct {
	Ref    models.PayoutRef
	Reason string
}

// Currency purchase; Amount is empty for failed purchase
type CurrencyTarget struct {
	ProfileID uuid.UUID
	Amount    decimal.Decimal
	Reference string
}

type rawEvent struct {
	ID      string `json:"id" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Created int64  `json:"created"`
	Data    struct {
		ID       string            `json:"id"`
		Amount   *decimal.Decimal  `json:"amount"`
		Metadata map[string]string `json:"metadata"`
	} `json:"data"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse raw event body
// Unknown event types are returned with KindUnknown and no target
func Parse(body []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %s", apperrors.ErrMalformedEvent, err.Error())
	}
	if err := validate.Struct(raw); err != nil {
		return Event{}, fmt.Errorf("%w: %s", apperrors.ErrMalformedEvent, err.Error())
	}

	e := Event{
		ID:   raw.ID,
		Kind: Kind(raw.Type),
		Type: raw.Type,
	}
	if raw.Created > 0 {
		e.Created = time.Unix(raw.Created, 0).UTC()
	}

	meta := raw.Data.Metadata
	var err error

	switch e.Kind {
	case KindPaymentSucceeded, KindPaymentFailed:
		if isCurrencyPurchase(meta) {
			e.Currency, err = currencyTarget(e.Kind, raw)
		} else {
			e.Escrow, err = escrowTarget(raw)
		}
	case KindChargeCaptured:
		e.Escrow, err = escrowTarget(raw)
	case KindPayoutPaid, KindPayoutFailed:
		e.Payout, err = payoutTarget(raw)
	default:
		e.Kind = KindUnknown
	}
	if err != nil {
		return Event{}, fmt.Errorf("%w: %s", apperrors.ErrMalformedEvent, err.Error())
	}

	return e, nil
}

func isCurrencyPurchase(meta map[string]string) bool {
	v, ok := meta[metaCurrencyPurchase]
	return ok && v != "" && !strings.EqualFold(v, "false")
}

func escrowTarget(raw rawEvent) (*EscrowTarget, error) {
	meta := raw.Data.Metadata
	proposalID, negotiationID := meta[metaProposalID], meta[metaNegotiationID]

	t := &EscrowTarget{
		Confirmation: models.PaymentConfirmation{PaymentID: raw.Data.ID},
		Reason:       meta[metaFailureReason],
	}

	switch {
	case proposalID != "" && negotiationID != "":
		return nil, fmt.Errorf("both %s and %s set", metaProposalID, metaNegotiationID)
	case proposalID != "":
		t.Ref = models.EscrowRef{Kind: models.EscrowKindProposal, DealID: proposalID}
	case negotiationID != "":
		t.Ref = models.EscrowRef{Kind: models.EscrowKindNegotiation, DealID: negotiationID}
	default:
		return nil, fmt.Errorf("no %s or %s", metaProposalID, metaNegotiationID)
	}

	if raw.Data.Amount != nil {
		if err := checkAmount(*raw.Data.Amount); err != nil {
			return nil, err
		}
		t.Confirmation.Gross = raw.Data.Amount
	}

	if v := meta[metaRecipientID]; v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("bad %s", metaRecipientID)
		}
		t.Confirmation.RecipientID = &id
	}

	return t, nil
}

func currencyTarget(kind Kind, raw rawEvent) (*CurrencyTarget, error) {
	meta := raw.Data.Metadata

	profileID, err := uuid.Parse(meta[metaProfileID])
	if err != nil {
		return nil, fmt.Errorf("bad %s", metaProfileID)
	}
	if raw.Data.ID == "" {
		return nil, fmt.Errorf("no payment id")
	}

	t := &CurrencyTarget{ProfileID: profileID, Reference: raw.Data.ID}
	if kind != KindPaymentSucceeded {
		return t, nil
	}

	// Purchased currency amount may differ from charged money
	switch {
	case meta[metaCurrencyAmount] != "":
		t.Amount, err = decimal.NewFromString(meta[metaCurrencyAmount])
		if err != nil {
			return nil, fmt.Errorf("bad %s", metaCurrencyAmount)
		}
	case raw.Data.Amount != nil:
		t.Amount = *raw.Data.Amount
	}
	if err := checkAmount(t.Amount); err != nil {
		return nil, fmt.Errorf("currency %w", err)
	}

	return t, nil
}

// Amounts are stored as NUMERIC(14,2)
var maxAmount = decimal.New(1, 12)

func checkAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return fmt.Errorf("amount must be positive")
	case !amount.Equal(amount.Round(2)):
		return fmt.Errorf("amount %s has more than 2 decimal places", amount)
	case amount.GreaterThanOrEqual(maxAmount):
		return fmt.Errorf("amount %s is too large", amount)
	default:
		return nil
	}
}

func payoutTarget(raw rawEvent) (*PayoutTarget, error) {
	meta := raw.Data.Metadata

	t := &PayoutTarget{
		Ref:    models.PayoutRef{PayoutID: raw.Data.ID},
		Reason: meta[metaFailureReason],
	}

	if v := meta[metaWithdrawalID]; v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("bad %s", metaWithdrawalID)
		}
		t.Ref.WithdrawalID = id
	}

	if t.Ref.WithdrawalID == uuid.Nil && t.Ref.PayoutID == "" {
		return nil, fmt.Errorf("no %s or payout id", metaWithdrawalID)
	}

	return t, nil
}
