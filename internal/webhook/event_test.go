package webhook

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/models"
)

func TestParse(t *testing.T) {
	recipientID := uuid.MustParse("0b2f5a3e-6f1c-4f3a-9b3e-2a0d4b1c7e11")
	withdrawalID := uuid.MustParse("8c1d2e3f-4a5b-4c6d-8e7f-901a2b3c4d5e")

	t.Run("payment succeeded for proposal", func(t *testing.T) {
		body := `{
			"id": "evt_1",
			"type": "payment.succeeded",
			"created": 1740830400,
			"data": {
				"id": "pi_1",
				"amount": "100.00",
				"metadata": {"proposal_id": "prop-1", "recipient_id": "` + recipientID.String() + `"}
			}
		}`

		e, err := Parse([]byte(body))

		require.NoError(t, err)
		require.Equal(t, "evt_1", e.ID)
		require.Equal(t, KindPaymentSucceeded, e.Kind)
		require.Equal(t, int64(1740830400), e.Created.Unix())
		require.Nil(t, e.Payout)
		require.Nil(t, e.Currency)
		require.NotNil(t, e.Escrow)
		require.Equal(t, models.EscrowRef{Kind: models.EscrowKindProposal, DealID: "prop-1"}, e.Escrow.Ref)
		require.Equal(t, "pi_1", e.Escrow.Confirmation.PaymentID)
		require.True(t, decimal.RequireFromString("100").Equal(*e.Escrow.Confirmation.Gross))
		require.Equal(t, recipientID, *e.Escrow.Confirmation.RecipientID)
	})

	t.Run("payment failed for negotiation", func(t *testing.T) {
		body := `{"id":"evt_2","type":"payment.failed","data":{"id":"pi_2","metadata":{"negotiation_id":"neg-7","failure_reason":"card declined"}}}`

		e, err := Parse([]byte(body))

		require.NoError(t, err)
		require.Equal(t, KindPaymentFailed, e.Kind)
		require.Equal(t, models.EscrowRef{Kind: models.EscrowKindNegotiation, DealID: "neg-7"}, e.Escrow.Ref)
		require.Equal(t, "card declined", e.Escrow.Reason)
		require.Nil(t, e.Escrow.Confirmation.Gross)
		require.Nil(t, e.Escrow.Confirmation.RecipientID)
	})

	t.Run("charge captured", func(t *testing.T) {
		body := `{"id":"evt_3","type":"charge.captured","data":{"id":"ch_1","metadata":{"proposal_id":"prop-1"}}}`

		e, err := Parse([]byte(body))

		require.NoError(t, err)
		require.Equal(t, KindChargeCaptured, e.Kind)
		require.Equal(t, "prop-1", e.Escrow.Ref.DealID)
	})

	t.Run("payout paid with both ids", func(t *testing.T) {
		body := `{"id":"evt_4","type":"payout.paid","data":{"id":"po_1","metadata":{"withdrawal_id":"` + withdrawalID.String() + `"}}}`

		e, err := Parse([]byte(body))

		require.NoError(t, err)
		require.Equal(t, KindPayoutPaid, e.Kind)
		require.Nil(t, e.Escrow)
		require.Equal(t, models.PayoutRef{WithdrawalID: withdrawalID, PayoutID: "po_1"}, e.Payout.Ref)
	})

	t.Run("payout failed by payout id only", func(t *testing.T) {
		body := `{"id":"evt_5","type":"payout.failed","data":{"id":"po_2","metadata":{"failure_reason":"account closed"}}}`

		e, err := Parse([]byte(body))

		require.NoError(t, err)
		require.Equal(t, KindPayoutFailed, e.Kind)
		require.Equal(t, uuid.Nil, e.Payout.Ref.WithdrawalID)
		require.Equal(t, "po_2", e.Payout.Ref.PayoutID)
		require.Equal(t, "account closed", e.Payout.Reason)
	})

	t.Run("currency purchase", func(t *testing.T) {
		body := `{"id":"evt_6","type":"payment.succeeded","data":{"id":"pi_9","amount":5,"metadata":{"currency_purchase":"true","currency_amount":"500","profile_id":"` + recipientID.String() + `"}}}`

		e, err := Parse([]byte(body))

		require.NoError(t, err)
		require.Nil(t, e.Escrow)
		require.NotNil(t, e.Currency)
		require.Equal(t, recipientID, e.Currency.ProfileID)
		require.Equal(t, "pi_9", e.Currency.Reference)
		require.True(t, decimal.NewFromInt(500).Equal(e.Currency.Amount))
	})

	t.Run("currency purchase amount from payment", func(t *testing.T) {
		body := `{"id":"evt_7","type":"payment.succeeded","data":{"id":"pi_10","amount":"12.5","metadata":{"currency_purchase":"1","profile_id":"` + recipientID.String() + `"}}}`

		e, err := Parse([]byte(body))

		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("12.5").Equal(e.Currency.Amount))
	})

	t.Run("failed currency purchase has no amount", func(t *testing.T) {
		body := `{"id":"evt_8","type":"payment.failed","data":{"id":"pi_11","metadata":{"currency_purchase":"true","profile_id":"` + recipientID.String() + `"}}}`

		e, err := Parse([]byte(body))

		require.NoError(t, err)
		require.Equal(t, KindPaymentFailed, e.Kind)
		require.True(t, e.Currency.Amount.IsZero())
	})

	t.Run("unknown type", func(t *testing.T) {
		body := `{"id":"evt_9","type":"customer.created","data":{"id":"cus_1"}}`

		e, err := Parse([]byte(body))

		require.NoError(t, err)
		require.Equal(t, KindUnknown, e.Kind)
		require.Equal(t, "customer.created", e.Type)
		require.Nil(t, e.Escrow)
		require.Nil(t, e.Payout)
		require.Nil(t, e.Currency)
	})

	t.Run("largest storable amount", func(t *testing.T) {
		body := `{"id":"evt_10","type":"payment.succeeded","data":{"id":"pi_12","metadata":{"currency_purchase":"true","currency_amount":"999999999999.99","profile_id":"` + recipientID.String() + `"}}}`

		e, err := Parse([]byte(body))

		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("999999999999.99").Equal(e.Currency.Amount))
	})

	malformed := map[string]string{
		"not json":               `{"id":`,
		"no id":                  `{"type":"payment.succeeded","data":{"metadata":{"proposal_id":"p"}}}`,
		"no type":                `{"id":"evt","data":{"metadata":{"proposal_id":"p"}}}`,
		"no deal reference":      `{"id":"evt","type":"payment.succeeded","data":{"id":"pi"}}`,
		"both deal references":   `{"id":"evt","type":"charge.captured","data":{"metadata":{"proposal_id":"p","negotiation_id":"n"}}}`,
		"negative amount":        `{"id":"evt","type":"payment.succeeded","data":{"amount":"-1","metadata":{"proposal_id":"p"}}}`,
		"bad recipient":          `{"id":"evt","type":"payment.succeeded","data":{"metadata":{"proposal_id":"p","recipient_id":"nope"}}}`,
		"payout without ids":     `{"id":"evt","type":"payout.paid","data":{}}`,
		"bad withdrawal id":      `{"id":"evt","type":"payout.paid","data":{"id":"po","metadata":{"withdrawal_id":"nope"}}}`,
		"currency no profile":    `{"id":"evt","type":"payment.succeeded","data":{"id":"pi","amount":1,"metadata":{"currency_purchase":"true"}}}`,
		"currency no amount":     `{"id":"evt","type":"payment.succeeded","data":{"id":"pi","metadata":{"currency_purchase":"true","profile_id":"` + recipientID.String() + `"}}}`,
		"fractional cents":       `{"id":"evt","type":"payment.succeeded","data":{"amount":"10.005","metadata":{"proposal_id":"p"}}}`,
		"huge amount":            `{"id":"evt","type":"payment.succeeded","data":{"amount":"1e15","metadata":{"proposal_id":"p"}}}`,
		"currency rounds up":     `{"id":"evt","type":"payment.succeeded","data":{"id":"pi","metadata":{"currency_purchase":"true","currency_amount":"1.005","profile_id":"` + recipientID.String() + `"}}}`,
		"currency rounds to 0":   `{"id":"evt","type":"payment.succeeded","data":{"id":"pi","metadata":{"currency_purchase":"true","currency_amount":"0.001","profile_id":"` + recipientID.String() + `"}}}`,
		"currency overflow":      `{"id":"evt","type":"payment.succeeded","data":{"id":"pi","metadata":{"currency_purchase":"true","currency_amount":"1e15","profile_id":"` + recipientID.String() + `"}}}`,
		"currency no payment id": `{"id":"evt","type":"payment.succeeded","data":{"amount":1,"metadata":{"currency_purchase":"true","profile_id":"` + recipientID.String() + `"}}}`,
	}
	for name, body := range malformed {
		t.Run("malformed "+name, func(t *testing.T) {
			_, err := Parse([]byte(body))

			require.ErrorIs(t, err, apperrors.ErrMalformedEvent)
		})
	}
}
