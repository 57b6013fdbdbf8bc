package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/models"
)

const (
	ResultApplied = "applied" // state changed
	ResultNoop    = "noop"    // duplicate or stale transition
	ResultIgnored = "ignored" // nothing to apply the event to
)

type Result struct {
	Status string
	Reason string
}

type escrowService interface {
	MarkPaid(ctx context.Context, ref models.EscrowRef, p models.PaymentConfirmation) (models.Outcome, error)
	Release(ctx context.Context, ref models.EscrowRef) (models.Outcome, error)
	MarkFailed(ctx context.Context, ref models.EscrowRef, reason string) (models.Outcome, error)
}

type withdrawalService interface {
	AttachPayout(ctx context.Context, withdrawalID uuid.UUID, payoutID string) (models.WithdrawalRequest, error)
	Complete(ctx context.Context, ref models.PayoutRef) (models.Outcome, error)
	Fail(ctx context.Context, ref models.PayoutRef, reason string) (models.Outcome, error)
}

type currencyService interface {
	Credit(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, externalRef string) (models.Outcome, error)
}

// Route parsed events to ledger services
// Errors returned only for failures the gateway should retry
type Dispatcher struct {
	escrow     escrowService
	withdrawal withdrawalService
	currency   currencyService
	logger     logger.Logger
}

func NewDispatcher(escrow escrowService, withdrawal withdrawalService, currency currencyService, l logger.Logger) *Dispatcher {
	return &Dispatcher{
		escrow:     escrow,
		withdrawal: withdrawal,
		currency:   currency,
		logger:     l,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, e Event) (Result, error) {
	outcome, err := d.route(ctx, e)

	var result Result
	switch {
	case err == nil && outcome.Applied:
		result = Result{Status: ResultApplied, Reason: outcome.Reason}
	case err == nil:
		result = Result{Status: ResultNoop, Reason: outcome.Reason}
	case isUnresolvable(err):
		result = Result{Status: ResultIgnored, Reason: err.Error()}
	default:
		d.logger.Error("Failed to process event", "event_id", e.ID, "kind", e.Kind, "error", err)
		return Result{}, fmt.Errorf("process event %s: %w", e.ID, err)
	}

	if result.Status == ResultApplied {
		d.logger.Debug("Event applied", "event_id", e.ID, "kind", e.Kind)
	} else {
		d.logger.Info("Event acknowledged without changes", "event_id", e.ID, "kind", e.Kind, "result", result.Status, "reason", result.Reason)
	}

	return result, nil
}

func (d *Dispatcher) route(ctx context.Context, e Event) (models.Outcome, error) {
	switch {
	case e.Kind == KindUnknown:
		return models.Outcome{Reason: "unhandled event type " + e.Type}, nil

	case e.Currency != nil && e.Kind == KindPaymentSucceeded:
		return d.currency.Credit(ctx, e.Currency.ProfileID, e.Currency.Amount, e.Currency.Reference)

	case e.Currency != nil:
		// Nothing was credited before purchase succeeded
		return models.Outcome{Reason: "currency purchase failed"}, nil

	case e.Escrow != nil && e.Kind == KindPaymentSucceeded:
		return d.escrow.MarkPaid(ctx, e.Escrow.Ref, e.Escrow.Confirmation)

	case e.Escrow != nil && e.Kind == KindPaymentFailed:
		return d.escrow.MarkFailed(ctx, e.Escrow.Ref, e.Escrow.Reason)

	case e.Escrow != nil && e.Kind == KindChargeCaptured:
		return d.escrow.Release(ctx, e.Escrow.Ref)

	case e.Payout != nil:
		err := d.attachPayout(ctx, e.Payout.Ref)
		if err != nil {
			return models.Outcome{}, err
		}
		if e.Kind == KindPayoutPaid {
			return d.withdrawal.Complete(ctx, e.Payout.Ref)
		}
		return d.withdrawal.Fail(ctx, e.Payout.Ref, e.Payout.Reason)

	default:
		return models.Outcome{}, fmt.Errorf("%w: event %s has no target", apperrors.ErrMalformedEvent, e.ID)
	}
}

// Remember gateway payout id, so later events may carry the payout id only
func (d *Dispatcher) attachPayout(ctx context.Context, ref models.PayoutRef) error {
	if ref.WithdrawalID == uuid.Nil || ref.PayoutID == "" {
		return nil
	}

	_, err := d.withdrawal.AttachPayout(ctx, ref.WithdrawalID, ref.PayoutID)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrWithdrawalNotPending), errors.Is(err, apperrors.ErrPayoutIDTaken):
		d.logger.Info("Payout id not attached", "withdrawal_id", ref.WithdrawalID, "payout_id", ref.PayoutID, "reason", err.Error())
		return nil
	default:
		return err
	}
}

func isUnresolvable(err error) bool {
	return errors.Is(err, apperrors.ErrEscrowNotFound) ||
		errors.Is(err, apperrors.ErrWithdrawalNotFound) ||
		errors.Is(err, apperrors.ErrWalletNotFound) ||
		errors.Is(err, apperrors.ErrEscrowMismatch)
}
