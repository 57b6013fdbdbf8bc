package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/metrics"
	"github.com/nkiryanov/escrowledger/internal/models"
	"github.com/nkiryanov/escrowledger/internal/repository"
	"github.com/nkiryanov/escrowledger/internal/service/commission"
)

type Service struct {
	// Storage with transactions support
	storage repository.Storage

	// Commission percentage for recipients without active plan
	defaultPct decimal.Decimal

	logger logger.Logger
}

func NewService(storage repository.Storage, defaultPct decimal.Decimal, l logger.Logger) *Service {
	return &Service{
		storage:    storage,
		defaultPct: defaultPct,
		logger:     l,
	}
}

// Register pending escrow transaction for a proposal or negotiation
// Repeated registration with the same terms returns existing transaction and apperrors.ErrEscrowAlreadyExists
func (s *Service) Create(ctx context.Context, kind string, dealID string, gross decimal.Decimal, recipientID uuid.UUID) (models.EscrowTransaction, error) {
	if !models.ValidEscrowKind(kind) || dealID == "" {
		return models.EscrowTransaction{}, apperrors.ErrEscrowKindInvalid
	}
	if !gross.IsPositive() {
		return models.EscrowTransaction{}, apperrors.ErrAmountInvalid
	}

	t, err := s.storage.Escrow().CreateEscrow(ctx, models.EscrowTransaction{
		Kind:               kind,
		DealID:             dealID,
		GrossAmount:        gross,
		RecipientProfileID: recipientID,
	})

	switch {
	case err == nil:
		metrics.RecordEscrowTransition(models.PaymentStatusPending)
		return t, nil
	case errors.Is(err, apperrors.ErrEscrowAlreadyExists):
		if !t.GrossAmount.Equal(gross) || t.RecipientProfileID != recipientID {
			return t, apperrors.ErrEscrowConflict
		}
		return t, err
	default:
		return t, err
	}
}

func (s *Service) Get(ctx context.Context, ref models.EscrowRef) (models.EscrowTransaction, error) {
	return s.storage.Escrow().GetEscrow(ctx, ref, false)
}

// Move pending transaction to escrow and credit recipient pending balance with the commission deducted
// Duplicate or late confirmations are no-ops
func (s *Service) MarkPaid(ctx context.Context, ref models.EscrowRef, p models.PaymentConfirmation) (models.Outcome, error) {
	var outcome models.Outcome

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		t, err := st.Escrow().GetEscrow(ctx, ref, true)
		if err != nil {
			return err
		}

		if t.PaymentStatus != models.PaymentStatusPending {
			outcome = models.Outcome{Status: t.PaymentStatus, Reason: "already " + t.PaymentStatus}
			return nil
		}

		if !p.Matches(t) {
			return apperrors.ErrEscrowMismatch
		}

		calc := commission.Calculator{Plans: st.Plan(), DefaultPct: s.defaultPct}
		split, err := calc.ForRecipient(ctx, t.GrossAmount, t.RecipientProfileID)
		if err != nil {
			return err
		}

		t, err = st.Escrow().SetPaid(ctx, t.ID, split.PlatformCommission, split.RecipientAmount, p.PaymentID)
		if err != nil {
			return err
		}

		// Whole amount may go to the platform
		if split.RecipientAmount.IsPositive() {
			_, err = st.Wallet().CreditPending(ctx, t.RecipientProfileID, split.RecipientAmount, t.Reference())
			if err != nil {
				return fmt.Errorf("can't credit recipient pending balance. Err: %w", err)
			}
		}

		outcome = models.Outcome{Applied: true, Status: t.PaymentStatus}
		return nil
	})
	if err != nil {
		return outcome, err
	}

	s.record(ref, outcome)
	return outcome, nil
}

// Release escrowed funds to recipient available balance
// Only paid_escrow transaction may be released; anything else is a no-op
func (s *Service) Release(ctx context.Context, ref models.EscrowRef) (models.Outcome, error) {
	var outcome models.Outcome

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		t, err := st.Escrow().GetEscrow(ctx, ref, true)
		if err != nil {
			return err
		}

		switch t.PaymentStatus {
		case models.PaymentStatusPaidEscrow:
		case models.PaymentStatusReleased:
			outcome = models.Outcome{Status: t.PaymentStatus, Reason: "already released"}
			return nil
		default:
			outcome = models.Outcome{Status: t.PaymentStatus, Reason: "not in escrow"}
			return nil
		}

		t, err = st.Escrow().SetStatus(ctx, t.ID, models.PaymentStatusPaidEscrow, models.PaymentStatusReleased)
		if err != nil {
			return err
		}

		if t.RecipientAmount != nil && t.RecipientAmount.IsPositive() {
			_, err = st.Wallet().MoveToAvailable(ctx, t.RecipientProfileID, *t.RecipientAmount, t.Reference())
			if err != nil {
				return fmt.Errorf("can't move recipient funds to available. Err: %w", err)
			}
		}

		outcome = models.Outcome{Applied: true, Status: t.PaymentStatus}
		return nil
	})
	if err != nil {
		return outcome, err
	}

	s.record(ref, outcome)
	return outcome, nil
}

// Fail transaction the gateway could not charge
// Transaction already in escrow can't fail
func (s *Service) MarkFailed(ctx context.Context, ref models.EscrowRef, reason string) (models.Outcome, error) {
	var outcome models.Outcome

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		t, err := st.Escrow().GetEscrow(ctx, ref, true)
		if err != nil {
			return err
		}

		if t.PaymentStatus != models.PaymentStatusPending {
			outcome = models.Outcome{Status: t.PaymentStatus, Reason: "not pending"}
			return nil
		}

		t, err = st.Escrow().SetStatus(ctx, t.ID, models.PaymentStatusPending, models.PaymentStatusFailed)
		if err != nil {
			return err
		}

		outcome = models.Outcome{Applied: true, Status: t.PaymentStatus, Reason: reason}
		return nil
	})
	if err != nil {
		return outcome, err
	}

	s.record(ref, outcome)
	return outcome, nil
}

func (s *Service) record(ref models.EscrowRef, outcome models.Outcome) {
	if !outcome.Applied {
		s.logger.Info("Escrow transition skipped", "ref", ref.String(), "status", outcome.Status, "reason", outcome.Reason)
		return
	}

	metrics.RecordEscrowTransition(outcome.Status)
	s.logger.Info("Escrow transition applied", "ref", ref.String(), "status", outcome.Status)
}
