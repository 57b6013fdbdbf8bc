package withdrawal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/metrics"
	"github.com/nkiryanov/escrowledger/internal/models"
	"github.com/nkiryanov/escrowledger/internal/repository"
)

const PayoutFailedMessage = "your payout failed, funds restored to your balance"

type Service struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewService(storage repository.Storage, l logger.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  l,
	}
}

// Debit available balance and register pending payout request
// Nothing is recorded if balance is insufficient
func (s *Service) Request(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) (models.WithdrawalRequest, error) {
	var created models.WithdrawalRequest

	if !amount.IsPositive() {
		return created, apperrors.ErrAmountInvalid
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		w := models.WithdrawalRequest{ID: uuid.New(), ProfileID: profileID, Amount: amount}

		_, err := st.Wallet().DebitAvailable(ctx, profileID, amount, w.Reference())
		if err != nil {
			return err
		}

		created, err = st.Withdrawal().CreateWithdrawal(ctx, w)
		return err
	})
	if err != nil {
		return created, err
	}

	metrics.RecordWithdrawal(models.WithdrawalStatusPending)
	s.logger.Info("Withdrawal requested", "withdrawal_id", created.ID, "profile_id", profileID, "amount", amount)
	return created, nil
}

// Bind gateway payout id to pending request
func (s *Service) AttachPayout(ctx context.Context, withdrawalID uuid.UUID, payoutID string) (models.WithdrawalRequest, error) {
	if payoutID == "" {
		return models.WithdrawalRequest{}, apperrors.ErrWithdrawalNotFound
	}
	return s.storage.Withdrawal().AttachPayout(ctx, withdrawalID, payoutID)
}

// Complete pending payout
// Funds were debited on request, so wallet stays unchanged
func (s *Service) Complete(ctx context.Context, ref models.PayoutRef) (models.Outcome, error) {
	var outcome models.Outcome

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		w, err := st.Withdrawal().GetWithdrawal(ctx, ref, true)
		if err != nil {
			return err
		}

		if w.Status != models.WithdrawalStatusPending {
			outcome = models.Outcome{Status: w.Status, Reason: "already " + w.Status}
			return nil
		}

		w, err = st.Withdrawal().Finish(ctx, w.ID, models.WithdrawalStatusCompleted, "")
		if err != nil {
			return err
		}

		outcome = models.Outcome{Applied: true, Status: w.Status}
		return nil
	})
	if err != nil {
		return outcome, err
	}

	s.record(ref, outcome)
	return outcome, nil
}

// Fail pending payout, refund its amount and notify the profile
// Refund and notification happen once even if the failure is reported many times
func (s *Service) Fail(ctx context.Context, ref models.PayoutRef, reason string) (models.Outcome, error) {
	var outcome models.Outcome

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		w, err := st.Withdrawal().GetWithdrawal(ctx, ref, true)
		if err != nil {
			return err
		}

		if w.Status != models.WithdrawalStatusPending {
			outcome = models.Outcome{Status: w.Status, Reason: "already " + w.Status}
			return nil
		}

		w, err = st.Withdrawal().Finish(ctx, w.ID, models.WithdrawalStatusFailed, reason)
		if err != nil {
			return err
		}

		_, err = st.Wallet().RefundAvailable(ctx, w.ProfileID, w.Amount, w.Reference())
		if err != nil {
			return fmt.Errorf("can't refund failed payout. Err: %w", err)
		}

		_, err = st.Notification().CreateNotification(ctx, models.Notification{
			ProfileID: w.ProfileID,
			Kind:      models.NotificationPayoutFailed,
			Message:   PayoutFailedMessage,
		})
		if err != nil {
			return fmt.Errorf("can't create payout failed notification. Err: %w", err)
		}

		outcome = models.Outcome{Applied: true, Status: w.Status, Reason: reason}
		return nil
	})
	if err != nil {
		return outcome, err
	}

	s.record(ref, outcome)
	return outcome, nil
}

func (s *Service) Get(ctx context.Context, ref models.PayoutRef) (models.WithdrawalRequest, error) {
	return s.storage.Withdrawal().GetWithdrawal(ctx, ref, false)
}

func (s *Service) List(ctx context.Context, profileID uuid.UUID) ([]models.WithdrawalRequest, error) {
	return s.storage.Withdrawal().ListWithdrawals(ctx, profileID)
}

func (s *Service) record(ref models.PayoutRef, outcome models.Outcome) {
	if !outcome.Applied {
		s.logger.Info("Withdrawal transition skipped", "withdrawal_id", ref.WithdrawalID, "payout_id", ref.PayoutID, "reason", outcome.Reason)
		return
	}

	metrics.RecordWithdrawal(outcome.Status)
	s.logger.Info("Withdrawal transition applied", "withdrawal_id", ref.WithdrawalID, "payout_id", ref.PayoutID, "status", outcome.Status)
}
