package currency

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/metrics"
	"github.com/nkiryanov/escrowledger/internal/models"
	"github.com/nkiryanov/escrowledger/internal/repository"
)

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

// Credit purchased platform currency
// Each external reference is credited at most once
func (s *Service) Credit(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, externalRef string) (models.Outcome, error) {
	var outcome models.Outcome

	if !amount.IsPositive() {
		return outcome, apperrors.ErrAmountInvalid
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		created, err := st.Currency().CreateTransaction(ctx, models.CurrencyTransaction{
			ProfileID:         profileID,
			Amount:            amount,
			ExternalReference: externalRef,
		})
		if err != nil {
			return err
		}
		if !created {
			outcome = models.Outcome{Reason: "already credited"}
			return nil
		}

		_, err = st.Currency().AddBalance(ctx, profileID, amount)
		if err != nil {
			return err
		}

		outcome = models.Outcome{Applied: true, Status: "credited"}
		return nil
	})
	if err != nil {
		return outcome, err
	}

	if outcome.Applied {
		metrics.RecordCurrencyCredit()
		s.logger.Info("Currency credited", "profile_id", profileID, "amount", amount, "reference", externalRef)
	} else {
		s.logger.Info("Currency purchase skipped", "profile_id", profileID, "reference", externalRef, "reason", outcome.Reason)
	}

	return outcome, nil
}

// Zero balance for profile that never bought currency
func (s *Service) GetBalance(ctx context.Context, profileID uuid.UUID) (models.CurrencyBalance, error) {
	b, err := s.storage.Currency().GetBalance(ctx, profileID)
	if errors.Is(err, apperrors.ErrCurrencyBalanceNotFound) {
		return models.CurrencyBalance{ProfileID: profileID, Balance: decimal.Zero}, nil
	}
	return b, err
}

func (s *Service) ListTransactions(ctx context.Context, profileID uuid.UUID) ([]models.CurrencyTransaction, error) {
	return s.storage.Currency().ListTransactions(ctx, profileID)
}
