package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/models"
	"github.com/nkiryanov/escrowledger/internal/repository"
)

const defaultEntriesLimit = 100

// Read side of the wallet ledger
// Mutations belong to escrow and withdrawal services
type Service struct {
	walletRepo repository.WalletRepo
}

func NewService(walletRepo repository.WalletRepo) *Service {
	return &Service{walletRepo: walletRepo}
}

// Zero wallet for profile that never earned anything
func (s *Service) GetWallet(ctx context.Context, profileID uuid.UUID) (models.Wallet, error) {
	w, err := s.walletRepo.GetWallet(ctx, profileID, false)
	if errors.Is(err, apperrors.ErrWalletNotFound) {
		return models.Wallet{
			ProfileID:        profileID,
			PendingBalance:   decimal.Zero,
			AvailableBalance: decimal.Zero,
			TotalEarned:      decimal.Zero,
			TotalWithdrawn:   decimal.Zero,
		}, nil
	}
	return w, err
}

func (s *Service) ListEntries(ctx context.Context, profileID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	if limit <= 0 || limit > defaultEntriesLimit {
		limit = defaultEntriesLimit
	}
	return s.walletRepo.ListEntries(ctx, profileID, limit)
}
