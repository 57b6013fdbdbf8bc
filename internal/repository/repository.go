package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/models"
)

// Storage groups repositories that share one connection or one transaction
type Storage interface {
	Wallet() WalletRepo
	Escrow() EscrowRepo
	Withdrawal() WithdrawalRepo
	Currency() CurrencyRepo
	Plan() PlanRepo
	Notification() NotificationRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	// Storage passed to fn is bound to the transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}

// Wallet ledger
// Every mutation is a single in-SQL arithmetic statement plus an audit entry, so callers must run it inside InTx
// to keep status check and wallet delta atomic
type WalletRepo interface {
	// pending += amount; creates wallet if absent
	CreditPending(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, reference string) (models.Wallet, error)

	// pending = max(0, pending - amount); available += amount; total_earned += amount
	MoveToAvailable(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, reference string) (models.Wallet, error)

	// Requires available >= amount, otherwise apperrors.ErrBalanceInsufficient
	// available -= amount; total_withdrawn += amount
	DebitAvailable(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, reference string) (models.Wallet, error)

	// available += amount; total_withdrawn = max(0, total_withdrawn - amount)
	// Has to return apperrors.ErrWalletNotFound if wallet not exists
	RefundAvailable(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal, reference string) (models.Wallet, error)

	// Has to return apperrors.ErrWalletNotFound if wallet not exists
	GetWallet(ctx context.Context, profileID uuid.UUID, forUpdate bool) (models.Wallet, error)

	// Newest first
	ListEntries(ctx context.Context, profileID uuid.UUID, limit int) ([]models.WalletEntry, error)
}

type EscrowRepo interface {
	// Create pending transaction
	// If transaction with the same kind and deal id exists return it with apperrors.ErrEscrowAlreadyExists
	CreateEscrow(ctx context.Context, t models.EscrowTransaction) (models.EscrowTransaction, error)

	// Has to return apperrors.ErrEscrowNotFound if not exists
	GetEscrow(ctx context.Context, ref models.EscrowRef, forUpdate bool) (models.EscrowTransaction, error)

	// Move pending transaction to paid_escrow and persist commission split
	// Has to return apperrors.ErrEscrowStatusConflict if transaction is not pending
	SetPaid(ctx context.Context, id uuid.UUID, platformCommission, recipientAmount decimal.Decimal, paymentID string) (models.EscrowTransaction, error)

	// Move transaction from one status to another
	// Has to return apperrors.ErrEscrowStatusConflict if current status is not 'from'
	SetStatus(ctx context.Context, id uuid.UUID, from, to string) (models.EscrowTransaction, error)
}

type WithdrawalRepo interface {
	CreateWithdrawal(ctx context.Context, w models.WithdrawalRequest) (models.WithdrawalRequest, error)

	// Has to return apperrors.ErrWithdrawalNotFound if not exists
	GetWithdrawal(ctx context.Context, ref models.PayoutRef, forUpdate bool) (models.WithdrawalRequest, error)

	// Finish pending withdrawal; failureReason stored for failed only
	// Has to return apperrors.ErrWithdrawalNotPending if withdrawal is not pending
	Finish(ctx context.Context, id uuid.UUID, status string, failureReason string) (models.WithdrawalRequest, error)

	// Bind gateway payout id to a pending withdrawal; idempotent for the same payout id
	// Has to return apperrors.ErrPayoutIDTaken if payout id bound to another withdrawal
	AttachPayout(ctx context.Context, id uuid.UUID, payoutID string) (models.WithdrawalRequest, error)

	// Newest first
	ListWithdrawals(ctx context.Context, profileID uuid.UUID) ([]models.WithdrawalRequest, error)
}

type CurrencyRepo interface {
	// Append transaction; created is false if a transaction with the same external reference exists
	CreateTransaction(ctx context.Context, t models.CurrencyTransaction) (created bool, err error)

	AddBalance(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) (models.CurrencyBalance, error)

	// Has to return apperrors.ErrCurrencyBalanceNotFound if profile never bought currency
	GetBalance(ctx context.Context, profileID uuid.UUID) (models.CurrencyBalance, error)

	// Newest first
	ListTransactions(ctx context.Context, profileID uuid.UUID) ([]models.CurrencyTransaction, error)
}

// Subscription plans are owned by another subsystem
type PlanRepo interface {
	// Commission percentage of active plan
	// Has to return apperrors.ErrPlanNotFound if profile has no active plan
	GetActiveCommission(ctx context.Context, profileID uuid.UUID) (decimal.Decimal, error)

	SetPlan(ctx context.Context, profileID uuid.UUID, commissionPct decimal.Decimal, active bool) error
}

// Notification outbox
type NotificationRepo interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)

	// Claim up to limit unsent notifications not claimed within reclaimAfter
	// Concurrent callers never get the same notification
	ClaimPending(ctx context.Context, limit int, reclaimAfter time.Duration) ([]models.Notification, error)

	MarkSent(ctx context.Context, id uuid.UUID) error

	ListNotifications(ctx context.Context, profileID uuid.UUID) ([]models.Notification, error)
}
