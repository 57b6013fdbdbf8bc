package apperrors

import (
	"errors"
)

var (
	ErrAmountInvalid = errors.New("amount must be positive")

	ErrWalletNotFound      = errors.New("wallet not found")
	ErrBalanceInsufficient = errors.New("insufficient balance")

	ErrEscrowNotFound       = errors.New("escrow transaction not found")
	ErrEscrowAlreadyExists  = errors.New("escrow transaction already exists")
	ErrEscrowConflict       = errors.New("escrow transaction registered with different terms")
	ErrEscrowMismatch       = errors.New("event does not match escrow transaction")
	ErrEscrowStatusConflict = errors.New("escrow transaction status changed concurrently")
	ErrEscrowKindInvalid    = errors.New("escrow kind is invalid")

	ErrCommissionInvalid = errors.New("commission percentage must be within [0, 100]")
	ErrPlanNotFound      = errors.New("active subscription plan not found")

	ErrWithdrawalNotFound   = errors.New("withdrawal request not found")
	ErrWithdrawalNotPending = errors.New("withdrawal request is not pending")
	ErrPayoutIDTaken        = errors.New("payout id already attached to another withdrawal")

	ErrCurrencyBalanceNotFound = errors.New("currency balance not found")

	ErrSignatureMissing = errors.New("signature is missing")
	ErrSignatureInvalid = errors.New("signature is invalid")
	ErrSignatureExpired = errors.New("signature timestamp is outside tolerance")
	ErrSecretNotSet     = errors.New("webhook secret is not configured")
	ErrMalformedEvent   = errors.New("malformed event")

	ErrUnauthorized = errors.New("unauthorized")
)
