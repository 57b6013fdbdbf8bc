package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/handlers/profilectx"
	"github.com/nkiryanov/escrowledger/internal/handlers/render"
	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/models"
)

type withdrawalResponse struct {
	ID            string    `json:"id"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	PayoutID      *string   `json:"payout_id,omitempty"`
	FailureReason *string   `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newWithdrawalResponse(w models.WithdrawalRequest) withdrawalResponse {
	return withdrawalResponse{
		ID:            w.ID.String(),
		Amount:        w.Amount.StringFixed(2),
		Status:        w.Status,
		PayoutID:      w.ExternalPayoutID,
		FailureReason: w.FailureReason,
		CreatedAt:     w.CreatedAt,
	}
}

func handleRequestWithdrawal(withdrawalService withdrawalService, l logger.Logger) http.Handler {
	type request struct {
		Amount decimal.Decimal `json:"amount" validate:"amount"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := profilectx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		withdrawal, err := withdrawalService.Request(r.Context(), profileID, req.Amount)

		switch {
		case err == nil:
			render.JSONWithStatus(w, newWithdrawalResponse(withdrawal), http.StatusCreated)
		case errors.Is(err, apperrors.ErrBalanceInsufficient), errors.Is(err, apperrors.ErrWalletNotFound):
			render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrAmountInvalid):
			render.ServiceError(w, "Invalid amount", http.StatusBadRequest)
		default:
			l.Error("Failed to request withdrawal", "profile_id", profileID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListWithdrawals(withdrawalService withdrawalService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := profilectx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		withdrawals, err := withdrawalService.List(r.Context(), profileID)
		if err != nil {
			l.Error("Failed to list withdrawals", "profile_id", profileID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		res := make([]withdrawalResponse, 0, len(withdrawals))
		for _, wr := range withdrawals {
			res = append(res, newWithdrawalResponse(wr))
		}

		render.JSON(w, res)
	})
}
