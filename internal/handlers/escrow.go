package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/handlers/profilectx"
	"github.com/nkiryanov/escrowledger/internal/handlers/render"
	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/models"
)

type escrowResponse struct {
	Kind               string    `json:"kind"`
	DealID             string    `json:"deal_id"`
	GrossAmount        string    `json:"gross_amount"`
	RecipientID        string    `json:"recipient_id"`
	Status             string    `json:"status"`
	PlatformCommission *string   `json:"platform_commission,omitempty"`
	RecipientAmount    *string   `json:"recipient_amount,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func newEscrowResponse(t models.EscrowTransaction) escrowResponse {
	res := escrowResponse{
		Kind:        t.Kind,
		DealID:      t.DealID,
		GrossAmount: t.GrossAmount.StringFixed(2),
		RecipientID: t.RecipientProfileID.String(),
		Status:      t.PaymentStatus,
		CreatedAt:   t.CreatedAt,
	}
	if t.PlatformCommission != nil {
		v := t.PlatformCommission.StringFixed(2)
		res.PlatformCommission = &v
	}
	if t.RecipientAmount != nil {
		v := t.RecipientAmount.StringFixed(2)
		res.RecipientAmount = &v
	}
	return res
}

func handleCreateEscrow(escrowService escrowService, l logger.Logger) http.Handler {
	type request struct {
		Kind        string          `json:"kind" validate:"escrow_kind"`
		DealID      string          `json:"deal_id" validate:"required,max=128"`
		GrossAmount decimal.Decimal `json:"gross_amount" validate:"amount"`
		RecipientID uuid.UUID       `json:"recipient_id" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payerID, ok := profilectx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		t, err := escrowService.Create(r.Context(), req.Kind, req.DealID, req.GrossAmount, req.RecipientID)

		switch {
		case err == nil:
			l.Info("Escrow transaction registered",
				"ref", t.Ref().String(),
				"payer_id", payerID,
				"recipient_id", t.RecipientProfileID,
				"gross_amount", t.GrossAmount,
			)
			render.JSONWithStatus(w, newEscrowResponse(t), http.StatusCreated)
		case errors.Is(err, apperrors.ErrEscrowAlreadyExists):
			render.JSON(w, newEscrowResponse(t))
		case errors.Is(err, apperrors.ErrEscrowConflict):
			render.ServiceError(w, "Escrow transaction with other terms already exists", http.StatusConflict)
		case errors.Is(err, apperrors.ErrEscrowKindInvalid), errors.Is(err, apperrors.ErrAmountInvalid):
			render.ServiceError(w, err.Error(), http.StatusBadRequest)
		default:
			l.Error("Failed to create escrow transaction", "kind", req.Kind, "deal_id", req.DealID, "payer_id", payerID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetEscrow(escrowService escrowService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref := models.EscrowRef{Kind: r.PathValue("kind"), DealID: r.PathValue("dealID")}
		if !models.ValidEscrowKind(ref.Kind) {
			render.ServiceError(w, "Escrow transaction not found", http.StatusNotFound)
			return
		}

		t, err := escrowService.Get(r.Context(), ref)

		switch {
		case err == nil:
			render.JSON(w, newEscrowResponse(t))
		case errors.Is(err, apperrors.ErrEscrowNotFound):
			render.ServiceError(w, "Escrow transaction not found", http.StatusNotFound)
		default:
			l.Error("Failed to get escrow transaction", "ref", ref.String(), "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
