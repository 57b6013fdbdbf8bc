package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nkiryanov/escrowledger/internal/handlers/profilectx"
	"github.com/nkiryanov/escrowledger/internal/handlers/render"
	"github.com/nkiryanov/escrowledger/internal/logger"
)

func handleWallet(walletService walletService, l logger.Logger) http.Handler {
	type response struct {
		Pending   string `json:"pending"`
		Available string `json:"available"`
		Earned    string `json:"total_earned"`
		Withdrawn string `json:"total_withdrawn"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := profilectx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		wallet, err := walletService.GetWallet(r.Context(), profileID)
		if err != nil {
			l.Error("Failed to get wallet", "profile_id", profileID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{
			Pending:   wallet.PendingBalance.StringFixed(2),
			Available: wallet.AvailableBalance.StringFixed(2),
			Earned:    wallet.TotalEarned.StringFixed(2),
			Withdrawn: wallet.TotalWithdrawn.StringFixed(2),
		})
	})
}

func handleWalletEntries(walletService walletService, l logger.Logger) http.Handler {
	type entry struct {
		Kind      string    `json:"kind"`
		Amount    string    `json:"amount"`
		Reference string    `json:"reference"`
		CreatedAt time.Time `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := profilectx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		// Service caps the limit, zero means default
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		entries, err := walletService.ListEntries(r.Context(), profileID, limit)
		if err != nil {
			l.Error("Failed to list wallet entries", "profile_id", profileID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		res := make([]entry, 0, len(entries))
		for _, e := range entries {
			res = append(res, entry{
				Kind:      e.Kind,
				Amount:    e.Amount.StringFixed(2),
				Reference: e.Reference,
				CreatedAt: e.CreatedAt,
			})
		}

		render.JSON(w, res)
	})
}
