package handlers

import (
	"net/http"

	"github.com/nkiryanov/escrowledger/internal/handlers/profilectx"
	"github.com/nkiryanov/escrowledger/internal/handlers/render"
	"github.com/nkiryanov/escrowledger/internal/logger"
)

func handleCurrencyBalance(currencyService currencyService, l logger.Logger) http.Handler {
	type response struct {
		Balance string `json:"balance"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := profilectx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		balance, err := currencyService.GetBalance(r.Context(), profileID)
		if err != nil {
			l.Error("Failed to get currency balance", "profile_id", profileID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Balance: balance.Balance.String()})
	})
}
