package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/nkiryanov/escrowledger/internal/apperrors"
	"github.com/nkiryanov/escrowledger/internal/handlers/render"
	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/metrics"
	"github.com/nkiryanov/escrowledger/internal/webhook"
)

const maxWebhookBody = 1 << 20

func handleWebhook(verifier signatureVerifier, dispatcher eventDispatcher, l logger.Logger) http.Handler {
	type response struct {
		Received bool `json:"received"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			render.ServiceError(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		// Signature is checked over raw bytes, before anything is parsed
		err = verifier.Verify(r.Header.Get(webhook.SignatureHeader), body)
		if err != nil {
			l.Warn("Webhook rejected", "reason", err.Error())
			metrics.RecordWebhookEvent(string(webhook.KindUnknown), "rejected")
			render.ServiceError(w, "Webhook signature verification failed", http.StatusBadRequest)
			return
		}

		event, err := webhook.Parse(body)
		if err != nil {
			l.Warn("Webhook payload malformed", "error", err)
			metrics.RecordWebhookEvent(string(webhook.KindUnknown), "malformed")
			render.ServiceError(w, "Malformed event", http.StatusBadRequest)
			return
		}

		result, err := dispatcher.Dispatch(r.Context(), event)

		switch {
		case err == nil:
			metrics.RecordWebhookEvent(string(event.Kind), result.Status)
			render.JSON(w, response{Received: true})
		case errors.Is(err, apperrors.ErrMalformedEvent):
			metrics.RecordWebhookEvent(string(event.Kind), "malformed")
			render.ServiceError(w, "Malformed event", http.StatusBadRequest)
		default:
			// Gateway retries non 2xx responses
			metrics.RecordWebhookEvent(string(event.Kind), "error")
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
