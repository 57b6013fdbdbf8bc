package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/repository"
	"github.com/nkiryanov/escrowledger/internal/repository/postgres"
	"github.com/nkiryanov/escrowledger/internal/service/auth"
	"github.com/nkiryanov/escrowledger/internal/service/currency"
	"github.com/nkiryanov/escrowledger/internal/service/escrow"
	"github.com/nkiryanov/escrowledger/internal/service/wallet"
	"github.com/nkiryanov/escrowledger/internal/service/withdrawal"
	"github.com/nkiryanov/escrowledger/internal/testutil"
	"github.com/nkiryanov/escrowledger/internal/webhook"
)

func Test_API(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	const webhookSecret = "whsec_test"

	type client struct {
		url       string
		storage   repository.Storage
		profileID uuid.UUID
		token     string
	}

	// Run http server with production services bound to test transaction
	withTx := func(t *testing.T, fn func(c client)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			l := logger.NewNoOpLogger()
			storage := postgres.NewStorage(tx)

			authService, err := auth.New(auth.Config{SecretKey: "test-secret"})
			require.NoError(t, err)

			escrowService := escrow.NewService(storage, decimal.NewFromInt(10), l)
			withdrawalService := withdrawal.NewService(storage, l)
			currencyService := currency.NewService(storage, l)

			router := NewRouter(Services{
				Auth:       authService,
				Wallet:     wallet.NewService(storage.Wallet()),
				Withdrawal: withdrawalService,
				Escrow:     escrowService,
				Currency:   currencyService,
				Verifier:   webhook.NewVerifier(webhookSecret, 0),
				Dispatcher: webhook.NewDispatcher(escrowService, withdrawalService, currencyService, l),
			}, l)

			srv := httptest.NewServer(router)
			defer srv.Close()

			profileID := uuid.New()
			token, err := authService.Issue(profileID, time.Hour)
			require.NoError(t, err)

			fn(client{url: srv.URL, storage: storage, profileID: profileID, token: token})
		})
	}

	do := func(t *testing.T, c client, method string, path string, body string) (int, string) {
		req, err := http.NewRequest(method, c.url+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		return resp.StatusCode, string(data)
	}

	deliver := func(t *testing.T, c client, event string) {
		req, err := http.NewRequest(http.MethodPost, c.url+"/api/webhooks/gateway", strings.NewReader(event))
		require.NoError(t, err)
		req.Header.Set(webhook.SignatureHeader, webhook.Sign(webhookSecret, time.Now(), []byte(event)))

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		require.Equalf(t, http.StatusOK, resp.StatusCode, "webhook not accepted. Body: %s", string(data))
	}

	t.Run("unauthorized", func(t *testing.T) {
		withTx(t, func(c client) {
			c.token = ""

			code, body := do(t, c, http.MethodGet, "/api/wallet", "")

			require.Equal(t, http.StatusUnauthorized, code)
			require.JSONEq(t, `{"error": "service_error", "message": "Unauthorized"}`, body)
		})
	})

	t.Run("empty wallet", func(t *testing.T) {
		withTx(t, func(c client) {
			code, body := do(t, c, http.MethodGet, "/api/wallet", "")

			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.JSONEq(t, `{
				"pending": "0.00",
				"available": "0.00",
				"total_earned": "0.00",
				"total_withdrawn": "0.00"
			}`, body)
		})
	})

	t.Run("escrow lifecycle over webhooks", func(t *testing.T) {
		withTx(t, func(c client) {
			create := `{"kind": "proposal", "deal_id": "prop-1", "gross_amount": "1000.00", "recipient_id": "` + c.profileID.String() + `"}`

			code, body := do(t, c, http.MethodPost, "/api/escrow", create)
			require.Equalf(t, http.StatusCreated, code, "not expected code. Body: %s", body)

			code, _ = do(t, c, http.MethodPost, "/api/escrow", create)
			require.Equal(t, http.StatusOK, code, "repeated create returns existing transaction")

			deliver(t, c, `{"id":"evt_1","type":"payment.succeeded","data":{"id":"pi_1","amount":"1000.00","metadata":{"proposal_id":"prop-1"}}}`)

			code, body = do(t, c, http.MethodGet, "/api/wallet", "")
			require.Equal(t, http.StatusOK, code)
			require.JSONEq(t, `{"pending": "900.00", "available": "0.00", "total_earned": "0.00", "total_withdrawn": "0.00"}`, body)

			deliver(t, c, `{"id":"evt_2","type":"charge.captured","data":{"id":"ch_1","metadata":{"proposal_id":"prop-1"}}}`)
			deliver(t, c, `{"id":"evt_2","type":"charge.captured","data":{"id":"ch_1","metadata":{"proposal_id":"prop-1"}}}`)

			code, body = do(t, c, http.MethodGet, "/api/wallet", "")
			require.Equal(t, http.StatusOK, code)
			require.JSONEq(t, `{"pending": "0.00", "available": "900.00", "total_earned": "900.00", "total_withdrawn": "0.00"}`, body)

			code, body = do(t, c, http.MethodGet, "/api/escrow/proposal/prop-1", "")
			require.Equal(t, http.StatusOK, code)
			var got map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			require.Equal(t, "released", got["status"])
			require.Equal(t, "100.00", got["platform_commission"])
			require.Equal(t, "900.00", got["recipient_amount"])

			code, body = do(t, c, http.MethodGet, "/api/wallet/entries?limit=10", "")
			require.Equal(t, http.StatusOK, code)
			var entries []map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &entries))
			require.Len(t, entries, 2, "one credit and one move, replayed capture changes nothing")
		})
	})

	t.Run("escrow conflict", func(t *testing.T) {
		withTx(t, func(c client) {
			code, _ := do(t, c, http.MethodPost, "/api/escrow", `{"kind": "negotiation", "deal_id": "neg-1", "gross_amount": "10", "recipient_id": "`+c.profileID.String()+`"}`)
			require.Equal(t, http.StatusCreated, code)

			code, _ = do(t, c, http.MethodPost, "/api/escrow", `{"kind": "negotiation", "deal_id": "neg-1", "gross_amount": "11", "recipient_id": "`+c.profileID.String()+`"}`)
			require.Equal(t, http.StatusConflict, code)
		})
	})

	t.Run("escrow validation", func(t *testing.T) {
		withTx(t, func(c client) {
			code, body := do(t, c, http.MethodPost, "/api/escrow", `{"kind": "order", "deal_id": "", "gross_amount": "-1", "recipient_id": "`+c.profileID.String()+`"}`)

			require.Equal(t, http.StatusBadRequest, code)
			require.Contains(t, body, "validation_failed")
		})
	})

	t.Run("escrow not found", func(t *testing.T) {
		withTx(t, func(c client) {
			code, _ := do(t, c, http.MethodGet, "/api/escrow/proposal/unknown", "")
			require.Equal(t, http.StatusNotFound, code)

			code, _ = do(t, c, http.MethodGet, "/api/escrow/order/unknown", "")
			require.Equal(t, http.StatusNotFound, code)
		})
	})

	t.Run("withdrawal lifecycle", func(t *testing.T) {
		withTx(t, func(c client) {
			_, err := c.storage.Wallet().MoveToAvailable(t.Context(), c.profileID, decimal.RequireFromString("900"), "escrow:proposal:p-1")
			require.NoError(t, err)

			code, body := do(t, c, http.MethodPost, "/api/withdrawals", `{"amount": "900.01"}`)
			require.Equalf(t, http.StatusPaymentRequired, code, "not expected code. Body: %s", body)

			code, body = do(t, c, http.MethodPost, "/api/withdrawals", `{"amount": "900.00"}`)
			require.Equalf(t, http.StatusCreated, code, "not expected code. Body: %s", body)
			var created struct {
				ID     string `json:"id"`
				Amount string `json:"amount"`
				Status string `json:"status"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &created))
			require.Equal(t, "900.00", created.Amount)
			require.Equal(t, "pending", created.Status)

			deliver(t, c, `{"id":"evt_3","type":"payout.failed","data":{"id":"po_1","metadata":{"withdrawal_id":"`+created.ID+`","failure_reason":"account closed"}}}`)

			code, body = do(t, c, http.MethodGet, "/api/withdrawals", "")
			require.Equal(t, http.StatusOK, code)
			var list []map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &list))
			require.Len(t, list, 1)
			require.Equal(t, "failed", list[0]["status"])
			require.Equal(t, "po_1", list[0]["payout_id"])
			require.Equal(t, "account closed", list[0]["failure_reason"])

			code, body = do(t, c, http.MethodGet, "/api/wallet", "")
			require.Equal(t, http.StatusOK, code)
			require.JSONEq(t, `{"pending": "0.00", "available": "900.00", "total_earned": "900.00", "total_withdrawn": "0.00"}`, body)
		})
	})

	t.Run("withdrawal validation", func(t *testing.T) {
		withTx(t, func(c client) {
			code, _ := do(t, c, http.MethodPost, "/api/withdrawals", `{"amount": "0"}`)
			require.Equal(t, http.StatusBadRequest, code)

			code, _ = do(t, c, http.MethodPost, "/api/withdrawals", `{"amount": "not a number"}`)
			require.Equal(t, http.StatusBadRequest, code)
		})
	})

	t.Run("currency purchase", func(t *testing.T) {
		withTx(t, func(c client) {
			event := `{"id":"evt_4","type":"payment.succeeded","data":{"id":"pi_7","amount":"5","metadata":{"currency_purchase":"true","currency_amount":"500","profile_id":"` + c.profileID.String() + `"}}}`

			deliver(t, c, event)
			deliver(t, c, event)

			code, body := do(t, c, http.MethodGet, "/api/currency/balance", "")
			require.Equal(t, http.StatusOK, code)
			require.JSONEq(t, `{"balance": "500"}`, body)
		})
	})

	t.Run("unresolvable event acknowledged", func(t *testing.T) {
		withTx(t, func(c client) {
			deliver(t, c, `{"id":"evt_5","type":"payment.succeeded","data":{"id":"pi_8","metadata":{"proposal_id":"missing"}}}`)
			deliver(t, c, `{"id":"evt_6","type":"payout.paid","data":{"id":"po_missing"}}`)
		})
	})
}
