package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/handlers/middleware"
	"github.com/nkiryanov/escrowledger/internal/handlers/render"
	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/models"
	"github.com/nkiryanov/escrowledger/internal/webhook"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Services struct {
	Auth       authService
	Wallet     walletService
	Withdrawal withdrawalService
	Escrow     escrowService
	Currency   currencyService

	Verifier   signatureVerifier
	Dispatcher eventDispatcher

	// Database health check
	DB pinger
}

func NewRouter(s Services, logger logger.Logger) http.Handler {
	withAuth := middleware.AuthMiddleware(s.Auth)

	api := http.NewServeMux()

	api.Handle("POST /webhooks/gateway", handleWebhook(s.Verifier, s.Dispatcher, logger))

	api.Handle("GET /wallet", withAuth(handleWallet(s.Wallet, logger)))
	api.Handle("GET /wallet/entries", withAuth(handleWalletEntries(s.Wallet, logger)))
	api.Handle("POST /withdrawals", withAuth(handleRequestWithdrawal(s.Withdrawal, logger)))
	api.Handle("GET /withdrawals", withAuth(handleListWithdrawals(s.Withdrawal, logger)))
	api.Handle("POST /escrow", withAuth(handleCreateEscrow(s.Escrow, logger)))
	api.Handle("GET /escrow/{kind}/{dealID}", withAuth(handleGetEscrow(s.Escrow, logger)))
	api.Handle("GET /currency/balance", withAuth(handleCurrencyBalance(s.Currency, logger)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("GET /metrics", promhttp.Handler())
	root.Handle("GET /healthz", handleHealth(s.DB, logger))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
		middleware.MetricsMiddleware(),
	)

	return handler
}

func handleHealth(db pinger, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				l.Error("Health check failed", "error", err)
				render.ServiceError(w, "Database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		render.JSON(w, map[string]string{"status": "ok"})
	})
}

type authService interface {
	// Has to return error if request carries no valid bearer token
	Auth(ctx context.Context, r *http.Request) (uuid.UUID, error)
}

type walletService interface {
	GetWallet(ctx context.Context, profileID uuid.UUID) (models.Wallet, error)
	ListEntries(ctx context.Context, profileID uuid.UUID, limit int) ([]models.WalletEntry, error)
}

type withdrawalService interface {
	// Has to return apperrors.ErrBalanceInsufficient if available balance is less than amount
	Request(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) (models.WithdrawalRequest, error)
	List(ctx context.Context, profileID uuid.UUID) ([]models.WithdrawalRequest, error)
}

type escrowService interface {
	// Has to return apperrors.ErrEscrowAlreadyExists with existing transaction on repeated call
	// and apperrors.ErrEscrowConflict if existing transaction has other terms
	Create(ctx context.Context, kind string, dealID string, gross decimal.Decimal, recipientID uuid.UUID) (models.EscrowTransaction, error)

	// Has to return apperrors.ErrEscrowNotFound if not exists
	Get(ctx context.Context, ref models.EscrowRef) (models.EscrowTransaction, error)
}

type currencyService interface {
	GetBalance(ctx context.Context, profileID uuid.UUID) (models.CurrencyBalance, error)
}

type signatureVerifier interface {
	Verify(header string, body []byte) error
}

type eventDispatcher interface {
	// Error means the event has to be retried by gateway
	Dispatch(ctx context.Context, e webhook.Event) (webhook.Result, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}
