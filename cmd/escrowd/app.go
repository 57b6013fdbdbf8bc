package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/escrowledger/internal/db"
	"github.com/nkiryanov/escrowledger/internal/handlers"
	"github.com/nkiryanov/escrowledger/internal/logger"
	"github.com/nkiryanov/escrowledger/internal/repository/postgres"
	"github.com/nkiryanov/escrowledger/internal/service/auth"
	"github.com/nkiryanov/escrowledger/internal/service/currency"
	"github.com/nkiryanov/escrowledger/internal/service/escrow"
	"github.com/nkiryanov/escrowledger/internal/service/notify"
	"github.com/nkiryanov/escrowledger/internal/service/outbox"
	"github.com/nkiryanov/escrowledger/internal/service/wallet"
	"github.com/nkiryanov/escrowledger/internal/service/withdrawal"
	"github.com/nkiryanov/escrowledger/internal/webhook"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	outbox *outbox.Processor
	sender notify.Sender
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	defaultPct, err := c.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	authService, err := auth.New(auth.Config{SecretKey: c.SecretKey})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	escrowService := escrow.NewService(storage, defaultPct, logger)
	withdrawalService := withdrawal.NewService(storage, logger)
	currencyService := currency.NewService(storage, logger)
	walletService := wallet.NewService(storage.Wallet())

	var sender notify.Sender
	if c.RedisAddr != "" {
		sender = notify.NewAsynqSender(c.RedisAddr)
	} else {
		logger.Warn("Redis address not set, notifications will be logged only")
		sender = notify.NewLogSender(logger)
	}

	processor := outbox.New(
		outbox.Config{Interval: c.OutboxInterval, Workers: c.OutboxWorkers},
		storage.Notification(),
		sender,
		logger,
	)

	mux := handlers.NewRouter(handlers.Services{
		Auth:       authService,
		Wallet:     walletService,
		Withdrawal: withdrawalService,
		Escrow:     escrowService,
		Currency:   currencyService,
		Verifier:   webhook.NewVerifier(c.WebhookSecret, c.WebhookTolerance),
		Dispatcher: webhook.NewDispatcher(escrowService, withdrawalService, currencyService, logger),
		DB:         pool,
	}, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		outbox:     processor,
		sender:     sender,
		pool:       pool,
		logger:     logger,
	}, nil
}

// Run starts http server and notification outbox; both stop gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	outboxStopped := s.outbox.Process(srvCtx)

	idleConnsClosed := make(chan struct{})
	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-outboxStopped

	if closer, ok := s.sender.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			s.logger.Error("Failed to close notification sender", "error", cerr)
		}
	}
	s.pool.Close()

	return err
}
