package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mobeebot/internal/bot"
	"mobeebot/internal/config"
	"mobeebot/internal/db"
	"mobeebot/internal/exchange"
	"mobeebot/internal/handlers"
	"mobeebot/internal/logging"
	"mobeebot/internal/services"
	"mobeebot/internal/session"
	"mobeebot/internal/signer"
	"mobeebot/internal/store"
	"mobeebot/internal/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to read .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger, flush, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer flush()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultPoolOptions())
	if err != nil {
		return err
	}
	defer database.Close()

	sessions, err := openSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	logger.Info("bot authorized", zap.String("username", api.Self.UserName))

	requestSigner, err := signer.New(cfg.MobeeAPIKey, cfg.MobeeAPISecret)
	if err != nil {
		return err
	}
	client, err := exchange.New(exchange.Options{
		BaseURL:    cfg.MobeeBaseURL,
		Timeout:    cfg.MobeeTimeout,
		MinDeposit: catalog.Fiat.MinDeposit,
		Banks:      catalog.Fiat.Banks,
	}, requestSigner)
	if err != nil {
		return err
	}
	callbackVerifier, err := signer.New(cfg.MobeeAPIKey, cfg.CallbackSecret)
	if err != nil {
		return err
	}

	users := store.NewUserStore(database)
	deposits := store.NewDepositStore(database)
	withdrawals := store.NewWithdrawalStore(database)
	ledger := store.NewTransactionStore(database)
	tokens := store.NewTokenStore(database)
	addresses := store.NewAddressStore(database)
	faqs := store.NewFAQStore(database)
	admins := store.NewAdminStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	notifier := bot.NewNotifier(api, catalog.BalanceCurrency)
	reconciler := services.NewReconciler(txRunner, users, deposits, withdrawals, ledger, audit, notifier, hub, catalog.BalanceCurrency)
	requests := services.NewRequestService(services.RequestServiceDeps{
		TxRunner:     txRunner,
		Users:        users,
		Deposits:     deposits,
		Withdrawals:  withdrawals,
		Ledger:       ledger,
		Tokens:       tokens,
		Exchange:     client,
		Notifier:     notifier,
		Hub:          hub,
		Catalog:      catalog,
		RequireToken: cfg.RequireActionToken,
	})
	updates := bot.New(bot.Deps{
		Sender:       api,
		Users:        users,
		Withdrawals:  withdrawals,
		Ledger:       ledger,
		Addresses:    addresses,
		FAQs:         faqs,
		Requests:     requests,
		Sessions:     sessions,
		Catalog:      catalog,
		PublicDomain: cfg.PublicDomain,
		BotUsername:  cfg.BotUsername,
	})

	handler := handlers.New(handlers.Deps{
		Config:      cfg,
		TxRunner:    txRunner,
		Bot:         updates,
		Requests:    requests,
		Reconciler:  reconciler,
		Users:       users,
		Deposits:    deposits,
		Withdrawals: withdrawals,
		Admins:      admins,
		Audit:       audit,
		Addresses:   addresses,
		Exchange:    client,
		Verifier:    callbackVerifier,
		Hub:         hub,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.WebhookTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("mobee bot listening",
			zap.String("addr", server.Addr),
			zap.String("webhook", cfg.WebhookURL()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openSessions(ctx context.Context, cfg config.Config, logger *zap.Logger) (session.Store, error) {
	if cfg.RedisURL != "" {
		client, err := session.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("sessions stored in redis")
		return session.NewRedisStore(client, cfg.SessionTTL), nil
	}
	memory := session.NewMemoryStore(cfg.SessionTTL)
	go memory.RunSweeper(ctx, time.Minute)
	logger.Warn("REDIS_URL not set, sessions kept in memory")
	return memory, nil
}
