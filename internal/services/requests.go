package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mobeebot/internal/config"
	"mobeebot/internal/db"
	"mobeebot/internal/exchange"
	"mobeebot/internal/models"
	"mobeebot/internal/store"
	"mobeebot/internal/websocket"
)

const maxAmountDecimals = 8

type RequestService struct {
	txRunner     db.TxRunner
	users        UserStore
	deposits     DepositStore
	withdrawals  WithdrawalStore
	ledger       LedgerStore
	tokens       TokenStore
	exchange     Exchange
	notifier     Notifier
	hub          Broadcaster
	catalog      config.Catalog
	requireToken bool
}

type RequestServiceDeps struct {
	TxRunner     db.TxRunner
	Users        UserStore
	Deposits     DepositStore
	Withdrawals  WithdrawalStore
	Ledger       LedgerStore
	Tokens       TokenStore
	Exchange     Exchange
	Notifier     Notifier
	Hub          Broadcaster
	Catalog      config.Catalog
	RequireToken bool
}

func NewRequestService(deps RequestServiceDeps) *RequestService {
	return &RequestService{
		txRunner:     deps.TxRunner,
		users:        deps.Users,
		deposits:     deps.Deposits,
		withdrawals:  deps.Withdrawals,
		ledger:       deps.Ledger,
		tokens:       deps.Tokens,
		exchange:     deps.Exchange,
		notifier:     deps.Notifier,
		hub:          deps.Hub,
		catalog:      deps.Catalog,
		requireToken: deps.RequireToken,
	}
}

func (s *RequestService) IssueToken(ctx context.Context, userID int64, action string) (string, error) {
	if action != models.ActionDeposit && action != models.ActionWithdrawal {
		return "", fmt.Errorf("issue token: unknown action %q", action)
	}
	token := uuid.NewString()
	if err := s.tokens.Create(ctx, token, userID, action); err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

type DepositInput struct {
	TelegramID int64
	Amount     decimal.Decimal
	BankCode   string
	Token      string
}

func (s *RequestService) CreateDeposit(ctx context.Context, input DepositInput) (models.DepositRequest, error) {
	user, err := s.lookupUser(ctx, input.TelegramID)
	if err != nil {
		return models.DepositRequest{}, err
	}
	bank := strings.ToUpper(strings.TrimSpace(input.BankCode))
	if err := s.exchange.ValidateFiatDeposit(input.Amount, bank); err != nil {
		switch {
		case errors.Is(err, exchange.ErrBelowMinimumDeposit):
			return models.DepositRequest{}, ErrBelowMinimum
		case errors.Is(err, exchange.ErrInvalidBankCode):
			return models.DepositRequest{}, ErrInvalidBank
		default:
			return models.DepositRequest{}, ErrInvalidAmount
		}
	}
	if err := s.consumeToken(ctx, input.Token, user.ID, models.ActionDeposit); err != nil {
		return models.DepositRequest{}, err
	}

	created, err := s.exchange.CreateFiatDeposit(ctx, input.Amount, bank)
	if err != nil {
		zap.L().Error("fiat deposit creation failed",
			zap.Int64("user_id", user.ID),
			zap.String("bank_code", bank),
			zap.Error(err))
		return models.DepositRequest{}, err
	}
	depositID := created.DepositID.String()
	if depositID == "" {
		return models.DepositRequest{}, errors.New("create deposit: exchange returned no deposit id")
	}
	transactionID := created.TransactionID.String()
	if transactionID == "" {
		transactionID = depositID
	}
	amount := created.Amount
	if !amount.IsPositive() {
		amount = input.Amount
	}
	bankCode := created.BankCode
	if bankCode == "" {
		bankCode = bank
	}
	row := models.DepositRequest{
		UserID:        user.ID,
		DepositID:     depositID,
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      s.catalog.Fiat.Currency,
		Status:        models.DepositPending,
		AccountName:   optionalString(created.AccountName),
		AccountNumber: optionalString(created.AccountNumber.String()),
		BankCode:      optionalString(bankCode),
		ExpiredAt:     created.ExpiredAt.Ptr(),
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.deposits.Create(ctx, tx, &row); err != nil {
			return err
		}
		return s.ledger.Create(ctx, tx, models.Transaction{
			ID:              uuid.NewString(),
			UserID:          user.ID,
			TransactionType: models.TxTypeDeposit,
			Currency:        row.Currency,
			Amount:          row.Amount,
			Status:          models.TxStatusPending,
			Reference:       depositReference(depositID),
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			zap.L().Info("duplicate deposit ignored", zap.String("deposit_id", depositID))
			return models.DepositRequest{}, ErrDuplicateRequest
		}
		return models.DepositRequest{}, err
	}

	zap.L().Info("deposit created",
		zap.Int64("user_id", user.ID),
		zap.Int64("request_id", row.ID),
		zap.String("deposit_id", depositID),
		zap.String("amount", row.Amount.String()))
	if err := s.notifier.DepositCreated(ctx, user.TelegramID, row); err != nil {
		zap.L().Warn("deposit created notification failed", zap.Int64("request_id", row.ID), zap.Error(err))
	}
	s.hub.BroadcastRequest(websocket.RequestEvent{
		Kind:       models.ActionDeposit,
		RequestID:  row.ID,
		ExternalID: depositID,
		UserID:     user.ID,
		Status:     row.Status,
		Amount:     row.Amount.String(),
		Currency:   row.Currency,
	})
	return row, nil
}

type WithdrawalInput struct {
	TelegramID int64
	Currency   string
	Amount     decimal.Decimal
	Address    string
	AddressTag string
	NetworkID  int64
	Token      string
}

func (s *RequestService) CheckWithdrawal(user models.User, pending decimal.Decimal, currency string, networkID int64, amount decimal.Decimal) (config.WithdrawalNetwork, error) {
	network, ok := s.catalog.NetworkByID(currency, networkID)
	if !ok {
		return config.WithdrawalNetwork{}, ErrUnknownNetwork
	}
	if err := CheckWithdrawalAmount(network, amount); err != nil {
		return config.WithdrawalNetwork{}, err
	}
	if amount.Add(network.Fee).Add(pending).GreaterThan(user.Balance) {
		return config.WithdrawalNetwork{}, ErrInsufficientFunds
	}
	return network, nil
}

func CheckWithdrawalAmount(network config.WithdrawalNetwork, amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(maxAmountDecimals)) {
		return ErrInvalidAmount
	}
	if amount.LessThan(network.MinAmount) {
		return ErrBelowMinimum
	}
	if !amount.GreaterThan(network.Fee) {
		return ErrBelowMinimum
	}
	return nil
}

func CheckAddress(network config.WithdrawalNetwork, address string) error {
	if len(address) < network.MinAddressLength || strings.ContainsAny(address, " \t\r\n") {
		return ErrInvalidAddress
	}
	return nil
}

func (s *RequestService) CreateWithdrawal(ctx context.Context, input WithdrawalInput) (models.WithdrawalRequest, error) {
	user, err := s.lookupUser(ctx, input.TelegramID)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	address := strings.TrimSpace(input.Address)
	pending, err := s.withdrawals.PendingDebits(ctx, user.ID)
	if err != nil {
		return models.WithdrawalRequest{}, fmt.Errorf("create withdrawal: pending debits: %w", err)
	}
	network, err := s.CheckWithdrawal(user, pending, currency, input.NetworkID, input.Amount)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if err := CheckAddress(network, address); err != nil {
		return models.WithdrawalRequest{}, err
	}
	if err := s.consumeToken(ctx, input.Token, user.ID, models.ActionWithdrawal); err != nil {
		return models.WithdrawalRequest{}, err
	}

	send := input.Amount.Sub(network.Fee)
	created, err := s.exchange.CreateCryptoWithdrawal(ctx, exchange.WithdrawalParams{
		Currency:   currency,
		Amount:     send,
		Address:    address,
		NetworkID:  network.NetworkID,
		AddressTag: input.AddressTag,
	})
	if err != nil {
		zap.L().Error("crypto withdrawal creation failed",
			zap.Int64("user_id", user.ID),
			zap.String("currency", currency),
			zap.Error(err))
		return models.WithdrawalRequest{}, err
	}
	withdrawalID := created.WithdrawalID.String()
	if withdrawalID == "" {
		return models.WithdrawalRequest{}, errors.New("create withdrawal: exchange returned no withdrawal id")
	}
	transactionID := created.TransactionID.String()
	if transactionID == "" {
		transactionID = withdrawalID
	}
	userID := user.ID
	row := models.WithdrawalRequest{
		UserID:        &userID,
		WithdrawalID:  withdrawalID,
		TransactionID: transactionID,
		Currency:      currency,
		Amount:        send,
		NetworkFee:    network.Fee,
		Address:       address,
		AddressTag:    optionalString(input.AddressTag),
		NetworkID:     network.NetworkID,
		NetworkName:   network.NetworkName,
		Status:        models.WithdrawalPending,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.withdrawals.Create(ctx, tx, &row); err != nil {
			return err
		}
		return s.ledger.Create(ctx, tx, models.Transaction{
			ID:              uuid.NewString(),
			UserID:          user.ID,
			TransactionType: models.TxTypeWithdrawal,
			Currency:        currency,
			Amount:          row.DebitAmount(),
			Status:          models.TxStatusPending,
			WalletAddress:   &row.Address,
			Reference:       withdrawalReference(withdrawalID),
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			zap.L().Info("duplicate withdrawal ignored", zap.String("withdrawal_id", withdrawalID))
			return models.WithdrawalRequest{}, ErrDuplicateRequest
		}
		return models.WithdrawalRequest{}, err
	}

	zap.L().Info("withdrawal submitted",
		zap.Int64("user_id", user.ID),
		zap.Int64("request_id", row.ID),
		zap.String("withdrawal_id", withdrawalID),
		zap.String("amount", send.String()),
		zap.String("fee", network.Fee.String()))
	if err := s.notifier.WithdrawalSubmitted(ctx, user.TelegramID, row); err != nil {
		zap.L().Warn("withdrawal submitted notification failed", zap.Int64("request_id", row.ID), zap.Error(err))
	}
	s.hub.BroadcastRequest(websocket.RequestEvent{
		Kind:       models.ActionWithdrawal,
		RequestID:  row.ID,
		ExternalID: withdrawalID,
		UserID:     user.ID,
		Status:     row.Status,
		Amount:     row.Amount.String(),
		Currency:   currency,
	})
	return row, nil
}

func (s *RequestService) lookupUser(ctx context.Context, telegramID int64) (models.User, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *RequestService) consumeToken(ctx context.Context, token string, userID int64, action string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		if s.requireToken {
			return ErrTokenRequired
		}
		return nil
	}
	if _, err := uuid.Parse(token); err != nil {
		return ErrTokenInvalid
	}
	ok, err := s.tokens.Consume(ctx, token, userID, action)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if !ok {
		return ErrTokenInvalid
	}
	return nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
