package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"mobeebot/internal/exchange"
	"mobeebot/internal/models"
	"mobeebot/internal/services"
	"mobeebot/internal/store"
)

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

type RequestService interface {
	CreateDeposit(ctx context.Context, input services.DepositInput) (models.DepositRequest, error)
	CreateWithdrawal(ctx context.Context, input services.WithdrawalInput) (models.WithdrawalRequest, error)
}

type Reconciler interface {
	UpdateDepositStatus(ctx context.Context, id int64, update services.DepositUpdate) (services.DepositOutcome, error)
	UpdateWithdrawalStatus(ctx context.Context, id int64, update services.WithdrawalUpdate) (services.WithdrawalOutcome, error)
	AdjustBalance(ctx context.Context, input services.AdjustmentInput) (decimal.Decimal, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

type DepositStore interface {
	GetByDepositID(ctx context.Context, depositID string) (models.DepositRequest, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.DepositRequest, error)
}

type WithdrawalStore interface {
	GetByWithdrawalID(ctx context.Context, withdrawalID string) (models.WithdrawalRequest, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error)
}

type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (models.Admin, error)
	GetByID(ctx context.Context, id int64) (models.Admin, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, adminID *int64, action, entityType, entityID, details string) error
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

type AddressStore interface {
	Upsert(ctx context.Context, tx store.Execer, a models.CryptoAddress) error
}

type ExchangeReader interface {
	GetBalances(ctx context.Context, currency string) (map[string]decimal.Decimal, error)
	GetAllAddresses(ctx context.Context) ([]exchange.DepositAddress, error)
}

type CallbackVerifier interface {
	Verify(method, path, timestamp, signature string, body []byte, maxSkew time.Duration) error
}
