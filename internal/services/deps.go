package services

import (
	"context"

	"github.com/shopspring/decimal"

	"mobeebot/internal/exchange"
	"mobeebot/internal/models"
	"mobeebot/internal/store"
	"mobeebot/internal/websocket"
)

type UserStore interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	GetForUpdate(ctx context.Context, tx store.Getter, id int64) (models.User, error)
	AdjustBalance(ctx context.Context, tx store.Getter, id int64, delta decimal.Decimal) (decimal.Decimal, error)
}

type DepositStore interface {
	Create(ctx context.Context, tx store.Getter, d *models.DepositRequest) error
	GetForUpdate(ctx context.Context, tx store.Getter, id int64) (models.DepositRequest, error)
	TransitionStatus(ctx context.Context, tx store.Execer, id int64, status string, rate, converted *decimal.Decimal) (int64, error)
	MarkCredited(ctx context.Context, tx store.Execer, id int64) (int64, error)
}

type WithdrawalStore interface {
	Create(ctx context.Context, tx store.Getter, w *models.WithdrawalRequest) error
	GetForUpdate(ctx context.Context, tx store.Getter, id int64) (models.WithdrawalRequest, error)
	TransitionStatus(ctx context.Context, tx store.Execer, id int64, t store.WithdrawalTransition) (int64, error)
	MarkDebited(ctx context.Context, tx store.Execer, id int64) (int64, error)
	PendingDebits(ctx context.Context, userID int64) (decimal.Decimal, error)
}

type LedgerStore interface {
	Create(ctx context.Context, tx store.Execer, t models.Transaction) error
	UpdateByReference(ctx context.Context, tx store.Execer, reference string, t models.Transaction) (int64, error)
}

type AuditLogger interface {
	Log(ctx context.Context, tx store.Execer, adminID *int64, action, entityType, entityID, details string) error
}

type TokenStore interface {
	Create(ctx context.Context, token string, userID int64, action string) error
	Consume(ctx context.Context, token string, userID int64, action string) (bool, error)
}

type Exchange interface {
	ValidateFiatDeposit(amount decimal.Decimal, bankCode string) error
	CreateFiatDeposit(ctx context.Context, amount decimal.Decimal, bankCode string) (*exchange.FiatDeposit, error)
	CreateCryptoWithdrawal(ctx context.Context, params exchange.WithdrawalParams) (*exchange.CryptoWithdrawal, error)
}

type Notifier interface {
	DepositCreated(ctx context.Context, telegramID int64, d models.DepositRequest) error
	DepositCompleted(ctx context.Context, telegramID int64, d models.DepositRequest, credited, balance decimal.Decimal) error
	DepositFailed(ctx context.Context, telegramID int64, d models.DepositRequest) error
	WithdrawalSubmitted(ctx context.Context, telegramID int64, w models.WithdrawalRequest) error
	WithdrawalConfirmed(ctx context.Context, telegramID int64, w models.WithdrawalRequest, balance decimal.Decimal) error
	WithdrawalRejected(ctx context.Context, telegramID int64, w models.WithdrawalRequest) error
}

type Broadcaster interface {
	BroadcastRequest(event websocket.RequestEvent)
}

func depositReference(depositID string) string {
	return "deposit:" + depositID
}

func withdrawalReference(withdrawalID string) string {
	return "withdrawal:" + withdrawalID
}
