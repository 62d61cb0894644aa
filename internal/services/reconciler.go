package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mobeebot/internal/db"
	"mobeebot/internal/models"
	"mobeebot/internal/store"
	"mobeebot/internal/websocket"
)

const (
	SourceAdmin    = "admin"
	SourceExchange = "exchange"
)

// Reconciler owns every balance mutation. Request status changes go through
// it so that a credit or debit happens only on a real pending to terminal
// edge, and at most once per request.
type Reconciler struct {
	txRunner        db.TxRunner
	users           UserStore
	deposits        DepositStore
	withdrawals     WithdrawalStore
	ledger          LedgerStore
	audit           AuditLogger
	notifier        Notifier
	hub             Broadcaster
	balanceCurrency string
}

func NewReconciler(txRunner db.TxRunner, users UserStore, deposits DepositStore, withdrawals WithdrawalStore, ledger LedgerStore, audit AuditLogger, notifier Notifier, hub Broadcaster, balanceCurrency string) *Reconciler {
	return &Reconciler{
		txRunner:        txRunner,
		users:           users,
		deposits:        deposits,
		withdrawals:     withdrawals,
		ledger:          ledger,
		audit:           audit,
		notifier:        notifier,
		hub:             hub,
		balanceCurrency: balanceCurrency,
	}
}

type DepositUpdate struct {
	Status          string
	ConversionRate  *decimal.Decimal
	ConvertedAmount *decimal.Decimal
	AdminID         *int64
	Source          string
}

type DepositOutcome struct {
	Deposit  models.DepositRequest
	Changed  bool
	Credited decimal.Decimal
	Balance  decimal.Decimal
}

type WithdrawalUpdate struct {
	Status         string
	TxnHash        *string
	ExplorerURL    *string
	RejectedReason *string
	AdminID        *int64
	Source         string
}

type WithdrawalOutcome struct {
	Withdrawal models.WithdrawalRequest
	Changed    bool
	Debited    decimal.Decimal
	Balance    decimal.Decimal
}

func NormalizeDepositStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending":
		return models.DepositPending, nil
	case "completed", "complete", "success", "paid":
		return models.DepositCompleted, nil
	case "failed", "expired", "cancelled", "canceled":
		return models.DepositFailed, nil
	default:
		return "", ErrInvalidStatus
	}
}

func NormalizeWithdrawalStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending":
		return models.WithdrawalPending, nil
	case "confirmed", "completed", "success":
		return models.WithdrawalConfirmed, nil
	case "rejected", "failed":
		return models.WithdrawalRejected, nil
	default:
		return "", ErrInvalidStatus
	}
}

func (r *Reconciler) UpdateDepositStatus(ctx context.Context, id int64, update DepositUpdate) (DepositOutcome, error) {
	target, err := NormalizeDepositStatus(update.Status)
	if err != nil {
		return DepositOutcome{}, err
	}
	var out DepositOutcome
	var owner models.User
	err = r.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		out = DepositOutcome{}
		dep, err := r.deposits.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		out.Deposit = dep
		if dep.Status == target {
			return nil
		}
		if dep.Status != models.DepositPending {
			return ErrInvalidTransition
		}
		rows, err := r.deposits.TransitionStatus(ctx, tx, id, target, update.ConversionRate, update.ConvertedAmount)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		out.Changed = true
		dep.Status = target
		if update.ConversionRate != nil {
			dep.ConversionRate = update.ConversionRate
		}
		if update.ConvertedAmount != nil {
			dep.ConvertedAmount = update.ConvertedAmount
		}
		out.Deposit = dep

		owner, err = r.users.GetForUpdate(ctx, tx, dep.UserID)
		if err != nil {
			return err
		}
		out.Balance = owner.Balance

		ledgerRow := models.Transaction{
			UserID:          dep.UserID,
			TransactionType: models.TxTypeDeposit,
			Currency:        dep.Currency,
			Amount:          dep.Amount,
			Status:          models.TxStatusFailed,
		}
		if target == models.DepositCompleted {
			marked, err := r.deposits.MarkCredited(ctx, tx, id)
			if err != nil {
				return err
			}
			if marked == 1 {
				credit := dep.CreditAmount()
				balance, err := r.users.AdjustBalance(ctx, tx, dep.UserID, credit)
				if err != nil {
					return err
				}
				out.Credited = credit
				out.Balance = balance
			}
			ledgerRow.Status = models.TxStatusCompleted
			ledgerRow.Amount = dep.CreditAmount()
			if dep.Converted() {
				ledgerRow.Currency = r.balanceCurrency
			}
		}
		if err := r.upsertLedger(ctx, tx, depositReference(dep.DepositID), ledgerRow); err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]string{
			"from":     models.DepositPending,
			"to":       target,
			"source":   update.Source,
			"credited": out.Credited.String(),
		})
		return r.audit.Log(ctx, tx, update.AdminID, "deposit.status", "deposit_request", strconv.FormatInt(id, 10), string(details))
	})
	if err != nil {
		return DepositOutcome{}, err
	}
	if !out.Changed {
		return out, nil
	}

	zap.L().Info("deposit status changed",
		zap.Int64("request_id", id),
		zap.String("deposit_id", out.Deposit.DepositID),
		zap.String("status", target),
		zap.String("credited", out.Credited.String()),
		zap.String("source", update.Source))

	var notifyErr error
	switch target {
	case models.DepositCompleted:
		notifyErr = r.notifier.DepositCompleted(ctx, owner.TelegramID, out.Deposit, out.Credited, out.Balance)
	case models.DepositFailed:
		notifyErr = r.notifier.DepositFailed(ctx, owner.TelegramID, out.Deposit)
	}
	if notifyErr != nil {
		zap.L().Warn("deposit notification failed", zap.Int64("request_id", id), zap.Error(notifyErr))
	}
	r.hub.BroadcastRequest(websocket.RequestEvent{
		Kind:       models.ActionDeposit,
		RequestID:  id,
		ExternalID: out.Deposit.DepositID,
		UserID:     out.Deposit.UserID,
		Status:     target,
		Amount:     out.Deposit.Amount.String(),
		Currency:   out.Deposit.Currency,
		Balance:    out.Balance.String(),
	})
	return out, nil
}

func (r *Reconciler) UpdateWithdrawalStatus(ctx context.Context, id int64, update WithdrawalUpdate) (WithdrawalOutcome, error) {
	target, err := NormalizeWithdrawalStatus(update.Status)
	if err != nil {
		return WithdrawalOutcome{}, err
	}
	var out WithdrawalOutcome
	var owner *models.User
	err = r.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		out = WithdrawalOutcome{}
		owner = nil
		wd, err := r.withdrawals.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		out.Withdrawal = wd
		if wd.Status == target {
			return nil
		}
		if wd.Status != models.WithdrawalPending {
			return ErrInvalidTransition
		}
		rows, err := r.withdrawals.TransitionStatus(ctx, tx, id, store.WithdrawalTransition{
			Status:         target,
			TxnHash:        update.TxnHash,
			ExplorerURL:    update.ExplorerURL,
			RejectedReason: update.RejectedReason,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		out.Changed = true
		wd.Status = target
		if update.TxnHash != nil {
			wd.TxnHash = update.TxnHash
		}
		if update.ExplorerURL != nil {
			wd.ExplorerURL = update.ExplorerURL
		}
		if update.RejectedReason != nil {
			wd.RejectedReason = update.RejectedReason
		}
		out.Withdrawal = wd

		// Orphaned withdrawals change status with no balance or ledger effect.
		if wd.UserID == nil {
			return r.logWithdrawalAudit(ctx, tx, id, target, update, out.Debited)
		}
		user, err := r.users.GetForUpdate(ctx, tx, *wd.UserID)
		if err != nil {
			return err
		}
		owner = &user
		out.Balance = user.Balance

		ledgerRow := models.Transaction{
			UserID:          *wd.UserID,
			TransactionType: models.TxTypeWithdrawal,
			Currency:        wd.Currency,
			Amount:          wd.DebitAmount(),
			Status:          models.TxStatusFailed,
			TxHash:          wd.TxnHash,
			WalletAddress:   &wd.Address,
		}
		if target == models.WithdrawalConfirmed {
			marked, err := r.withdrawals.MarkDebited(ctx, tx, id)
			if err != nil {
				return err
			}
			if marked == 1 {
				debit := wd.DebitAmount()
				balance, err := r.users.AdjustBalance(ctx, tx, *wd.UserID, debit.Neg())
				if err != nil {
					if errors.Is(err, store.ErrBalanceConstraint) {
						return ErrInsufficientFunds
					}
					return err
				}
				out.Debited = debit
				out.Balance = balance
			}
			ledgerRow.Status = models.TxStatusCompleted
		}
		if err := r.upsertLedger(ctx, tx, withdrawalReference(wd.WithdrawalID), ledgerRow); err != nil {
			return err
		}
		return r.logWithdrawalAudit(ctx, tx, id, target, update, out.Debited)
	})
	if err != nil {
		return WithdrawalOutcome{}, err
	}
	if !out.Changed {
		return out, nil
	}

	zap.L().Info("withdrawal status changed",
		zap.Int64("request_id", id),
		zap.String("withdrawal_id", out.Withdrawal.WithdrawalID),
		zap.String("status", target),
		zap.String("debited", out.Debited.String()),
		zap.String("source", update.Source))

	var userID int64
	if owner != nil {
		userID = owner.ID
		var notifyErr error
		switch target {
		case models.WithdrawalConfirmed:
			notifyErr = r.notifier.WithdrawalConfirmed(ctx, owner.TelegramID, out.Withdrawal, out.Balance)
		case models.WithdrawalRejected:
			notifyErr = r.notifier.WithdrawalRejected(ctx, owner.TelegramID, out.Withdrawal)
		}
		if notifyErr != nil {
			zap.L().Warn("withdrawal notification failed", zap.Int64("request_id", id), zap.Error(notifyErr))
		}
	}
	event := websocket.RequestEvent{
		Kind:       models.ActionWithdrawal,
		RequestID:  id,
		ExternalID: out.Withdrawal.WithdrawalID,
		UserID:     userID,
		Status:     target,
		Amount:     out.Withdrawal.Amount.String(),
		Currency:   out.Withdrawal.Currency,
	}
	if owner != nil {
		event.Balance = out.Balance.String()
	}
	r.hub.BroadcastRequest(event)
	return out, nil
}

func (r *Reconciler) logWithdrawalAudit(ctx context.Context, tx *sqlx.Tx, id int64, target string, update WithdrawalUpdate, debited decimal.Decimal) error {
	details, _ := json.Marshal(map[string]string{
		"from":    models.WithdrawalPending,
		"to":      target,
		"source":  update.Source,
		"debited": debited.String(),
	})
	return r.audit.Log(ctx, tx, update.AdminID, "withdrawal.status", "withdrawal_request", strconv.FormatInt(id, 10), string(details))
}

type AdjustmentInput struct {
	UserID  int64
	Delta   decimal.Decimal
	Reason  string
	AdminID int64
}

func (r *Reconciler) AdjustBalance(ctx context.Context, input AdjustmentInput) (decimal.Decimal, error) {
	if input.Delta.IsZero() {
		return decimal.Zero, ErrInvalidAmount
	}
	var balance decimal.Decimal
	reference := "adjustment:" + uuid.NewString()
	err := r.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.users.GetForUpdate(ctx, tx, input.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		var err error
		balance, err = r.users.AdjustBalance(ctx, tx, input.UserID, input.Delta)
		if err != nil {
			if errors.Is(err, store.ErrBalanceConstraint) {
				return ErrInsufficientFunds
			}
			return err
		}
		if err := r.ledger.Create(ctx, tx, models.Transaction{
			ID:              uuid.NewString(),
			UserID:          input.UserID,
			TransactionType: models.TxTypeAdjustment,
			Currency:        r.balanceCurrency,
			Amount:          input.Delta,
			Status:          models.TxStatusCompleted,
			Reference:       reference,
		}); err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]string{
			"delta":   input.Delta.String(),
			"reason":  input.Reason,
			"balance": balance.String(),
		})
		adminID := input.AdminID
		return r.audit.Log(ctx, tx, &adminID, "user.balance_adjust", "user", strconv.FormatInt(input.UserID, 10), string(details))
	})
	if err != nil {
		return decimal.Zero, err
	}
	zap.L().Info("balance adjusted",
		zap.Int64("user_id", input.UserID),
		zap.Int64("admin_id", input.AdminID),
		zap.String("delta", input.Delta.String()))
	r.hub.BroadcastRequest(websocket.RequestEvent{
		Kind:     models.TxTypeAdjustment,
		UserID:   input.UserID,
		Status:   models.TxStatusCompleted,
		Amount:   input.Delta.String(),
		Currency: r.balanceCurrency,
		Balance:  balance.String(),
	})
	return balance, nil
}

func (r *Reconciler) upsertLedger(ctx context.Context, tx *sqlx.Tx, reference string, row models.Transaction) error {
	rows, err := r.ledger.UpdateByReference(ctx, tx, reference, row)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	row.ID = uuid.NewString()
	row.Reference = reference
	return r.ledger.Create(ctx, tx, row)
}
