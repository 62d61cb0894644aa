package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"mobeebot/internal/models"
)

func TestWithdrawalStoreCreate(t *testing.T) {
	userID := int64(1)
	tx := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "INSERT INTO withdrawal_requests") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 11 || args[1] != "w-1" || args[10] != models.WithdrawalPending {
				t.Fatalf("unexpected args: %#v", args)
			}
			if amount := args[4].(decimal.Decimal); amount.String() != "18.5" {
				t.Fatalf("unexpected amount: %s", amount)
			}
			*dest.(*int64) = 4
			return nil
		},
	}
	w := &models.WithdrawalRequest{
		UserID: &userID, WithdrawalID: "w-1", TransactionID: "t-1", Currency: "USDT",
		Amount: decimal.RequireFromString("18.50"), NetworkFee: decimal.RequireFromString("1.5"),
		Address: "0xabc", NetworkID: 12, NetworkName: "Polygon", Status: models.WithdrawalPending,
	}
	if err := NewWithdrawalStore(stubDB{}).Create(context.Background(), tx, w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.ID != 4 {
		t.Fatalf("expected id to be set")
	}
}

func TestWithdrawalStoreCreateDuplicate(t *testing.T) {
	tx := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			return &pq.Error{Code: "23505"}
		},
	}
	if err := NewWithdrawalStore(stubDB{}).Create(context.Background(), tx, &models.WithdrawalRequest{}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestWithdrawalStoreTransitionStatus(t *testing.T) {
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "status = 'Pending'") || !strings.Contains(query, "confirmed_at = CASE") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != models.WithdrawalConfirmed || args[4] != int64(4) {
				t.Fatalf("unexpected args: %#v", args)
			}
			if hash := args[1].(*string); hash == nil || *hash != "0xhash" {
				t.Fatalf("unexpected hash: %#v", args[1])
			}
			return stubResult{rows: 1}, nil
		},
	}
	rows, err := NewWithdrawalStore(stubDB{}).TransitionStatus(context.Background(), execer, 4, WithdrawalTransition{
		Status:  models.WithdrawalConfirmed,
		TxnHash: strPtr("0xhash"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected one row")
	}
}

func TestWithdrawalStoreMarkDebited(t *testing.T) {
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "debited_at IS NULL") || !strings.Contains(query, "status = 'Confirmed'") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 1}, nil
		},
	}
	rows, err := NewWithdrawalStore(stubDB{}).MarkDebited(context.Background(), execer, 4)
	if err != nil || rows != 1 {
		t.Fatalf("unexpected result: %d %v", rows, err)
	}
}

func TestWithdrawalStoreGetByWithdrawalID(t *testing.T) {
	store := NewWithdrawalStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE withdrawal_id = $1") || args[0] != "w-1" {
				t.Fatalf("unexpected query: %s %#v", query, args)
			}
			*dest.(*models.WithdrawalRequest) = models.WithdrawalRequest{ID: 4, WithdrawalID: "w-1"}
			return nil
		},
	})
	row, err := store.GetByWithdrawalID(context.Background(), "w-1")
	if err != nil || row.ID != 4 {
		t.Fatalf("unexpected result: %#v %v", row, err)
	}
}

func TestWithdrawalStorePendingDebits(t *testing.T) {
	store := NewWithdrawalStore(stubDB{
		getFn: func(ctx context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "status = 'Pending'") || !strings.Contains(query, "amount + network_fee") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != int64(3) {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*decimal.Decimal) = decimal.RequireFromString("20")
			return nil
		},
	})
	total, err := store.PendingDebits(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected total %s", total)
	}
}
