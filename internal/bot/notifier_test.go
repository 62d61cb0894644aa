package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"mobeebot/internal/models"
)

func TestNotifierMessages(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, "USDT")
	ctx := context.Background()
	account := "8808123456789"
	bank := "BNI"
	expires := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	deposit := models.DepositRequest{
		DepositID:     "dep-1",
		Amount:        decimal.RequireFromString("15000"),
		Currency:      "IDR",
		AccountNumber: &account,
		BankCode:      &bank,
		ExpiredAt:     &expires,
	}
	reason := "address blacklisted"
	withdrawal := models.WithdrawalRequest{
		Currency:       "USDT",
		Amount:         decimal.RequireFromString("18.5"),
		NetworkFee:     decimal.RequireFromString("1.5"),
		NetworkName:    "Polygon",
		Address:        "0x498b7c3b408ea03dc5cc34dc967114b6f6e3669a",
		RejectedReason: &reason,
	}

	cases := []struct {
		name string
		call func() error
		want []string
	}{
		{"deposit created", func() error { return n.DepositCreated(ctx, 777, deposit) }, []string{"15,000 IDR", "<code>8808123456789</code>", "15 Oct 2026 12:00 UTC"}},
		{"deposit completed", func() error {
			return n.DepositCompleted(ctx, 777, deposit, decimal.RequireFromString("0.95"), decimal.RequireFromString("10.95"))
		}, []string{"Credited: 0.95 USDT", "New balance: 10.95 USDT"}},
		{"deposit failed", func() error { return n.DepositFailed(ctx, 777, deposit) }, []string{"did not go through"}},
		{"withdrawal submitted", func() error { return n.WithdrawalSubmitted(ctx, 777, withdrawal) }, []string{"18.50 USDT", "Fee: 1.50"}},
		{"withdrawal confirmed", func() error { return n.WithdrawalConfirmed(ctx, 777, withdrawal, decimal.RequireFromString("30")) }, []string{"New balance: 30.00 USDT"}},
		{"withdrawal rejected", func() error { return n.WithdrawalRejected(ctx, 777, withdrawal) }, []string{"not charged", "address blacklisted"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); err != nil {
				t.Fatalf("notify: %v", err)
			}
			text, _ := sender.last(t)
			for _, want := range tc.want {
				if !strings.Contains(text, want) {
					t.Fatalf("expected %q in %q", want, text)
				}
			}
			msg := sender.sent[len(sender.sent)-1].(tgbotapi.MessageConfig)
			if msg.ChatID != 777 || msg.ParseMode != tgbotapi.ModeHTML {
				t.Fatalf("unexpected message config %+v", msg.BaseChat)
			}
		})
	}
}
