package bot

import (
	"context"

	"github.com/shopspring/decimal"

	"mobeebot/internal/models"
)

type Notifier struct {
	sender          Sender
	balanceCurrency string
}

func NewNotifier(sender Sender, balanceCurrency string) *Notifier {
	return &Notifier{sender: sender, balanceCurrency: balanceCurrency}
}

func (n *Notifier) DepositCreated(ctx context.Context, telegramID int64, d models.DepositRequest) error {
	return n.send(telegramID, depositCreatedText(d))
}

func (n *Notifier) DepositCompleted(ctx context.Context, telegramID int64, d models.DepositRequest, credited, balance decimal.Decimal) error {
	return n.send(telegramID, depositCompletedText(d, credited, balance, n.balanceCurrency))
}

func (n *Notifier) DepositFailed(ctx context.Context, telegramID int64, d models.DepositRequest) error {
	return n.send(telegramID, depositFailedText(d))
}

func (n *Notifier) WithdrawalSubmitted(ctx context.Context, telegramID int64, w models.WithdrawalRequest) error {
	return n.send(telegramID, withdrawalSubmittedText(w))
}

func (n *Notifier) WithdrawalConfirmed(ctx context.Context, telegramID int64, w models.WithdrawalRequest, balance decimal.Decimal) error {
	return n.send(telegramID, withdrawalConfirmedText(w, balance, n.balanceCurrency))
}

func (n *Notifier) WithdrawalRejected(ctx context.Context, telegramID int64, w models.WithdrawalRequest) error {
	return n.send(telegramID, withdrawalRejectedText(w))
}

func (n *Notifier) send(chatID int64, text string) error {
	return sendHTML(n.sender, chatID, text, mainMenuKeyboard())
}
