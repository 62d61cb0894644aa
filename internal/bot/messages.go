package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"mobeebot/internal/config"
	"mobeebot/internal/models"
	"mobeebot/internal/money"
	"mobeebot/internal/services"
)

const (
	msgMainMenu              = "🏠 <b>Main menu</b>\nChoose an option below."
	msgCancelled             = "Cancelled. Back to the main menu."
	msgUnknownCommand        = "I don't know that command. Use the menu below."
	msgGenericFailure        = "⚠️ Something went wrong. Please try again in a moment."
	msgChooseDepositCurrency = "➕ <b>Deposit</b>\nChoose the currency you want to deposit."
	msgWithdrawUnavailable   = "Withdrawals are not available for this currency right now."
	msgWholeAmount           = "Please enter a whole amount without decimals."
	msgFAQ                   = "❓ <b>FAQ</b>\nPick a topic."
	msgNoFAQ                 = "There are no answers here yet."
	timeLayout               = "02 Jan 2006 15:04 MST"
)

func welcomeText(user models.User) string {
	return fmt.Sprintf("👋 Hi %s, welcome to Mobee!\n\nDeposit, withdraw and follow your balance right here.", html.EscapeString(user.DisplayName()))
}

func balanceText(user models.User, currency string) string {
	return fmt.Sprintf("💰 <b>Balance</b>\n%s %s", money.FormatCrypto(user.Balance), currency)
}

func profitText(user models.User, currency string) string {
	return fmt.Sprintf("📈 <b>Profit</b>\n%s %s", money.FormatCrypto(user.Profit), currency)
}

func withdrawMenuText(user models.User, currency string) string {
	return fmt.Sprintf("➖ <b>Withdraw</b>\nAvailable: %s %s\nChoose the currency to withdraw.", money.FormatCrypto(user.Balance), currency)
}

func depositAmountPrompt(fiat config.FiatConfig) string {
	return fmt.Sprintf("Enter the amount in %s you want to deposit (minimum %s).", fiat.Currency, money.FormatFiat(fiat.MinDeposit))
}

func chooseBankText(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("Deposit of <b>%s %s</b>.\nChoose your bank to get a virtual account. The link works once.", money.FormatFiat(amount), currency)
}

func withdrawAmountPrompt(network config.WithdrawalNetwork, balance decimal.Decimal) string {
	return fmt.Sprintf("Enter the amount of %s to withdraw.\nNetwork: %s\nFee: %s\nMinimum: %s\nAvailable: %s",
		network.Currency,
		html.EscapeString(network.NetworkName),
		money.FormatCrypto(network.Fee),
		money.FormatCrypto(network.MinAmount),
		money.FormatCrypto(balance))
}

func addressPrompt(network config.WithdrawalNetwork, amount decimal.Decimal) string {
	return fmt.Sprintf("Send the %s address on %s that should receive %s %s.",
		network.Currency,
		html.EscapeString(network.NetworkName),
		money.FormatCrypto(amount.Sub(network.Fee)),
		network.Currency)
}

func confirmWithdrawalText(network config.WithdrawalNetwork, amount decimal.Decimal, address string) string {
	return fmt.Sprintf("Please confirm your withdrawal:\nAmount: %s %s\nFee: %s\nYou receive: %s %s\nNetwork: %s\nAddress: <code>%s</code>",
		money.FormatCrypto(amount), network.Currency,
		money.FormatCrypto(network.Fee),
		money.FormatCrypto(amount.Sub(network.Fee)), network.Currency,
		html.EscapeString(network.NetworkName),
		html.EscapeString(address))
}

func invalidAmountText(err error) string {
	if errors.Is(err, money.ErrTooManyDecimals) {
		return fmt.Sprintf("Use at most %d decimal places.", money.MaxDecimals)
	}
	return "That doesn't look like a valid amount. Please send a positive number."
}

func belowMinimumText(min decimal.Decimal, currency string, fiat bool) string {
	formatted := money.FormatCrypto(min)
	if fiat {
		formatted = money.FormatFiat(min)
	}
	return fmt.Sprintf("The minimum is %s %s. Please enter a larger amount.", formatted, currency)
}

func invalidAddressText(network config.WithdrawalNetwork) string {
	return fmt.Sprintf("That address doesn't look right. It needs at least %d characters and no spaces.", network.MinAddressLength)
}

func withdrawalGuardText(err error, network config.WithdrawalNetwork, available decimal.Decimal) (string, bool) {
	switch {
	case errors.Is(err, services.ErrInsufficientFunds):
		return fmt.Sprintf("Insufficient balance. The amount plus the %s fee must not exceed %s.",
			money.FormatCrypto(network.Fee), money.FormatCrypto(available)), true
	case errors.Is(err, services.ErrBelowMinimum):
		min := network.MinAmount
		if !min.GreaterThan(network.Fee) {
			min = network.Fee
		}
		return fmt.Sprintf("The amount must be at least %s %s and more than the %s fee.",
			money.FormatCrypto(min), network.Currency, money.FormatCrypto(network.Fee)), true
	case errors.Is(err, services.ErrInvalidAmount):
		return invalidAmountText(err), true
	case errors.Is(err, services.ErrUnknownNetwork):
		return msgWithdrawUnavailable, true
	default:
		return "", false
	}
}

func noAddressText(currency string) string {
	return fmt.Sprintf("No deposit address is available for %s right now.", html.EscapeString(currency))
}

func cryptoAddressText(currency string, addresses []models.CryptoAddress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "➕ <b>Deposit %s</b>\n", html.EscapeString(currency))
	for _, a := range addresses {
		fmt.Fprintf(&b, "\nNetwork: %s\nAddress: <code>%s</code>", html.EscapeString(a.Network), html.EscapeString(a.Address))
		if a.Memo != nil && *a.Memo != "" {
			fmt.Fprintf(&b, "\nMemo: <code>%s</code>", html.EscapeString(*a.Memo))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nOnly send ")
	b.WriteString(html.EscapeString(currency))
	b.WriteString(" on the network shown.")
	return b.String()
}

func statusIcon(status string) string {
	switch strings.ToLower(status) {
	case models.TxStatusCompleted:
		return "✅"
	case models.TxStatusFailed:
		return "❌"
	default:
		return "⏳"
	}
}

func historyText(rows []models.Transaction) string {
	if len(rows) == 0 {
		return "📜 <b>History</b>\nNo transactions yet."
	}
	var b strings.Builder
	b.WriteString("📜 <b>History</b>\n")
	for _, t := range rows {
		fmt.Fprintf(&b, "\n%s %s %s %s · %s",
			statusIcon(t.Status),
			capitalize(t.TransactionType),
			money.FormatCrypto(t.Amount),
			t.Currency,
			t.CreatedAt.Format("02 Jan 2006"))
	}
	return b.String()
}

func faqText(category string, entries []models.FAQ) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❓ <b>%s</b>\n", html.EscapeString(category))
	for _, e := range entries {
		fmt.Fprintf(&b, "\n<b>%s</b>\n%s\n", html.EscapeString(e.Question), html.EscapeString(e.Answer))
	}
	return b.String()
}

func supportText(username string) string {
	if username == "" {
		return "🆘 <b>Support</b>\nOur team will get back to you soon."
	}
	return fmt.Sprintf("🆘 <b>Support</b>\nWrite to @%s and we will help you.", html.EscapeString(username))
}

func copyTradingText(username string) string {
	if username == "" {
		return "🤝 <b>Copy Trading</b>\nContact support to join copy trading."
	}
	return fmt.Sprintf("🤝 <b>Copy Trading</b>\nTo join copy trading, contact @%s.", html.EscapeString(username))
}

func referralText(user models.User, botUsername string, count int) string {
	code := ""
	if user.ReferralCode != nil {
		code = *user.ReferralCode
	}
	if code == "" {
		return "🎁 <b>Referral</b>\nYour referral code is not ready yet. Send /start and try again."
	}
	return fmt.Sprintf("🎁 <b>Referral</b>\nCode: <code>%s</code>\nLink: https://t.me/%s?start=%s\nInvited: %d",
		html.EscapeString(code), botUsername, code, count)
}

func depositCreatedText(d models.DepositRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏦 <b>Deposit created</b>\nAmount: %s %s", money.FormatFiat(d.Amount), d.Currency)
	if d.BankCode != nil {
		fmt.Fprintf(&b, "\nBank: %s", html.EscapeString(*d.BankCode))
	}
	if d.AccountName != nil {
		fmt.Fprintf(&b, "\nAccount name: %s", html.EscapeString(*d.AccountName))
	}
	if d.AccountNumber != nil {
		fmt.Fprintf(&b, "\nVirtual account: <code>%s</code>", html.EscapeString(*d.AccountNumber))
	}
	if d.ExpiredAt != nil {
		fmt.Fprintf(&b, "\nPay before: %s", d.ExpiredAt.Format(timeLayout))
	}
	fmt.Fprintf(&b, "\nReference: <code>%s</code>", html.EscapeString(d.DepositID))
	return b.String()
}

func depositCompletedText(d models.DepositRequest, credited, balance decimal.Decimal, currency string) string {
	return fmt.Sprintf("✅ <b>Deposit completed</b>\nReference: <code>%s</code>\nCredited: %s %s\nNew balance: %s %s",
		html.EscapeString(d.DepositID),
		money.FormatCrypto(credited), currency,
		money.FormatCrypto(balance), currency)
}

func depositFailedText(d models.DepositRequest) string {
	return fmt.Sprintf("❌ <b>Deposit failed</b>\nYour deposit of %s %s (reference <code>%s</code>) did not go through.",
		money.FormatFiat(d.Amount), d.Currency, html.EscapeString(d.DepositID))
}

func withdrawalSubmittedText(w models.WithdrawalRequest) string {
	return fmt.Sprintf("📤 <b>Withdrawal submitted</b>\nAmount: %s %s\nFee: %s\nNetwork: %s\nAddress: <code>%s</code>\nWe'll let you know once it is confirmed.",
		money.FormatCrypto(w.Amount), w.Currency,
		money.FormatCrypto(w.NetworkFee),
		html.EscapeString(w.NetworkName),
		html.EscapeString(w.Address))
}

func withdrawalConfirmedText(w models.WithdrawalRequest, balance decimal.Decimal, balanceCurrency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ <b>Withdrawal confirmed</b>\nSent: %s %s\nNew balance: %s %s",
		money.FormatCrypto(w.Amount), w.Currency,
		money.FormatCrypto(balance), balanceCurrency)
	if w.ExplorerURL != nil && *w.ExplorerURL != "" {
		fmt.Fprintf(&b, "\nExplorer: %s", html.EscapeString(*w.ExplorerURL))
	} else if w.TxnHash != nil && *w.TxnHash != "" {
		fmt.Fprintf(&b, "\nTx hash: <code>%s</code>", html.EscapeString(*w.TxnHash))
	}
	return b.String()
}

func withdrawalRejectedText(w models.WithdrawalRequest) string {
	text := fmt.Sprintf("❌ <b>Withdrawal rejected</b>\nAmount: %s %s\nYour balance was not charged.",
		money.FormatCrypto(w.Amount), w.Currency)
	if w.RejectedReason != nil && *w.RejectedReason != "" {
		text += "\nReason: " + html.EscapeString(*w.RejectedReason)
	}
	return text
}

func capitalize(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
