package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"mobeebot/internal/session"
)

const historyLimit = 10

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if _, err := h.sender.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		zap.L().Warn("callback answer failed", zap.String("callback_id", q.ID), zap.Error(err))
	}
	if q.From == nil {
		return nil
	}
	chatID := callbackChatID(q)
	messageID := 0
	if q.Message != nil {
		messageID = q.Message.MessageID
	}
	c := callback{chatID: chatID, messageID: messageID, from: q.From}

	data := strings.TrimSpace(q.Data)
	switch {
	case data == "main_menu":
		if err := h.sessions.Clear(ctx, chatID); err != nil {
			return err
		}
		return h.show(chatID, messageID, msgMainMenu, mainMenuKeyboard())
	case data == "balance":
		return h.showBalance(ctx, c)
	case data == "profit":
		return h.showProfit(ctx, c)
	case data == "deposit":
		return h.showDepositMenu(ctx, c)
	case data == "withdraw", data == "withdrawal":
		return h.showWithdrawMenu(ctx, c)
	case data == "history":
		return h.showHistory(ctx, c)
	case data == "faq":
		return h.showFAQCategories(ctx, c)
	case data == "support":
		return h.show(chatID, messageID, supportText(h.catalog.SupportUsername), supportKeyboard(h.catalog.SupportUsername))
	case data == "copy_trading":
		return h.show(chatID, messageID, copyTradingText(h.catalog.SupportUsername), supportKeyboard(h.catalog.SupportUsername))
	case data == "referral":
		return h.showReferral(ctx, c)
	case strings.HasPrefix(data, "deposit_"):
		return h.startDeposit(ctx, c, strings.ToUpper(strings.TrimPrefix(data, "deposit_")))
	case strings.HasPrefix(data, "withdraw_"):
		return h.startWithdrawal(ctx, c, strings.ToUpper(strings.TrimPrefix(data, "withdraw_")))
	case strings.HasPrefix(data, "faq_"):
		return h.showFAQ(ctx, c, strings.TrimPrefix(data, "faq_"))
	default:
		zap.L().Info("unknown callback", zap.String("data", data), zap.Int64("chat_id", chatID))
		return h.show(chatID, messageID, msgMainMenu, mainMenuKeyboard())
	}
}

type callback struct {
	chatID    int64
	messageID int
	from      *tgbotapi.User
}

func (h *Handler) showBalance(ctx context.Context, c callback) error {
	user, _, err := h.ensureUser(ctx, c.from)
	if err != nil {
		return err
	}
	return h.show(c.chatID, c.messageID, balanceText(user, h.catalog.BalanceCurrency), backKeyboard())
}

func (h *Handler) showProfit(ctx context.Context, c callback) error {
	user, _, err := h.ensureUser(ctx, c.from)
	if err != nil {
		return err
	}
	return h.show(c.chatID, c.messageID, profitText(user, h.catalog.BalanceCurrency), backKeyboard())
}

func (h *Handler) showDepositMenu(ctx context.Context, c callback) error {
	currencies := []string{h.catalog.Fiat.Currency}
	crypto, err := h.addresses.Currencies(ctx)
	if err != nil {
		return err
	}
	for _, cur := range crypto {
		if !h.catalog.IsFiat(cur) {
			currencies = append(currencies, cur)
		}
	}
	return h.show(c.chatID, c.messageID, msgChooseDepositCurrency, currencyKeyboard("deposit_", currencies))
}

func (h *Handler) startDeposit(ctx context.Context, c callback, currency string) error {
	if h.catalog.IsFiat(currency) {
		state := session.AwaitingAmount(session.FlowDeposit, h.catalog.Fiat.Currency, 0)
		if err := h.sessions.Set(ctx, c.chatID, state); err != nil {
			return err
		}
		return h.show(c.chatID, c.messageID, depositAmountPrompt(h.catalog.Fiat), cancelKeyboard())
	}
	addresses, err := h.addresses.ListActive(ctx, currency)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return h.show(c.chatID, c.messageID, noAddressText(currency), backKeyboard())
	}
	return h.show(c.chatID, c.messageID, cryptoAddressText(currency, addresses), backKeyboard())
}

func (h *Handler) showWithdrawMenu(ctx context.Context, c callback) error {
	user, _, err := h.ensureUser(ctx, c.from)
	if err != nil {
		return err
	}
	currencies := h.catalog.WithdrawCurrencies()
	if len(currencies) == 0 {
		return h.show(c.chatID, c.messageID, msgWithdrawUnavailable, backKeyboard())
	}
	return h.show(c.chatID, c.messageID, withdrawMenuText(user, h.catalog.BalanceCurrency), currencyKeyboard("withdraw_", currencies))
}

func (h *Handler) startWithdrawal(ctx context.Context, c callback, currency string) error {
	network, ok := h.catalog.Network(currency)
	if !ok {
		return h.show(c.chatID, c.messageID, msgWithdrawUnavailable, backKeyboard())
	}
	user, _, err := h.ensureUser(ctx, c.from)
	if err != nil {
		return err
	}
	state := session.AwaitingAmount(session.FlowWithdrawal, network.Currency, network.NetworkID)
	if err := h.sessions.Set(ctx, c.chatID, state); err != nil {
		return err
	}
	return h.show(c.chatID, c.messageID, withdrawAmountPrompt(network, user.Balance), cancelKeyboard())
}

func (h *Handler) showHistory(ctx context.Context, c callback) error {
	user, _, err := h.ensureUser(ctx, c.from)
	if err != nil {
		return err
	}
	rows, err := h.ledger.ListByUser(ctx, user.ID, historyLimit)
	if err != nil {
		return err
	}
	return h.show(c.chatID, c.messageID, historyText(rows), backKeyboard())
}

func (h *Handler) showFAQCategories(ctx context.Context, c callback) error {
	categories, err := h.faqs.Categories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return h.show(c.chatID, c.messageID, msgNoFAQ, backKeyboard())
	}
	return h.show(c.chatID, c.messageID, msgFAQ, faqKeyboard(categories))
}

func (h *Handler) showFAQ(ctx context.Context, c callback, category string) error {
	entries, err := h.faqs.ByCategory(ctx, category)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return h.show(c.chatID, c.messageID, msgNoFAQ, faqBackKeyboard())
	}
	return h.show(c.chatID, c.messageID, faqText(category, entries), faqBackKeyboard())
}

func (h *Handler) showReferral(ctx context.Context, c callback) error {
	user, _, err := h.ensureUser(ctx, c.from)
	if err != nil {
		return err
	}
	count, err := h.users.CountReferrals(ctx, user.ID)
	if err != nil {
		return err
	}
	return h.show(c.chatID, c.messageID, referralText(user, h.botUsername, count), backKeyboard())
}
