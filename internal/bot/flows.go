package bot

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mobeebot/internal/models"
	"mobeebot/internal/money"
	"mobeebot/internal/services"
	"mobeebot/internal/session"
)

func (h *Handler) captureAmount(ctx context.Context, msg *tgbotapi.Message, state session.State) error {
	chatID := msg.Chat.ID
	amount, err := money.ParseAmount(msg.Text)
	if err != nil {
		return h.send(chatID, invalidAmountText(err), cancelKeyboard())
	}
	switch state.Flow {
	case session.FlowDeposit:
		return h.acceptDepositAmount(ctx, msg, amount)
	case session.FlowWithdrawal:
		return h.acceptWithdrawalAmount(ctx, msg, state, amount)
	default:
		if err := h.sessions.Clear(ctx, chatID); err != nil {
			return err
		}
		return h.send(chatID, msgMainMenu, mainMenuKeyboard())
	}
}

func (h *Handler) acceptDepositAmount(ctx context.Context, msg *tgbotapi.Message, amount decimal.Decimal) error {
	chatID := msg.Chat.ID
	fiat := h.catalog.Fiat
	if !amount.IsInteger() {
		return h.send(chatID, msgWholeAmount, cancelKeyboard())
	}
	if amount.LessThan(fiat.MinDeposit) {
		return h.send(chatID, belowMinimumText(fiat.MinDeposit, fiat.Currency, true), cancelKeyboard())
	}
	user, _, err := h.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	token, err := h.requests.IssueToken(ctx, user.ID, models.ActionDeposit)
	if err != nil {
		return err
	}
	if err := h.sessions.Clear(ctx, chatID); err != nil {
		return err
	}
	links := make([]bankLink, 0, len(fiat.Banks))
	for _, bank := range fiat.Banks {
		links = append(links, bankLink{Bank: bank, URL: h.depositURL(user.TelegramID, amount, bank, token)})
	}
	zap.L().Info("deposit link issued", zap.Int64("user_id", user.ID), zap.String("amount", amount.String()))
	return h.send(chatID, chooseBankText(amount, fiat.Currency), bankKeyboard(links))
}

func (h *Handler) acceptWithdrawalAmount(ctx context.Context, msg *tgbotapi.Message, state session.State, amount decimal.Decimal) error {
	chatID := msg.Chat.ID
	user, _, err := h.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	pending, err := h.withdrawals.PendingDebits(ctx, user.ID)
	if err != nil {
		return err
	}
	network, err := h.requests.CheckWithdrawal(user, pending, state.Currency, state.NetworkID, amount)
	if err != nil {
		configured, _ := h.catalog.NetworkByID(state.Currency, state.NetworkID)
		text, ok := withdrawalGuardText(err, configured, user.Balance.Sub(pending))
		if !ok {
			return err
		}
		if errors.Is(err, services.ErrUnknownNetwork) {
			if clearErr := h.sessions.Clear(ctx, chatID); clearErr != nil {
				return clearErr
			}
			return h.send(chatID, text, mainMenuKeyboard())
		}
		return h.send(chatID, text, cancelKeyboard())
	}
	if err := h.sessions.Set(ctx, chatID, state.AwaitingAddress(amount)); err != nil {
		return err
	}
	return h.send(chatID, addressPrompt(network, amount), cancelKeyboard())
}

func (h *Handler) captureAddress(ctx context.Context, msg *tgbotapi.Message, state session.State) error {
	chatID := msg.Chat.ID
	network, ok := h.catalog.NetworkByID(state.Currency, state.NetworkID)
	if !ok {
		if err := h.sessions.Clear(ctx, chatID); err != nil {
			return err
		}
		return h.send(chatID, msgWithdrawUnavailable, mainMenuKeyboard())
	}
	address := strings.TrimSpace(msg.Text)
	if err := services.CheckAddress(network, address); err != nil {
		return h.send(chatID, invalidAddressText(network), cancelKeyboard())
	}
	user, _, err := h.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	token, err := h.requests.IssueToken(ctx, user.ID, models.ActionWithdrawal)
	if err != nil {
		return err
	}
	if err := h.sessions.Clear(ctx, chatID); err != nil {
		return err
	}
	link := h.withdrawURL(user.TelegramID, state.Currency, state.Amount, address, network.NetworkID, token)
	zap.L().Info("withdrawal link issued",
		zap.Int64("user_id", user.ID),
		zap.String("currency", state.Currency),
		zap.String("amount", state.Amount.String()))
	return h.send(chatID, confirmWithdrawalText(network, state.Amount, address), confirmKeyboard(link))
}

func (h *Handler) depositURL(telegramID int64, amount decimal.Decimal, bank, token string) string {
	return h.publicURL + "/create-deposit/" + strings.Join([]string{
		strconv.FormatInt(telegramID, 10),
		amount.String(),
		url.PathEscape(bank),
		token,
	}, "/")
}

func (h *Handler) withdrawURL(telegramID int64, currency string, amount decimal.Decimal, address string, networkID int64, token string) string {
	return h.publicURL + "/create-withdraw/" + strings.Join([]string{
		strconv.FormatInt(telegramID, 10),
		url.PathEscape(currency),
		amount.String(),
		url.PathEscape(address),
		strconv.FormatInt(networkID, 10),
		token,
	}, "/")
}
