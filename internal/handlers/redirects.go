package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mobeebot/internal/money"
	"mobeebot/internal/services"
	"mobeebot/internal/validator"
)

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	link := validator.DepositLink{
		UserID:   parseID(chi.URLParam(r, "userID")),
		Amount:   pathParam(r, "amount"),
		BankCode: strings.ToUpper(pathParam(r, "bankCode")),
		Token:    pathParam(r, "token"),
	}
	if err := validator.Struct(link); err != nil {
		http.Error(w, "invalid deposit link", http.StatusBadRequest)
		return
	}
	amount, err := money.ParseAmount(link.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	_, err = h.requests.CreateDeposit(r.Context(), services.DepositInput{
		TelegramID: link.UserID,
		Amount:     amount,
		BankCode:   link.BankCode,
		Token:      link.Token,
	})
	if err != nil && !errors.Is(err, services.ErrDuplicateRequest) {
		h.redirectFailed(w, "deposit", link.UserID, err)
		return
	}
	http.Redirect(w, r, h.botURL(), http.StatusFound)
}

func (h *Handler) CreateWithdraw(w http.ResponseWriter, r *http.Request) {
	link := validator.WithdrawLink{
		UserID:    parseID(chi.URLParam(r, "userID")),
		Currency:  strings.ToUpper(pathParam(r, "currency")),
		Amount:    pathParam(r, "amount"),
		Address:   pathParam(r, "address"),
		NetworkID: parseID(chi.URLParam(r, "networkID")),
		Token:     pathParam(r, "token"),
	}
	if err := validator.Struct(link); err != nil {
		http.Error(w, "invalid withdrawal link", http.StatusBadRequest)
		return
	}
	amount, err := money.ParseAmount(link.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	_, err = h.requests.CreateWithdrawal(r.Context(), services.WithdrawalInput{
		TelegramID: link.UserID,
		Currency:   link.Currency,
		Amount:     amount,
		Address:    link.Address,
		NetworkID:  link.NetworkID,
		Token:      link.Token,
	})
	if err != nil && !errors.Is(err, services.ErrDuplicateRequest) {
		h.redirectFailed(w, "withdrawal", link.UserID, err)
		return
	}
	http.Redirect(w, r, h.botURL(), http.StatusFound)
}

func (h *Handler) redirectFailed(w http.ResponseWriter, kind string, telegramID int64, err error) {
	status, code := requestErrorStatus(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error(kind+" link failed", zap.Int64("telegram_id", telegramID), zap.String("code", code), zap.Error(err))
	} else {
		zap.L().Info(kind+" link refused", zap.Int64("telegram_id", telegramID), zap.String("code", code))
	}
	http.Error(w, strings.ReplaceAll(code, "_", " "), status)
}

func (h *Handler) botURL() string {
	return "https://t.me/" + h.cfg.BotUsername
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	value, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return strings.TrimSpace(value)
}

func parseID(raw string) int64 {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0
	}
	return value
}
