package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mobeebot/internal/services"
	"mobeebot/internal/store"
	"mobeebot/internal/validator"
)

const (
	callbackFiatDeposit      = "fiat_deposit"
	callbackCryptoWithdrawal = "crypto_withdrawal"
)

type exchangeCallback struct {
	Type            string           `json:"type" validate:"required,oneof=fiat_deposit crypto_withdrawal"`
	ID              string           `json:"id" validate:"required,max=128"`
	Status          string           `json:"status" validate:"required,max=32"`
	ConversionRate  *decimal.Decimal `json:"conversion_rate"`
	ConvertedAmount *decimal.Decimal `json:"converted_amount"`
	TxnHash         string           `json:"txn_hash" validate:"max=200"`
	ExplorerURL     string           `json:"explorer_url" validate:"omitempty,url"`
	Reason          string           `json:"reason" validate:"max=500"`
}

func (h *Handler) ExchangeCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable_body")
		return
	}
	err = h.verifier.Verify(r.Method, r.URL.Path,
		r.Header.Get("X-Request-Timestamp"),
		r.Header.Get("X-Request-Signature"),
		body, h.cfg.CallbackMaxSkew)
	if err != nil {
		zap.L().Warn("exchange callback rejected", zap.String("remote", r.RemoteAddr), zap.Error(err))
		respondError(w, http.StatusUnauthorized, "invalid_signature")
		return
	}
	var payload exchangeCallback
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := validator.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	switch payload.Type {
	case callbackFiatDeposit:
		h.depositCallback(w, r, payload)
	case callbackCryptoWithdrawal:
		h.withdrawalCallback(w, r, payload)
	}
}

func (h *Handler) depositCallback(w http.ResponseWriter, r *http.Request, payload exchangeCallback) {
	deposit, err := h.deposits.GetByDepositID(r.Context(), payload.ID)
	if err != nil {
		h.callbackLookupFailed(w, payload, err)
		return
	}
	outcome, err := h.reconciler.UpdateDepositStatus(r.Context(), deposit.ID, services.DepositUpdate{
		Status:          payload.Status,
		ConversionRate:  payload.ConversionRate,
		ConvertedAmount: payload.ConvertedAmount,
		Source:          services.SourceExchange,
	})
	if err != nil {
		h.callbackFailed(w, payload, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  outcome.Deposit.Status,
		"changed": outcome.Changed,
	})
}

func (h *Handler) withdrawalCallback(w http.ResponseWriter, r *http.Request, payload exchangeCallback) {
	withdrawal, err := h.withdrawals.GetByWithdrawalID(r.Context(), payload.ID)
	if err != nil {
		h.callbackLookupFailed(w, payload, err)
		return
	}
	outcome, err := h.reconciler.UpdateWithdrawalStatus(r.Context(), withdrawal.ID, services.WithdrawalUpdate{
		Status:         payload.Status,
		TxnHash:        optional(payload.TxnHash),
		ExplorerURL:    optional(payload.ExplorerURL),
		RejectedReason: optional(payload.Reason),
		Source:         services.SourceExchange,
	})
	if err != nil {
		h.callbackFailed(w, payload, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  outcome.Withdrawal.Status,
		"changed": outcome.Changed,
	})
}

func (h *Handler) callbackLookupFailed(w http.ResponseWriter, payload exchangeCallback, err error) {
	if errors.Is(err, store.ErrNotFound) {
		zap.L().Warn("exchange callback for unknown request", zap.String("type", payload.Type), zap.String("id", payload.ID))
		respondError(w, http.StatusNotFound, "request_not_found")
		return
	}
	zap.L().Error("exchange callback lookup failed", zap.String("id", payload.ID), zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error")
}

func (h *Handler) callbackFailed(w http.ResponseWriter, payload exchangeCallback, err error) {
	status, code := reconcileErrorStatus(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("exchange callback failed", zap.String("type", payload.Type), zap.String("id", payload.ID), zap.Error(err))
	}
	respondError(w, status, code)
}

func reconcileErrorStatus(err error) (int, string) {
	if errors.Is(err, services.ErrInsufficientFunds) {
		return http.StatusConflict, "insufficient_funds"
	}
	return requestErrorStatus(err)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
