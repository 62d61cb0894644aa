package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"mobeebot/internal/exchange"
	"mobeebot/internal/services"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code string) {
	respondJSON(w, status, map[string]string{"error": code})
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func pagination(r *http.Request) (limit, offset int) {
	query := r.URL.Query()
	limit = parseInt(query.Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := parseInt(query.Get("page"), 1)
	return limit, (page - 1) * limit
}

func requestErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, services.ErrRequestNotFound):
		return http.StatusNotFound, "request_not_found"
	case errors.Is(err, services.ErrTokenRequired):
		return http.StatusForbidden, "token_required"
	case errors.Is(err, services.ErrTokenInvalid):
		return http.StatusForbidden, "token_invalid"
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, services.ErrBelowMinimum):
		return http.StatusBadRequest, "below_minimum"
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, services.ErrInvalidBank):
		return http.StatusBadRequest, "invalid_bank"
	case errors.Is(err, services.ErrInvalidAddress):
		return http.StatusBadRequest, "invalid_address"
	case errors.Is(err, services.ErrUnknownNetwork):
		return http.StatusBadRequest, "unknown_network"
	case errors.Is(err, services.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status"
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, services.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate_request"
	case exchange.IsAPIError(err):
		return http.StatusBadGateway, "exchange_error"
	case exchange.IsTransportError(err):
		if isTimeout(err) {
			return http.StatusGatewayTimeout, "exchange_timeout"
		}
		return http.StatusBadGateway, "exchange_unreachable"
	case isTimeout(err):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
