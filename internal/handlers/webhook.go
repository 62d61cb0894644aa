package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	maxWebhookBody    = 1 << 20
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
)

var errDispatchPanic = errors.New("update dispatch panicked")

// Webhook accepts one update from the chat platform. Once dispatch starts
// the update counts as accepted; only a timeout or a panic changes that.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	if h.cfg.WebhookSecret != "" {
		got := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.cfg.WebhookSecret)) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable_body")
		return
	}
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.WebhookTimeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("update dispatch panicked",
					zap.Int("update_id", update.UpdateID),
					zap.String("panic", fmt.Sprint(rec)),
					zap.Stack("stack"))
				done <- errDispatchPanic
			}
		}()
		done <- h.bot.HandleUpdate(ctx, update)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
		case errors.Is(err, errDispatchPanic):
			respondError(w, http.StatusInternalServerError, "internal_error")
		case errors.Is(err, context.DeadlineExceeded):
			zap.L().Warn("update timed out", zap.Int("update_id", update.UpdateID))
			respondError(w, http.StatusGatewayTimeout, "timeout")
		default:
			zap.L().Error("update dispatch failed", zap.Int("update_id", update.UpdateID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal_error")
		}
	case <-ctx.Done():
		// The dispatch goroutine is abandoned, not stopped; it sees the
		// cancelled context on its next outbound call.
		zap.L().Warn("update timed out", zap.Int("update_id", update.UpdateID), zap.Duration("timeout", h.cfg.WebhookTimeout))
		respondError(w, http.StatusGatewayTimeout, "timeout")
	}
}
