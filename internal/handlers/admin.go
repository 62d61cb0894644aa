package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mobeebot/internal/auth"
	"mobeebot/internal/middleware"
	"mobeebot/internal/models"
	"mobeebot/internal/services"
	"mobeebot/internal/store"
	"mobeebot/internal/validator"
	"mobeebot/internal/websocket"
)

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req validator.Login
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	admin, err := h.admins.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		respondError(w, http.StatusInternalServerError, "login_failed")
		return
	}
	if !auth.CheckPassword(admin.PasswordHash, req.Password) {
		zap.L().Info("admin login refused", zap.String("username", req.Username))
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, admin.ID, admin.Role, h.cfg.JWTTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "login_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"role":       admin.Role,
		"expires_in": int64(h.cfg.JWTTTL.Seconds()),
	})
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	rows, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable_to_load_users")
		return
	}
	if rows == nil {
		rows = []models.User{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable_to_load_user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) AdminAdjustBalance(w http.ResponseWriter, r *http.Request) {
	admin, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req validator.BalanceAdjustment
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	delta, err := decimal.NewFromString(strings.TrimSpace(req.Delta))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	balance, err := h.reconciler.AdjustBalance(r.Context(), services.AdjustmentInput{
		UserID:  id,
		Delta:   delta,
		Reason:  req.Reason,
		AdminID: admin.ID,
	})
	if err != nil {
		status, code := reconcileErrorStatus(err)
		if status >= http.StatusInternalServerError {
			zap.L().Error("balance adjustment failed", zap.Int64("user_id", id), zap.Error(err))
		}
		respondError(w, status, code)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": id,
		"balance": balance,
	})
}

func (h *Handler) AdminListDeposits(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r, services.NormalizeDepositStatus)
	if !ok {
		return
	}
	limit, offset := pagination(r)
	rows, err := h.deposits.List(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable_to_load_deposits")
		return
	}
	if rows == nil {
		rows = []models.DepositRequest{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) AdminUpdateDepositStatus(w http.ResponseWriter, r *http.Request) {
	admin, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := decodeStatusChange(w, r)
	if !ok {
		return
	}
	rate, err := optionalDecimal(req.ConversionRate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_conversion_rate")
		return
	}
	converted, err := optionalDecimal(req.ConvertedAmount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_converted_amount")
		return
	}
	adminID := admin.ID
	outcome, err := h.reconciler.UpdateDepositStatus(r.Context(), id, services.DepositUpdate{
		Status:          req.Status,
		ConversionRate:  rate,
		ConvertedAmount: converted,
		AdminID:         &adminID,
		Source:          services.SourceAdmin,
	})
	if err != nil {
		status, code := reconcileErrorStatus(err)
		if status >= http.StatusInternalServerError {
			zap.L().Error("deposit status update failed", zap.Int64("request_id", id), zap.Error(err))
		}
		respondError(w, status, code)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"deposit":  outcome.Deposit,
		"changed":  outcome.Changed,
		"credited": outcome.Credited,
		"balance":  outcome.Balance,
	})
}

func (h *Handler) AdminListWithdrawals(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r, services.NormalizeWithdrawalStatus)
	if !ok {
		return
	}
	limit, offset := pagination(r)
	rows, err := h.withdrawals.List(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable_to_load_withdrawals")
		return
	}
	if rows == nil {
		rows = []models.WithdrawalRequest{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) AdminUpdateWithdrawalStatus(w http.ResponseWriter, r *http.Request) {
	admin, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := decodeStatusChange(w, r)
	if !ok {
		return
	}
	adminID := admin.ID
	outcome, err := h.reconciler.UpdateWithdrawalStatus(r.Context(), id, services.WithdrawalUpdate{
		Status:         req.Status,
		TxnHash:        optional(req.TxnHash),
		ExplorerURL:    optional(req.ExplorerURL),
		RejectedReason: optional(req.Reason),
		AdminID:        &adminID,
		Source:         services.SourceAdmin,
	})
	if err != nil {
		status, code := reconcileErrorStatus(err)
		if status >= http.StatusInternalServerError {
			zap.L().Error("withdrawal status update failed", zap.Int64("request_id", id), zap.Error(err))
		}
		respondError(w, status, code)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"withdrawal": outcome.Withdrawal,
		"changed":    outcome.Changed,
		"debited":    outcome.Debited,
		"balance":    outcome.Balance,
	})
}

func (h *Handler) AdminExchangeBalances(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	balances, err := h.exchange.GetBalances(r.Context(), currency)
	if err != nil {
		status, code := requestErrorStatus(err)
		zap.L().Warn("exchange balances unavailable", zap.Error(err))
		respondError(w, status, code)
		return
	}
	respondJSON(w, http.StatusOK, balances)
}

func (h *Handler) AdminSyncAddresses(w http.ResponseWriter, r *http.Request) {
	admin, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	addresses, err := h.exchange.GetAllAddresses(r.Context())
	if err != nil {
		status, code := requestErrorStatus(err)
		zap.L().Warn("exchange addresses unavailable", zap.Error(err))
		respondError(w, status, code)
		return
	}
	synced := 0
	adminID := admin.ID
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		synced = 0
		for _, a := range addresses {
			currency := strings.ToUpper(strings.TrimSpace(a.Currency))
			address := strings.TrimSpace(a.Address)
			if currency == "" || address == "" {
				continue
			}
			network := strings.TrimSpace(a.Network)
			if network == "" {
				network = a.NetworkID.String()
			}
			if err := h.addresses.Upsert(r.Context(), tx, models.CryptoAddress{
				Currency: currency,
				Network:  network,
				Address:  address,
				Memo:     optional(a.MemoOrTag()),
			}); err != nil {
				return err
			}
			synced++
		}
		details, _ := json.Marshal(map[string]int{"synced": synced, "received": len(addresses)})
		return h.audit.Log(r.Context(), tx, &adminID, "addresses.sync", "crypto_address", "*", string(details))
	})
	if err != nil {
		zap.L().Error("address sync failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "unable_to_sync_addresses")
		return
	}
	zap.L().Info("deposit addresses synced", zap.Int("synced", synced), zap.Int64("admin_id", adminID))
	respondJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

func (h *Handler) AdminListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable_to_load_audit_logs")
		return
	}
	if rows == nil {
		rows = []models.AuditLog{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) AdminWS(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(w, r, h.hub, websocket.TopicRequests, h.checkOrigin)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id")
		return 0, false
	}
	return id, true
}

func statusFilter(w http.ResponseWriter, r *http.Request, normalize func(string) (string, error)) (string, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", true
	}
	status, err := normalize(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_status")
		return "", false
	}
	return status, true
}

func decodeStatusChange(w http.ResponseWriter, r *http.Request) (validator.StatusChange, bool) {
	var req validator.StatusChange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return req, false
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return req, false
	}
	return req, true
}

func optionalDecimal(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
