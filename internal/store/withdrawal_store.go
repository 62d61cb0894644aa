package store

import (
	"context"

	"github.com/shopspring/decimal"

	"mobeebot/internal/models"
)

type WithdrawalStore struct {
	db DB
}

func NewWithdrawalStore(db DB) *WithdrawalStore {
	return &WithdrawalStore{db: db}
}

const withdrawalColumns = `id, user_id, withdrawal_id, transaction_id, currency, amount, network_fee, address, address_tag,
	network_id, network_name, status, rejected_reason, txn_hash, explorer_url, confirmed_at, debited_at, created_at, updated_at`

type WithdrawalTransition struct {
	Status         string
	TxnHash        *string
	ExplorerURL    *string
	RejectedReason *string
}

func (s *WithdrawalStore) Create(ctx context.Context, tx Getter, w *models.WithdrawalRequest) error {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO withdrawal_requests (user_id, withdrawal_id, transaction_id, currency, amount, network_fee,
		                                 address, address_tag, network_id, network_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, w.UserID, w.WithdrawalID, w.TransactionID, w.Currency, w.Amount, w.NetworkFee,
		w.Address, w.AddressTag, w.NetworkID, w.NetworkName, w.Status)
	if err != nil {
		return translate(err)
	}
	w.ID = id
	return nil
}

func (s *WithdrawalStore) GetByID(ctx context.Context, id int64) (models.WithdrawalRequest, error) {
	var row models.WithdrawalRequest
	err := s.db.GetContext(ctx, &row, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)
	if err != nil {
		return models.WithdrawalRequest{}, translate(err)
	}
	return row, nil
}

func (s *WithdrawalStore) GetByWithdrawalID(ctx context.Context, withdrawalID string) (models.WithdrawalRequest, error) {
	var row models.WithdrawalRequest
	err := s.db.GetContext(ctx, &row, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE withdrawal_id = $1`, withdrawalID)
	if err != nil {
		return models.WithdrawalRequest{}, translate(err)
	}
	return row, nil
}

func (s *WithdrawalStore) GetForUpdate(ctx context.Context, tx Getter, id int64) (models.WithdrawalRequest, error) {
	var row models.WithdrawalRequest
	err := tx.GetContext(ctx, &row, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err != nil {
		return models.WithdrawalRequest{}, translate(err)
	}
	return row, nil
}

func (s *WithdrawalStore) TransitionStatus(ctx context.Context, tx Execer, id int64, t WithdrawalTransition) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE withdrawal_requests
		SET status = $1,
		    txn_hash = COALESCE($2, txn_hash),
		    explorer_url = COALESCE($3, explorer_url),
		    rejected_reason = COALESCE($4, rejected_reason),
		    confirmed_at = CASE WHEN $1 = 'Confirmed' THEN NOW() ELSE confirmed_at END,
		    updated_at = NOW()
		WHERE id = $5 AND status = 'Pending'
	`, t.Status, t.TxnHash, t.ExplorerURL, t.RejectedReason, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *WithdrawalStore) MarkDebited(ctx context.Context, tx Execer, id int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE withdrawal_requests
		SET debited_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'Confirmed' AND debited_at IS NULL
	`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PendingDebits sums what the user's still-pending withdrawals will take from
// the balance once confirmed.
func (s *WithdrawalStore) PendingDebits(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount + network_fee), 0)
		FROM withdrawal_requests
		WHERE user_id = $1 AND status = 'Pending'
	`, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (s *WithdrawalStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.WithdrawalRequest, error) {
	var rows []models.WithdrawalRequest
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *WithdrawalStore) List(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	var rows []models.WithdrawalRequest
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
