package store

import (
	"context"

	"github.com/shopspring/decimal"

	"mobeebot/internal/models"
)

type DepositStore struct {
	db DB
}

func NewDepositStore(db DB) *DepositStore {
	return &DepositStore{db: db}
}

const depositColumns = `id, user_id, deposit_id, transaction_id, amount, currency, conversion_rate, converted_amount,
	status, account_name, account_number, bank_code, expired_at, credited_at, created_at, updated_at`

// Create inserts a pending deposit. A repeated deposit_id or transaction_id
// yields ErrDuplicate and leaves the existing row untouched.
func (s *DepositStore) Create(ctx context.Context, tx Getter, d *models.DepositRequest) error {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO deposit_requests (user_id, deposit_id, transaction_id, amount, currency, status,
		                              account_name, account_number, bank_code, expired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, d.UserID, d.DepositID, d.TransactionID, d.Amount, d.Currency, d.Status,
		d.AccountName, d.AccountNumber, d.BankCode, d.ExpiredAt)
	if err != nil {
		return translate(err)
	}
	d.ID = id
	return nil
}

func (s *DepositStore) GetByID(ctx context.Context, id int64) (models.DepositRequest, error) {
	var row models.DepositRequest
	err := s.db.GetContext(ctx, &row, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1`, id)
	if err != nil {
		return models.DepositRequest{}, translate(err)
	}
	return row, nil
}

func (s *DepositStore) GetByDepositID(ctx context.Context, depositID string) (models.DepositRequest, error) {
	var row models.DepositRequest
	err := s.db.GetContext(ctx, &row, `SELECT `+depositColumns+` FROM deposit_requests WHERE deposit_id = $1`, depositID)
	if err != nil {
		return models.DepositRequest{}, translate(err)
	}
	return row, nil
}

func (s *DepositStore) GetForUpdate(ctx context.Context, tx Getter, id int64) (models.DepositRequest, error) {
	var row models.DepositRequest
	err := tx.GetContext(ctx, &row, `
		SELECT `+depositColumns+`
		FROM deposit_requests
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err != nil {
		return models.DepositRequest{}, translate(err)
	}
	return row, nil
}

// TransitionStatus moves a pending deposit to status. It affects no rows when
// the deposit already left pending, which is how concurrent writers lose.
func (s *DepositStore) TransitionStatus(ctx context.Context, tx Execer, id int64, status string, rate, converted *decimal.Decimal) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE deposit_requests
		SET status = $1,
		    conversion_rate = COALESCE($2, conversion_rate),
		    converted_amount = COALESCE($3, converted_amount),
		    updated_at = NOW()
		WHERE id = $4 AND status = 'pending'
	`, status, rate, converted, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *DepositStore) MarkCredited(ctx context.Context, tx Execer, id int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE deposit_requests
		SET credited_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'completed' AND credited_at IS NULL
	`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *DepositStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.DepositRequest, error) {
	var rows []models.DepositRequest
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+depositColumns+`
		FROM deposit_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *DepositStore) List(ctx context.Context, status string, limit, offset int) ([]models.DepositRequest, error) {
	var rows []models.DepositRequest
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+depositColumns+`
		FROM deposit_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
