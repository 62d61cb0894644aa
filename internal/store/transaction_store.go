package store

import (
	"context"

	"mobeebot/internal/models"
)

// TransactionStore is the per-user ledger shown as history. The reference
// column is unique, so a request can only ever own one ledger row.
type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, t models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, transaction_type, currency, amount, status, tx_hash, wallet_address, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.UserID, t.TransactionType, t.Currency, t.Amount, t.Status, t.TxHash, t.WalletAddress, t.Reference)
	return translate(err)
}

func (s *TransactionStore) UpdateByReference(ctx context.Context, tx Execer, reference string, t models.Transaction) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1,
		    amount = $2,
		    currency = $3,
		    tx_hash = COALESCE($4, tx_hash)
		WHERE reference = $5
	`, t.Status, t.Amount, t.Currency, t.TxHash, reference)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, transaction_type, currency, amount, status, tx_hash, wallet_address, reference, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
