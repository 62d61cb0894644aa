package store

import (
	"context"

	"mobeebot/internal/models"
)

type AddressStore struct {
	db DB
}

func NewAddressStore(db DB) *AddressStore {
	return &AddressStore{db: db}
}

func (s *AddressStore) ListActive(ctx context.Context, currency string) ([]models.CryptoAddress, error) {
	var rows []models.CryptoAddress
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, currency, network, address, memo, is_active, updated_at
		FROM crypto_addresses
		WHERE is_active AND ($1 = '' OR currency = $1)
		ORDER BY currency, network
	`, currency)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AddressStore) Currencies(ctx context.Context) ([]string, error) {
	var rows []string
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT currency
		FROM crypto_addresses
		WHERE is_active
		ORDER BY currency
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AddressStore) Upsert(ctx context.Context, tx Execer, a models.CryptoAddress) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO crypto_addresses (currency, network, address, memo, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (currency, network) DO UPDATE
		SET address = EXCLUDED.address,
		    memo = EXCLUDED.memo,
		    is_active = TRUE,
		    updated_at = NOW()
	`, a.Currency, a.Network, a.Address, a.Memo)
	return err
}
