package store

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"mobeebot/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

const userColumns = `id, telegram_id, username, first_name, last_name, balance, profit, referral_code, referred_by, created_at, updated_at`

type upsertedUser struct {
	models.User
	Inserted bool `db:"inserted"`
}

// Upsert creates the user on first contact and refreshes display fields on
// every later one. The referral code is only set when the row has none.
func (s *UserStore) Upsert(ctx context.Context, profile TelegramProfile, referralCode string) (models.User, bool, error) {
	var row upsertedUser
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO users (telegram_id, username, first_name, last_name, referral_code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    referral_code = COALESCE(users.referral_code, EXCLUDED.referral_code),
		    updated_at = NOW()
		RETURNING `+userColumns+`, (xmax = 0) AS inserted
	`, profile.TelegramID, nullableString(profile.Username), nullableString(profile.FirstName), nullableString(profile.LastName), nullableString(referralCode))
	if err != nil {
		return models.User{}, false, translate(err)
	}
	return row.User, row.Inserted, nil
}

func (s *UserStore) GetByTelegramID(ctx context.Context, telegramID int64) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return models.User{}, translate(err)
	}
	return row, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return models.User{}, translate(err)
	}
	return row, nil
}

func (s *UserStore) GetByReferralCode(ctx context.Context, code string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
	if err != nil {
		return models.User{}, translate(err)
	}
	return row, nil
}

func (s *UserStore) GetForUpdate(ctx context.Context, tx Getter, id int64) (models.User, error) {
	var row models.User
	err := tx.GetContext(ctx, &row, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err != nil {
		return models.User{}, translate(err)
	}
	return row, nil
}

// AdjustBalance applies delta and returns the resulting balance. A change that
// would leave the balance negative is refused with ErrBalanceConstraint.
func (s *UserStore) AdjustBalance(ctx context.Context, tx Getter, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `
		UPDATE users
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`, delta, id)
	if err != nil {
		if translate(err) == ErrNotFound {
			return decimal.Zero, ErrBalanceConstraint
		}
		return decimal.Zero, err
	}
	return balance, nil
}

// SetReferrer links a user to the one who invited them. It never overwrites
// an existing link and never links a user to themselves.
func (s *UserStore) SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET referred_by = $1, updated_at = NOW()
		WHERE id = $2 AND referred_by IS NULL AND id <> $1
	`, referrerID, userID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (s *UserStore) CountReferrals(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM users WHERE referred_by = $1`, userID)
	return count, err
}

func (s *UserStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var rows []models.User
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func nullableString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
