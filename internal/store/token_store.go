package store

import (
	"context"

	"mobeebot/internal/models"
)

type TokenStore struct {
	db DB
}

func NewTokenStore(db DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) Create(ctx context.Context, token string, userID int64, action string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_tokens (token, user_id, action)
		VALUES ($1, $2, $3)
	`, token, userID, action)
	return translate(err)
}

func (s *TokenStore) Get(ctx context.Context, token string) (models.ActionToken, error) {
	var row models.ActionToken
	err := s.db.GetContext(ctx, &row, `
		SELECT token, user_id, action, is_used, created_at, used_at
		FROM action_tokens
		WHERE token = $1
	`, token)
	if err != nil {
		return models.ActionToken{}, translate(err)
	}
	return row, nil
}

// Consume flips is_used for a token bound to userID and action. Only one
// caller can ever observe true for a given token.
func (s *TokenStore) Consume(ctx context.Context, token string, userID int64, action string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE action_tokens
		SET is_used = TRUE, used_at = NOW()
		WHERE token = $1 AND user_id = $2 AND action = $3 AND is_used = FALSE
	`, token, userID, action)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
