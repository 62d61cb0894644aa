package store

import (
	"context"

	"mobeebot/internal/models"
)

type AdminStore struct {
	db DB
}

func NewAdminStore(db DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) Create(ctx context.Context, username, passwordHash, role string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO admins (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`, username, passwordHash, role)
	if err != nil {
		return 0, translate(err)
	}
	return id, nil
}

func (s *AdminStore) GetByUsername(ctx context.Context, username string) (models.Admin, error) {
	var row models.Admin
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, password_hash, role, created_at
		FROM admins
		WHERE username = $1
	`, username)
	if err != nil {
		return models.Admin{}, translate(err)
	}
	return row, nil
}

func (s *AdminStore) GetByID(ctx context.Context, id int64) (models.Admin, error) {
	var row models.Admin
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, password_hash, role, created_at
		FROM admins
		WHERE id = $1
	`, id)
	if err != nil {
		return models.Admin{}, translate(err)
	}
	return row, nil
}
