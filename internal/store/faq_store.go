package store

import (
	"context"

	"mobeebot/internal/models"
)

type FAQStore struct {
	db DB
}

func NewFAQStore(db DB) *FAQStore {
	return &FAQStore{db: db}
}

func (s *FAQStore) Categories(ctx context.Context) ([]string, error) {
	var rows []string
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT category
		FROM faqs
		WHERE is_active
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *FAQStore) ByCategory(ctx context.Context, category string) ([]models.FAQ, error) {
	var rows []models.FAQ
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, category, question, answer, sort_order, is_active
		FROM faqs
		WHERE is_active AND category = $1
		ORDER BY sort_order, id
	`, category)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
