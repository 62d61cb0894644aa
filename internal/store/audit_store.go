package store

import (
	"context"

	"github.com/google/uuid"

	"mobeebot/internal/models"
)

type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, adminID *int64, action, entityType, entityID, details string) error {
	if details == "" {
		details = "{}"
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, admin_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), adminID, action, entityType, entityID, details)
	return err
}

func (s *AuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	var rows []models.AuditLog
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, admin_id, action, entity_type, entity_id, details::text AS details, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
