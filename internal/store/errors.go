package store

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrBalanceConstraint is returned when a balance change would take the
	// balance below zero.
	ErrBalanceConstraint = errors.New("store: balance would become negative")
)

const uniqueViolation = "23505"

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case IsUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}
