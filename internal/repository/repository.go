// Package repository implements PostgreSQL persistence. Uniqueness races
// are surfaced as apperr.Conflict so the service layer can translate them
// to business errors.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
