package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/example/custody-scheduler/internal/persistence"
)

// SQLSTATE codes from the integrity constraint violation class.
const (
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// mapError converts gorm and Postgres errors into persistence sentinels.
// Unrecognised errors are wrapped with op and returned.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return persistence.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return persistence.ErrDuplicate
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return persistence.ErrForeignKeyViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return persistence.ErrDuplicate
		case codeForeignKeyViolation:
			return persistence.ErrForeignKeyViolation
		case codeCheckViolation, codeNotNullViolation:
			return persistence.ErrConstraintViolation
		}
	}

	return fmt.Errorf("postgres: %s: %w", op, err)
}
