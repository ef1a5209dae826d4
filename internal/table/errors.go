package table

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrNotFound          = errors.New("record not found")
	ErrConflict          = errors.New("table already exists")
	ErrSystemTable       = errors.New("table is managed by the system")
)

// SQLSTATE codes the gateway distinguishes.
const (
	pgDuplicateTable = "42P07"
)

func classifyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateTable {
		return ErrConflict
	}
	return err
}
