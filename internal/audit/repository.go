package audit

import (
	"context"
	"database/sql"
)

type AuditRepository struct{}

type AuditRepositoryInterface interface {
	Insert(ctx context.Context, tx *sql.Tx, event Event) error
}

func NewAuditRepository() AuditRepositoryInterface {
	return &AuditRepository{}
}

func (r *AuditRepository) Insert(ctx context.Context, tx *sql.Tx, event Event) error {
	query := `
		INSERT INTO audit_log (
			action, table_name, row_id, username, user_id, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	var rowID sql.NullInt64
	if event.RowID != nil {
		rowID = sql.NullInt64{Int64: *event.RowID, Valid: true}
	}

	_, err := tx.ExecContext(
		ctx,
		query,
		string(event.Action),
		event.Table,
		rowID,
		event.Username,
		event.UserID,
		event.OccurredAt,
	)
	return err
}
