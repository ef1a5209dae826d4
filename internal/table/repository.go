package table

import (
	"context"
	"database/sql"
	"time"

	"table_admin/internal/observability"

	"github.com/sirupsen/logrus"
)

type TableRepository struct {
	metrics *observability.Metrics
}

type TableRepositoryInterface interface {
	ListTables(ctx context.Context, db *sql.DB) ([]string, error)
	CreateTable(ctx context.Context, db *sql.DB, name string, columns Fields) error
	DropTable(ctx context.Context, db *sql.DB, name string) error
	ListRows(ctx context.Context, db *sql.DB, name string, q ListQuery) ([]Row, error)
	InsertRow(ctx context.Context, db *sql.DB, name string, row Fields) (any, error)
	UpdateRow(ctx context.Context, db *sql.DB, name string, id int64, updates Fields) error
	DeleteRow(ctx context.Context, db *sql.DB, name string, id int64) error
}

func NewTableRepository(metrics *observability.Metrics) TableRepositoryInterface {
	return &TableRepository{metrics: metrics}
}

func (r *TableRepository) ListTables(ctx context.Context, db *sql.DB) (tables []string, err error) {
	start := time.Now()
	defer func() { r.metrics.ObserveQuery("SELECT", start, err) }()

	rows, err := db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables = []string{}
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tables, nil
}

func (r *TableRepository) CreateTable(ctx context.Context, db *sql.DB, name string, columns Fields) error {
	stmt, err := buildCreateTable(name, columns)
	if err != nil {
		return err
	}
	return r.exec(ctx, db, "CREATE", stmt)
}

func (r *TableRepository) DropTable(ctx context.Context, db *sql.DB, name string) error {
	stmt, err := buildDropTable(name)
	if err != nil {
		return err
	}
	return r.exec(ctx, db, "DROP", stmt)
}

func (r *TableRepository) ListRows(ctx context.Context, db *sql.DB, name string, q ListQuery) (result []Row, err error) {
	stmt, err := buildSelect(name, q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { r.metrics.ObserveQuery("SELECT", start, err) }()

	rows, err := db.QueryContext(ctx, stmt.query, stmt.args...)
	if err != nil {
		logrus.WithError(err).WithField("table", name).Error("Failed to query rows")
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result = []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err = rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result = append(result, Row{Columns: columns, Values: values})
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *TableRepository) InsertRow(ctx context.Context, db *sql.DB, name string, row Fields) (id any, err error) {
	stmt, err := buildInsert(name, row)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { r.metrics.ObserveQuery("INSERT", start, err) }()

	if err = db.QueryRowContext(ctx, stmt.query, stmt.args...).Scan(&id); err != nil {
		logrus.WithError(err).WithField("table", name).Error("Failed to insert row")
		return nil, err
	}

	return normalizeValue(id), nil
}

func (r *TableRepository) UpdateRow(ctx context.Context, db *sql.DB, name string, id int64, updates Fields) error {
	stmt, err := buildUpdate(name, id, updates)
	if err != nil {
		return err
	}
	return r.execOne(ctx, db, "UPDATE", stmt)
}

func (r *TableRepository) DeleteRow(ctx context.Context, db *sql.DB, name string, id int64) error {
	stmt, err := buildDelete(name, id)
	if err != nil {
		return err
	}
	return r.execOne(ctx, db, "DELETE", stmt)
}

func (r *TableRepository) exec(ctx context.Context, db *sql.DB, queryType string, stmt statement) (err error) {
	start := time.Now()
	defer func() { r.metrics.ObserveQuery(queryType, start, err) }()

	if _, err = db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
		logrus.WithError(err).WithField("query_type", queryType).Error("Statement failed")
		return classifyError(err)
	}
	return nil
}

// execOne runs a statement that must touch at least one row.
func (r *TableRepository) execOne(ctx context.Context, db *sql.DB, queryType string, stmt statement) (err error) {
	start := time.Now()
	defer func() { r.metrics.ObserveQuery(queryType, start, err) }()

	res, err := db.ExecContext(ctx, stmt.query, stmt.args...)
	if err != nil {
		logrus.WithError(err).WithField("query_type", queryType).Error("Statement failed")
		return classifyError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizeValue turns driver byte slices into strings so they encode as text.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

