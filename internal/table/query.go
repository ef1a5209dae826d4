package table

import (
	"fmt"
	"strconv"
	"strings"
)

// idColumn is the primary key every dynamic table is assumed to carry.
const idColumn = "id"

const listTablesQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = current_schema()
	  AND table_type = 'BASE TABLE'
	ORDER BY table_name
`

// statement is SQL text plus the values bound to its placeholders.
type statement struct {
	query string
	args  []any
}

// placeholders hands out $1, $2, ... in order.
type placeholders struct {
	n int
}

func (p *placeholders) next() string {
	p.n++
	return "$" + strconv.Itoa(p.n)
}

func quoteAll(names []string) ([]string, error) {
	quoted := make([]string, len(names))
	for i, name := range names {
		q, err := QuoteIdentifier(name)
		if err != nil {
			return nil, err
		}
		quoted[i] = q
	}
	return quoted, nil
}

func buildCreateTable(name string, columns Fields) (statement, error) {
	if name == "" {
		return statement{}, fmt.Errorf("%w: table name is required", ErrInvalidInput)
	}
	if len(columns) == 0 {
		return statement{}, fmt.Errorf("%w: at least one column is required", ErrInvalidInput)
	}

	table, err := QuoteIdentifier(name)
	if err != nil {
		return statement{}, err
	}

	defs := make([]string, 0, len(columns))
	for _, column := range columns {
		colType, ok := column.Value.(string)
		if !ok || strings.TrimSpace(colType) == "" {
			return statement{}, fmt.Errorf("%w: column %q needs a type", ErrInvalidInput, column.Name)
		}
		quoted, err := QuoteIdentifier(column.Name)
		if err != nil {
			return statement{}, err
		}
		defs = append(defs, quoted+" "+colType)
	}

	return statement{
		query: fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", ")),
	}, nil
}

func buildDropTable(name string) (statement, error) {
	table, err := QuoteIdentifier(name)
	if err != nil {
		return statement{}, err
	}
	return statement{query: "DROP TABLE " + table}, nil
}

func buildSelect(name string, q ListQuery) (statement, error) {
	table, err := QuoteIdentifier(name)
	if err != nil {
		return statement{}, err
	}
	id, _ := QuoteIdentifier(idColumn)

	var (
		p     placeholders
		where []string
		args  []any
	)
	for _, filter := range q.Filters {
		field, err := QuoteIdentifier(filter.Field)
		if err != nil {
			return statement{}, err
		}
		where = append(where, field+"::text ILIKE "+p.next())
		args = append(args, "%"+escapeLike(filter.Value)+"%")
	}

	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(table)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY " + id)
	sb.WriteString(" LIMIT " + p.next())
	sb.WriteString(" OFFSET " + p.next())
	args = append(args, q.Limit, q.Offset())

	return statement{query: sb.String(), args: args}, nil
}

func buildInsert(name string, row Fields) (statement, error) {
	table, err := QuoteIdentifier(name)
	if err != nil {
		return statement{}, err
	}
	id, _ := QuoteIdentifier(idColumn)

	if len(row) == 0 {
		return statement{
			query: fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", table, id),
		}, nil
	}

	columns, err := quoteAll(row.Names())
	if err != nil {
		return statement{}, err
	}

	var p placeholders
	values := make([]string, len(row))
	args := make([]any, len(row))
	for i, field := range row {
		values[i] = p.next()
		args[i] = field.Value
	}

	return statement{
		query: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			table, strings.Join(columns, ", "), strings.Join(values, ", "), id),
		args: args,
	}, nil
}

func buildUpdate(name string, rowID int64, updates Fields) (statement, error) {
	if len(updates) == 0 {
		return statement{}, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}

	table, err := QuoteIdentifier(name)
	if err != nil {
		return statement{}, err
	}
	id, _ := QuoteIdentifier(idColumn)

	columns, err := quoteAll(updates.Names())
	if err != nil {
		return statement{}, err
	}

	var p placeholders
	sets := make([]string, len(updates))
	args := make([]any, 0, len(updates)+1)
	for i, field := range updates {
		sets[i] = columns[i] + " = " + p.next()
		args = append(args, field.Value)
	}
	args = append(args, rowID)

	return statement{
		query: fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
			table, strings.Join(sets, ", "), id, p.next()),
		args: args,
	}, nil
}

func buildDelete(name string, rowID int64) (statement, error) {
	table, err := QuoteIdentifier(name)
	if err != nil {
		return statement{}, err
	}
	id, _ := QuoteIdentifier(idColumn)

	return statement{
		query: fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, id),
		args:  []any{rowID},
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern. Backslash is
// PostgreSQL's default LIKE escape character.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
