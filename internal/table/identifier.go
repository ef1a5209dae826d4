// Package table is the dynamic table gateway: it turns a table name chosen at
// request time, plus caller-supplied columns and values, into a single
// parameterized PostgreSQL statement.
//
// Identifiers (table and column names) are validated against an allow-list and
// quoted; values are only ever bound through placeholders.
package table

import (
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
)

// maxIdentifierLength is PostgreSQL's NAMEDATALEN - 1.
const maxIdentifierLength = 63

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier reports whether name may be used as a table or column name.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalidIdentifier)
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidIdentifier, name, maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// QuoteIdentifier validates name and returns it quoted for statement text.
func QuoteIdentifier(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	return pgx.Identifier{name}.Sanitize(), nil
}
