package table

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Filter is a case-insensitive substring match on one column.
type Filter struct {
	Field string
	Value string
}

// ListQuery selects one page of rows.
type ListQuery struct {
	Page    int
	Limit   int
	Filters []Filter
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParseListQuery reads page, limit and column filters from a query string.
// Every key other than page and limit is a filter; keys are sorted and only
// the first value of a repeated key is used.
func ParseListQuery(values url.Values, maxPageSize int) (ListQuery, error) {
	var (
		q   ListQuery
		err error
	)
	if q.Page, err = positiveParam(values, "page", DefaultPage); err != nil {
		return ListQuery{}, err
	}
	if q.Limit, err = positiveParam(values, "limit", DefaultLimit); err != nil {
		return ListQuery{}, err
	}
	if maxPageSize > 0 && q.Limit > maxPageSize {
		return ListQuery{}, fmt.Errorf("%w: limit must not exceed %d", ErrInvalidInput, maxPageSize)
	}
	// Offset must stay representable.
	if q.Page-1 > math.MaxInt/q.Limit {
		return ListQuery{}, fmt.Errorf("%w: page is out of range", ErrInvalidInput)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		if key == "page" || key == "limit" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := ValidateIdentifier(key); err != nil {
			return ListQuery{}, err
		}
		q.Filters = append(q.Filters, Filter{Field: key, Value: values.Get(key)})
	}

	return q, nil
}

func positiveParam(values url.Values, key string, fallback int) (int, error) {
	raw, ok := values[key]
	if !ok || len(raw) == 0 || raw[0] == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidInput, key)
	}
	return n, nil
}
