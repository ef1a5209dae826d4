package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one column name with its value.
type Field struct {
	Name  string
	Value any
}

// Fields is a JSON object decoded in document order. Values are scalars:
// string, bool, nil, int64 for whole numbers and float64 otherwise.
type Fields []Field

func (f *Fields) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected a JSON object", ErrInvalidInput)
	}

	fields := Fields{}
	seen := make(map[string]struct{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidInput, key)
		}
		seen[key] = struct{}{}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := scalar(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, Field{Name: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*f = fields
	return nil
}

// Names returns the field names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// Lookup returns the value stored under name.
func (f Fields) Lookup(name string) (any, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// decodeScalar decodes a single JSON value with the same rules as Fields.
func decodeScalar(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: value is required", ErrInvalidInput)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return scalar(v)
}

func scalar(v any) (any, error) {
	switch value := v.(type) {
	case nil, string, bool:
		return value, nil
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return i, nil
		}
		f, err := value.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %s", ErrInvalidInput, value)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: values must be strings, numbers, booleans or null", ErrInvalidInput)
	}
}

// Row is one result row; it marshals to a JSON object in column order.
type Row struct {
	Columns []string
	Values  []any
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value of column.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}
