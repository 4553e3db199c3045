package directory

import (
	"math"
	"strconv"
)

// Row is one result row keyed by column name.
//
// Cell values are the engine's native representation: nil, int64, float64, string, []byte or bool.
// The accessors are lenient about numeric and textual representations so that rows produced by
// different backends parse identically.
type Row map[string]any

// Rows is an alias type for a slice of Row.
type Rows = []Row

// Has reports whether the column is present and not NULL.
func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

// Text returns a textual column value.
func (r Row) Text(col string) (string, bool) {
	switch v := r[col].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// TextOrEmpty returns a textual column value or "" if it is missing.
func (r Row) TextOrEmpty(col string) string {
	s, _ := r.Text(col)
	return s
}

// NullText returns a pointer to a textual column value or nil if it is missing.
func (r Row) NullText(col string) *string {
	s, ok := r.Text(col)
	if !ok {
		return nil
	}

	return &s
}

// Float returns a numeric column value as float64.
func (r Row) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// NullFloat returns a pointer to a numeric column value or nil if it is missing.
func (r Row) NullFloat(col string) *float64 {
	f, ok := r.Float(col)
	if !ok {
		return nil
	}

	return &f
}

// Int returns an integral column value as int64.
// Float values are accepted only if they carry no fraction.
func (r Row) Int(col string) (int64, bool) {
	switch v := r[col].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		return i, err == nil
	case []byte:
		i, err := strconv.ParseInt(string(v), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// Bool returns a boolean column value; sqlite stores booleans as 0 and 1.
func (r Row) Bool(col string) (bool, bool) {
	switch v := r[col].(type) {
	case bool:
		return v, true
	case int64:
		return v != 0, true
	case int:
		return v != 0, true
	case float64:
		return v != 0, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	default:
		return false, false
	}
}
