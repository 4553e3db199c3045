package adapters

import "database/sql"

// stdRows wraps standard library sql.Rows to implement DBRows interface.
type stdRows struct {
	rows *sql.Rows
	cols []string
}

// Next advances to the next row.
func (s *stdRows) Next() bool {
	return s.rows.Next()
}

// Columns returns the result column names.
func (s *stdRows) Columns() ([]string, error) {
	if s.cols == nil {
		cols, err := s.rows.Columns()
		if err != nil {
			return nil, err
		}
		s.cols = cols
	}

	return s.cols, nil
}

// ScanMap copies the current row into a column-keyed map.
func (s *stdRows) ScanMap() (map[string]any, error) {
	cols, err := s.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	if err = s.rows.Scan(dest...); err != nil {
		return nil, err
	}

	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = values[i]
	}

	return row, nil
}

// Err returns the error that ended the iteration, if any.
func (s *stdRows) Err() error {
	return s.rows.Err()
}

// Close closes the rows iterator.
func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement DBResult interface.
type stdResult struct {
	result sql.Result
}

// RowsAffected returns the number of rows affected by the command.
func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}
