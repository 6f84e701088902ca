package adapters

import (
	"database/sql"
)

// stdRows wraps standard library sql.Rows to implement DBRows interface.
type stdRows struct {
	rows    *sql.Rows
	columns []string
}

// Next advances to the next row.
func (s *stdRows) Next() bool {
	return s.rows.Next()
}

// Values scans the current row into freshly allocated values.
func (s *stdRows) Values() ([]any, error) {
	columns, err := s.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	if scanErr := s.rows.Scan(dest...); scanErr != nil {
		return nil, scanErr
	}

	return values, nil
}

// Columns returns the column names of the result set.
func (s *stdRows) Columns() ([]string, error) {
	if s.columns != nil {
		return s.columns, nil
	}

	columns, err := s.rows.Columns()
	if err != nil {
		return nil, err
	}

	s.columns = columns

	return columns, nil
}

// Err returns the error, if any, that was encountered during iteration.
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

// LastInsertId returns the key generated by the driver, if it supports it.
func (s *stdResult) LastInsertId() (int64, error) {
	return s.result.LastInsertId()
}
