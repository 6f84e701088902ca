package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter implements DBAdapter for sqlx.DB.
type SQLXAdapter struct {
	db *sqlx.DB
}

// NewSQLXAdapter creates a new SQLX adapter.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// Acquire reserves a single connection from the sqlx.DB pool.
func (s *SQLXAdapter) Acquire(ctx context.Context) (DBConn, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}

	return &sqlxConn{conn: conn}, nil
}

type sqlxConn struct {
	conn *sqlx.Conn
}

// Query executes a query using the sqlx.Conn and returns wrapped rows.
func (c *sqlxConn) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := c.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &sqlxRows{rows: rows}, nil
}

// Exec executes a statement using the sqlx.Conn and returns wrapped result.
func (c *sqlxConn) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	result, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

// Release returns the connection to the sqlx.DB pool.
func (c *sqlxConn) Release() error {
	return c.conn.Close()
}

// sqlxRows wraps sqlx.Rows to implement the DBRows interface.
type sqlxRows struct {
	rows *sqlx.Rows
}

func (s *sqlxRows) Next() bool {
	return s.rows.Next()
}

// Values scans the current row with sqlx's SliceScan.
func (s *sqlxRows) Values() ([]any, error) {
	return s.rows.SliceScan()
}

func (s *sqlxRows) Columns() ([]string, error) {
	return s.rows.Columns()
}

func (s *sqlxRows) Err() error {
	return s.rows.Err()
}

func (s *sqlxRows) Close() error {
	return s.rows.Close()
}
