package adapters

import (
	"context"
	"errors"
)

// ErrLastInsertIDUnsupported is returned by toolkits that cannot report generated keys without RETURNING.
var ErrLastInsertIDUnsupported = errors.New("last insert id is not supported by this database adapter")

// DBAdapter hands out dedicated connections from the wrapped toolkit's pool.
type DBAdapter interface {
	Acquire(ctx context.Context) (DBConn, error)
}

// DBConn defines the operations executed on one dedicated connection.
type DBConn interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
	Release() error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Values() ([]any, error)
	Columns() ([]string, error)
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
	LastInsertId() (int64, error)
}
