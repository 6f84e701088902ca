package asyncsql

import (
	"errors"
)

var (
	ErrNilDatabaseConnection     = errors.New("database connection must not be nil")
	ErrNilStatement              = errors.New("statement must not be nil")
	ErrUnsupportedDialect        = errors.New("unsupported sql dialect")
	ErrInvalidArraySize          = errors.New("array size must be positive")
	ErrBuildingStatementFailed   = errors.New("building sql statement failed")
	ErrAcquiringConnectionFailed = errors.New("acquiring database connection failed")
	ErrExecutingStatementFailed  = errors.New("executing statement failed")
	ErrFetchingRowsFailed        = errors.New("fetching rows failed")
	ErrConnectionClosed          = errors.New("this connection is closed")
	ErrConnectionBusy            = errors.New("this connection still has an open result")
	ErrResultClosed              = errors.New("this result object is closed")
	ErrResultReturnsNoRows       = errors.New("this result object does not return rows")
	ErrNotAnInsertStatement      = errors.New("statement is not an insert with a primary key")
	ErrWorkerStopped             = errors.New("worker has already stopped")
	ErrEmptyTableName            = errors.New("empty table name supplied")
	ErrNoColumns                 = errors.New("table must have at least one column")
	ErrEmptyColumnName           = errors.New("empty column name supplied")
)
