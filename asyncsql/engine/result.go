package engine

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
	"github.com/AntonStoeckl/asyncsql-go/asyncsql/engine/internal/adapters"
)

// ResultProxy wraps the outcome of an executed statement.
//
// For row producing statements it holds the toolkit's cursor; every fetch runs on the
// connection's worker. Once all rows are fetched the result soft-closes: the cursor (and, for
// connectionless execution, the connection) are released and further fetches return nothing.
// After Close, fetches fail with asyncsql.ErrResultClosed.
type ResultProxy struct {
	conn        *Connection
	sqlQuery    string
	rows        adapters.DBRows
	keys        []string
	returnsRows bool
	rowCount    int64
	primaryKey  []any
	isInsert    bool

	mu         sync.Mutex
	cursorOpen bool
	closed     bool
}

func newResultWithRows(conn *Connection, sqlQuery string, rows adapters.DBRows, keys []string) *ResultProxy {
	return &ResultProxy{
		conn:        conn,
		sqlQuery:    sqlQuery,
		rows:        rows,
		keys:        keys,
		returnsRows: true,
		rowCount:    -1,
		cursorOpen:  true,
	}
}

func newResultWithoutRows(
	conn *Connection,
	sqlQuery string,
	rowCount int64,
	primaryKey []any,
	isInsert bool,
) *ResultProxy {

	return &ResultProxy{
		conn:       conn,
		sqlQuery:   sqlQuery,
		rowCount:   rowCount,
		primaryKey: primaryKey,
		isInsert:   isInsert,
	}
}

// ReturnsRows reports whether the statement produced a result set.
func (r *ResultProxy) ReturnsRows() bool {
	return r.returnsRows
}

// RowCount returns the number of rows affected by DML, or -1 when the toolkit does not know it.
// Row producing statements report -1.
func (r *ResultProxy) RowCount() int64 {
	return r.rowCount
}

// InsertedPrimaryKey returns the generated primary key of an insert: read back with RETURNING on
// postgres, from LastInsertId on mysql. It is empty when the toolkit could not report it.
func (r *ResultProxy) InsertedPrimaryKey() ([]any, error) {
	if !r.isInsert {
		return nil, asyncsql.ErrNotAnInsertStatement
	}

	primaryKey := make([]any, len(r.primaryKey))
	copy(primaryKey, r.primaryKey)

	return primaryKey, nil
}

// Keys returns the column names in result order, empty for results without rows.
func (r *ResultProxy) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)

	return keys
}

// Closed reports whether Close was called.
func (r *ResultProxy) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// FetchOne returns the next row, or nil when the result is exhausted.
func (r *ResultProxy) FetchOne(ctx context.Context) (asyncsql.Row, error) {
	rows, err := r.fetch(ctx, operationFetchOne, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	return rows[0], nil
}

// FetchMany returns up to size rows; fewer, possibly none, near the end.
// A size <= 0 uses the engine's array size.
func (r *ResultProxy) FetchMany(ctx context.Context, size int) ([]asyncsql.Row, error) {
	if size <= 0 {
		size = r.conn.engine.arraySize
	}

	return r.fetch(ctx, operationFetchMany, size)
}

// FetchAll returns all remaining rows. The slice is empty, not nil, when none are left.
func (r *ResultProxy) FetchAll(ctx context.Context) ([]asyncsql.Row, error) {
	return r.fetch(ctx, operationFetchAll, -1)
}

// First returns the first remaining row, or nil, and closes the result.
func (r *ResultProxy) First(ctx context.Context) (asyncsql.Row, error) {
	rows, err := r.fetch(ctx, operationFirst, 1)
	closeErr := r.Close(ctx)

	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, closeErr
	}

	return rows[0], closeErr
}

// Scalar returns the first column of the first remaining row, or nil, and closes the result.
func (r *ResultProxy) Scalar(ctx context.Context) (any, error) {
	row, err := r.First(ctx)
	if err != nil || row.Len() == 0 {
		return nil, err
	}

	return row[0], nil
}

// Rows iterates over the remaining rows. An error is yielded once and ends the iteration.
//
//	for row, err := range result.Rows(ctx) {
//		...
//	}
func (r *ResultProxy) Rows(ctx context.Context) iter.Seq2[asyncsql.Row, error] {
	return func(yield func(asyncsql.Row, error) bool) {
		for {
			row, err := r.FetchOne(ctx)
			if err != nil {
				yield(nil, err)
				return
			}

			if row == nil {
				return
			}

			if !yield(row, nil) {
				return
			}
		}
	}
}

// Close releases the cursor and, for connectionless execution, the connection.
// Closing twice is a no-op.
func (r *ResultProxy) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}

	r.closed = true
	open := r.cursorOpen
	r.mu.Unlock()

	if !open {
		return nil
	}

	_, err := runOnWorker(context.WithoutCancel(ctx), r.conn.worker, func(ctx context.Context) (struct{}, error) {
		r.releaseCursor(ctx)
		return struct{}{}, nil
	}, nil)

	if errors.Is(err, asyncsql.ErrWorkerStopped) {
		return nil
	}

	return err
}

func (r *ResultProxy) checkFetchable() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return asyncsql.ErrResultClosed
	}

	if !r.returnsRows {
		return asyncsql.ErrResultReturnsNoRows
	}

	return nil
}

func (r *ResultProxy) cursorIsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cursorOpen
}

// fetch reads up to limit rows on the worker; a negative limit reads all of them.
func (r *ResultProxy) fetch(ctx context.Context, operation string, limit int) ([]asyncsql.Row, error) {
	if err := r.checkFetchable(); err != nil {
		return nil, err
	}

	if !r.cursorIsOpen() {
		return []asyncsql.Row{}, nil
	}

	e := r.conn.engine
	tracer, ctx := e.startFetchTracing(ctx, operation)
	metrics := e.startFetchMetrics(ctx, operation)
	start := time.Now()

	fetched, err := runOnWorker(ctx, r.conn.worker, func(ctx context.Context) ([]asyncsql.Row, error) {
		return r.readRows(ctx, limit)
	}, nil)

	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, asyncsql.ErrWorkerStopped) {
			return []asyncsql.Row{}, nil
		}

		errorType := errorTypeFor(err, errorTypeFetch)

		e.logError(ctx, logMsgFetchFailed, err, logAttrQuery, r.sqlQuery, logAttrConnectionID, r.conn.id.String())
		metrics.recordError(errorType, duration)
		tracer.finishError(errorType, duration)

		return nil, err
	}

	e.logFetch(ctx, operation, len(fetched), duration)
	metrics.recordSuccess(len(fetched), duration)
	tracer.finishSuccess(int64(len(fetched)), duration)

	return fetched, nil
}

// readRows runs on the worker.
func (r *ResultProxy) readRows(ctx context.Context, limit int) ([]asyncsql.Row, error) {
	fetched := make([]asyncsql.Row, 0)

	if !r.cursorIsOpen() {
		return fetched, nil
	}

	for limit < 0 || len(fetched) < limit {
		if !r.rows.Next() {
			err := r.rows.Err()
			r.releaseCursor(ctx)

			if err != nil {
				return nil, errors.Join(asyncsql.ErrFetchingRowsFailed, err)
			}

			break
		}

		values, err := r.rows.Values()
		if err != nil {
			return nil, errors.Join(asyncsql.ErrFetchingRowsFailed, err)
		}

		fetched = append(fetched, values)
	}

	return fetched, nil
}

// releaseCursor soft-closes the result. It runs on the worker.
func (r *ResultProxy) releaseCursor(ctx context.Context) {
	if !r.closeCursor(ctx) {
		return
	}

	c := r.conn

	c.mu.Lock()
	if c.active == r {
		c.active = nil
	}
	c.mu.Unlock()

	if c.closeWithResult {
		c.releaseAfterResult(ctx)
	}
}

// closeCursor closes the toolkit rows once and reports whether this call closed them.
func (r *ResultProxy) closeCursor(ctx context.Context) bool {
	r.mu.Lock()
	if !r.cursorOpen {
		r.mu.Unlock()
		return false
	}

	r.cursorOpen = false
	r.mu.Unlock()

	r.conn.closeRows(ctx, r.rows)

	return true
}
