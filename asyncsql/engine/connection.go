package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
	"github.com/AntonStoeckl/asyncsql-go/asyncsql/engine/internal/adapters"
)

// Connection is one toolkit connection plus the worker goroutine that runs all of its calls in
// submission order. It must be closed to hand the connection back to the toolkit's pool.
type Connection struct {
	id     uuid.UUID
	engine *Engine
	dbConn adapters.DBConn
	worker *worker

	// closeWithResult is set for connectionless execution before the first job is submitted.
	closeWithResult bool

	mu     sync.Mutex
	closed bool
	active *ResultProxy
}

func newConnection(e *Engine, dbConn adapters.DBConn, w *worker) *Connection {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return &Connection{
		id:     id,
		engine: e,
		dbConn: dbConn,
		worker: w,
	}
}

// ID identifies the connection in logs.
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// Closed reports whether the connection was closed, explicitly or after its connectionless
// result was released.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// Execute runs stmt on this connection.
//
// A result with rows keeps the connection's cursor until it is exhausted or closed; executing
// another statement before that fails with asyncsql.ErrConnectionBusy.
func (c *Connection) Execute(ctx context.Context, stmt asyncsql.Statement) (*ResultProxy, error) {
	if stmt == nil {
		return nil, asyncsql.ErrNilStatement
	}

	if err := c.checkUsable(); err != nil {
		return nil, err
	}

	e := c.engine

	sqlQuery, args, err := e.compile(stmt)
	if err != nil {
		e.logError(ctx, logMsgBuildStatementFailed, err)
		e.recordErrorMetrics(ctx, operationExecute, errorTypeBuildStatement)

		return nil, errors.Join(asyncsql.ErrBuildingStatementFailed, err)
	}

	kind := e.classify(stmt, sqlQuery)

	tracer, ctx := e.startExecuteTracing(ctx, kind)
	metrics := e.startExecuteMetrics(ctx)
	start := time.Now()

	result, err := runOnWorker(
		ctx,
		c.worker,
		func(ctx context.Context) (*ResultProxy, error) {
			return c.execute(ctx, sqlQuery, args, kind)
		},
		c.discardResult,
	)

	duration := time.Since(start)

	if err != nil {
		errorType := errorTypeFor(err, errorTypeExecute)

		e.logError(ctx, logMsgExecuteFailed, err, logAttrQuery, sqlQuery, logAttrConnectionID, c.id.String())
		metrics.recordError(errorType, duration)
		tracer.finishError(errorType, duration)

		if errors.Is(err, asyncsql.ErrWorkerStopped) {
			return nil, asyncsql.ErrConnectionClosed
		}

		if !errors.Is(err, asyncsql.ErrExecutingStatementFailed) {
			err = errors.Join(asyncsql.ErrExecutingStatementFailed, err)
		}

		return nil, err
	}

	e.logSQL(ctx, sqlQuery, operationExecute, duration)
	e.logOperation(
		ctx,
		operationExecute,
		logAttrDurationMS, toMilliseconds(duration),
		logAttrRowCount, result.RowCount(),
		logAttrConnectionID, c.id.String(),
	)
	metrics.recordSuccess(duration)
	tracer.finishSuccess(result.RowCount(), duration)

	return result, nil
}

// Scalar executes stmt on this connection and returns the first column of its first row.
func (c *Connection) Scalar(ctx context.Context, stmt asyncsql.Statement) (any, error) {
	result, err := c.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}

	return result.Scalar(ctx)
}

// RunInWorker runs fn on this connection's worker, ordered with its statements and fetches.
func (c *Connection) RunInWorker(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.Closed() {
		return asyncsql.ErrConnectionClosed
	}

	_, err := runOnWorker(ctx, c.worker, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, nil)

	if errors.Is(err, asyncsql.ErrWorkerStopped) {
		return asyncsql.ErrConnectionClosed
	}

	return err
}

// Close releases an open result's cursor, hands the connection back to the toolkit and stops the
// worker. Closing twice is a no-op.
//
// The release runs even if ctx is already canceled, so the toolkit connection is never leaked.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	active := c.active
	c.active = nil
	c.mu.Unlock()

	_, err := runOnWorker(context.WithoutCancel(ctx), c.worker, func(context.Context) (struct{}, error) {
		if active != nil {
			active.closeCursor(ctx)
		}

		return struct{}{}, c.dbConn.Release()
	}, nil)

	c.worker.stop()

	if err != nil && !errors.Is(err, asyncsql.ErrWorkerStopped) {
		c.engine.logWarn(ctx, logMsgReleaseConnFailed, err, logAttrConnectionID, c.id.String())
		return err
	}

	return nil
}

func (c *Connection) checkUsable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return asyncsql.ErrConnectionClosed
	}

	if c.active != nil && c.active.cursorIsOpen() {
		return asyncsql.ErrConnectionBusy
	}

	return nil
}

// execute runs on the worker.
func (c *Connection) execute(
	ctx context.Context,
	sqlQuery string,
	args []any,
	kind statementKind,
) (*ResultProxy, error) {

	switch kind {
	case kindRows:
		rows, err := c.dbConn.Query(ctx, sqlQuery, args...)
		if err != nil {
			return nil, errors.Join(asyncsql.ErrExecutingStatementFailed, err)
		}

		keys, err := rows.Columns()
		if err != nil {
			c.closeRows(ctx, rows)
			return nil, errors.Join(asyncsql.ErrExecutingStatementFailed, err)
		}

		// Statements forced to return rows that turn out to have no result set behave like DML.
		if len(keys) == 0 {
			if err := drain(rows); err != nil {
				return nil, errors.Join(asyncsql.ErrExecutingStatementFailed, err)
			}

			return newResultWithoutRows(c, sqlQuery, -1, nil, false), nil
		}

		result := newResultWithRows(c, sqlQuery, rows, keys)

		c.mu.Lock()
		c.active = result
		c.mu.Unlock()

		return result, nil

	case kindInsertReturning:
		rows, err := c.dbConn.Query(ctx, sqlQuery, args...)
		if err != nil {
			return nil, errors.Join(asyncsql.ErrExecutingStatementFailed, err)
		}

		primaryKey, rowCount, err := readReturnedKey(rows)
		if err != nil {
			return nil, errors.Join(asyncsql.ErrExecutingStatementFailed, err)
		}

		return newResultWithoutRows(c, sqlQuery, rowCount, primaryKey, true), nil

	default:
		res, err := c.dbConn.Exec(ctx, sqlQuery, args...)
		if err != nil {
			return nil, errors.Join(asyncsql.ErrExecutingStatementFailed, err)
		}

		rowCount, err := res.RowsAffected()
		if err != nil {
			c.engine.logWarn(ctx, logMsgRowsAffectedFailed, err)
			rowCount = -1
		}

		var primaryKey []any
		if kind == kindInsertExec {
			id, idErr := res.LastInsertId()
			if idErr != nil {
				c.engine.logWarn(ctx, logMsgLastInsertIDFailed, idErr)
			} else {
				primaryKey = []any{id}
			}
		}

		return newResultWithoutRows(c, sqlQuery, rowCount, primaryKey, kind == kindInsertExec), nil
	}
}

// discardResult closes the cursor of a result whose caller stopped waiting for Execute.
func (c *Connection) discardResult(result *ResultProxy) {
	if !result.cursorIsOpen() {
		return
	}

	_, err := runOnWorker(context.Background(), c.worker, func(ctx context.Context) (struct{}, error) {
		result.releaseCursor(ctx)
		return struct{}{}, nil
	}, nil)

	if err != nil {
		result.closeCursor(context.Background())
	}
}

// releaseAfterResult hands a connectionless connection back once its result no longer needs it.
// It runs on the worker, so it only signals the worker to stop.
func (c *Connection) releaseAfterResult(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.closed = true
	c.active = nil
	c.mu.Unlock()

	if err := c.dbConn.Release(); err != nil {
		c.engine.logWarn(ctx, logMsgReleaseConnFailed, err, logAttrConnectionID, c.id.String())
	}

	c.worker.signalStop()
}

func (c *Connection) closeRows(ctx context.Context, rows adapters.DBRows) {
	if err := rows.Close(); err != nil {
		c.engine.logWarn(ctx, logMsgCloseRowsFailed, err, logAttrConnectionID, c.id.String())
	}
}

// readReturnedKey consumes the rows of an INSERT .. RETURNING; the first row is the primary key.
func readReturnedKey(rows adapters.DBRows) ([]any, int64, error) {
	var primaryKey []any
	var rowCount int64

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			_ = rows.Close()
			return nil, 0, err
		}

		if primaryKey == nil {
			primaryKey = values
		}

		rowCount++
	}

	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, 0, err
	}

	return primaryKey, rowCount, rows.Close()
}

func drain(rows adapters.DBRows) error {
	for rows.Next() {
	}

	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}

	return rows.Close()
}
