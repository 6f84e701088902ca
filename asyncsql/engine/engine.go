package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
	"github.com/AntonStoeckl/asyncsql-go/asyncsql/engine/internal/adapters"
)

const (
	defaultArraySize     = 1
	colTableName         = "table_name"
	colTableSchema       = "table_schema"
	schemaInformation    = "information_schema"
	tableTables          = "tables"
	exprCurrentSchemaPG  = "current_schema()"
	exprCurrentSchemaSQL = "DATABASE()"
)

// Engine executes statements through one of the supported database toolkits.
// It owns no pool; connections are borrowed from the wrapped toolkit for as long as a
// Connection or a connectionless result needs them.
type Engine struct {
	db               adapters.DBAdapter
	dialect          string
	arraySize        int
	pgxOnly          bool
	logger           asyncsql.Logger
	contextualLogger asyncsql.ContextualLogger
	metricsCollector asyncsql.MetricsCollector
	tracingCollector asyncsql.TracingCollector
}

// NewEngineFromPGXPool creates a new Engine using a pgx Pool with optional configuration.
func NewEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, asyncsql.ErrNilDatabaseConnection
	}

	e := &Engine{
		db:        adapters.NewPGXAdapter(db),
		dialect:   asyncsql.DialectPostgres,
		arraySize: defaultArraySize,
		pgxOnly:   true,
	}

	return e.applyOptions(options)
}

// NewEngineFromSQLDB creates a new Engine using a sql.DB with optional configuration.
// The dialect defaults to postgres, use WithDialect for MySQL.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, asyncsql.ErrNilDatabaseConnection
	}

	e := &Engine{
		db:        adapters.NewSQLAdapter(db),
		dialect:   asyncsql.DialectPostgres,
		arraySize: defaultArraySize,
	}

	return e.applyOptions(options)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB with optional configuration.
// The dialect defaults to postgres, use WithDialect for MySQL.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, asyncsql.ErrNilDatabaseConnection
	}

	e := &Engine{
		db:        adapters.NewSQLXAdapter(db),
		dialect:   asyncsql.DialectPostgres,
		arraySize: defaultArraySize,
	}

	return e.applyOptions(options)
}

func (e *Engine) applyOptions(options []Option) (*Engine, error) {
	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Dialect returns the SQL dialect statements are compiled for.
func (e *Engine) Dialect() string {
	return e.dialect
}

// ArraySize returns the default number of rows FetchMany returns.
func (e *Engine) ArraySize() int {
	return e.arraySize
}

// Connect acquires one connection from the wrapped toolkit and starts the worker that runs all of
// its database calls. The connection goes back to the toolkit on Close.
func (e *Engine) Connect(ctx context.Context) (*Connection, error) {
	w := newWorker()

	dbConn, err := runOnWorker(
		ctx,
		w,
		func(ctx context.Context) (adapters.DBConn, error) {
			return e.db.Acquire(ctx)
		},
		func(abandoned adapters.DBConn) {
			if releaseErr := abandoned.Release(); releaseErr != nil {
				e.logWarn(ctx, logMsgReleaseConnFailed, releaseErr)
			}
		},
	)

	if err != nil {
		w.stop()
		e.logError(ctx, logMsgAcquireFailed, err)
		e.recordErrorMetrics(ctx, operationConnect, errorTypeFor(err, errorTypeAcquire))

		return nil, errors.Join(asyncsql.ErrAcquiringConnectionFailed, err)
	}

	conn := newConnection(e, dbConn, w)
	e.recordConnectionAcquired(ctx)

	return conn, nil
}

// Execute runs stmt on a connection of its own. The connection is released when the result is
// closed or exhausted, or right away when the statement returns no rows.
func (e *Engine) Execute(ctx context.Context, stmt asyncsql.Statement) (*ResultProxy, error) {
	if stmt == nil {
		return nil, asyncsql.ErrNilStatement
	}

	conn, err := e.Connect(ctx)
	if err != nil {
		return nil, err
	}

	conn.closeWithResult = true

	result, err := conn.Execute(ctx, stmt)
	if err != nil {
		if closeErr := conn.Close(ctx); closeErr != nil {
			e.logWarn(ctx, logMsgReleaseConnFailed, closeErr)
		}

		return nil, err
	}

	if !result.cursorIsOpen() {
		if closeErr := conn.Close(ctx); closeErr != nil {
			e.logWarn(ctx, logMsgReleaseConnFailed, closeErr, logAttrConnectionID, conn.ID().String())
		}
	}

	return result, nil
}

// Scalar executes stmt and returns the first column of its first row, or nil without rows.
func (e *Engine) Scalar(ctx context.Context, stmt asyncsql.Statement) (any, error) {
	result, err := e.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}

	return result.Scalar(ctx)
}

// TableNames lists the tables of the current schema (postgres) or database (mysql), sorted by name.
func (e *Engine) TableNames(ctx context.Context) ([]string, error) {
	result, err := e.Execute(ctx, e.tablesQuery())
	if err != nil {
		return nil, err
	}

	rows, err := result.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, asString(row[0]))
	}

	return names, nil
}

// HasTable reports whether a table with the given name exists in the current schema or database.
func (e *Engine) HasTable(ctx context.Context, tableName string) (bool, error) {
	if tableName == "" {
		return false, asyncsql.ErrEmptyTableName
	}

	stmt := e.tablesQuery().Where(goqu.C(colTableName).Eq(tableName))

	result, err := e.Execute(ctx, stmt)
	if err != nil {
		return false, err
	}

	row, err := result.First(ctx)
	if err != nil {
		return false, err
	}

	return row != nil, nil
}

// RunInWorker runs fn on a dedicated worker goroutine and waits for it, or for ctx to end.
// It is meant for blocking work that should not run on the caller's goroutine.
func (e *Engine) RunInWorker(ctx context.Context, fn func(ctx context.Context) error) error {
	w := newWorker()
	defer w.signalStop()

	start := time.Now()

	_, err := runOnWorker(ctx, w, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, nil)

	e.logOperation(ctx, operationRunInWorker, logAttrDurationMS, toMilliseconds(time.Since(start)))

	return err
}

func (e *Engine) tablesQuery() *goqu.SelectDataset {
	currentSchema := goqu.L(exprCurrentSchemaPG)
	if e.dialect == asyncsql.DialectMySQL {
		currentSchema = goqu.L(exprCurrentSchemaSQL)
	}

	return goqu.Dialect(e.dialect).
		From(goqu.S(schemaInformation).Table(tableTables)).
		Select(goqu.C(colTableName)).
		Where(goqu.C(colTableSchema).Eq(currentSchema)).
		Order(goqu.C(colTableName).Asc())
}

// compile renders stmt for the engine's dialect.
func (e *Engine) compile(stmt asyncsql.Statement) (string, []any, error) {
	if compilable, ok := stmt.(asyncsql.Compilable); ok {
		return compilable.Compile(e.dialect)
	}

	return stmt.ToSQL()
}

type statementKind int

const (
	kindExec statementKind = iota
	kindRows
	kindInsertReturning
	kindInsertExec
)

// classify decides how a compiled statement is run and what its result exposes.
func (e *Engine) classify(stmt asyncsql.Statement, sqlQuery string) statementKind {
	if inserter, ok := stmt.(asyncsql.PrimaryKeyInserter); ok && len(inserter.PrimaryKeyColumns()) > 0 {
		if asyncsql.SupportsReturning(e.dialect) && asyncsql.LooksLikeRowQuery(sqlQuery) {
			return kindInsertReturning
		}

		return kindInsertExec
	}

	if returner, ok := stmt.(asyncsql.RowsReturner); ok {
		if returner.ReturnsRows() {
			return kindRows
		}

		return kindExec
	}

	if asyncsql.LooksLikeRowQuery(sqlQuery) {
		return kindRows
	}

	return kindExec
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}
