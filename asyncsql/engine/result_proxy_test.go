package engine_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
	"github.com/AntonStoeckl/asyncsql-go/asyncsql/engine"
	"github.com/AntonStoeckl/asyncsql-go/asyncsql/schema"
	"github.com/AntonStoeckl/asyncsql-go/testutil/helper"
)

const (
	selectMyTable = `SELECT "id", "name" FROM "mytable" ORDER BY "id" ASC`
	deleteMyTable = `DELETE FROM "mytable"`
	createMyTable = `CREATE TABLE "mytable" ("id" SERIAL NOT NULL, "name" VARCHAR(255), PRIMARY KEY ("id"))`
	insertFirst   = `INSERT INTO "mytable" ("name") VALUES ('first') RETURNING "id"`
)

func newMockEngine(t *testing.T, options ...engine.Option) (*engine.Engine, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e, err := engine.NewEngineFromSQLDB(db, options...)
	require.NoError(t, err)

	return e, mock, db
}

func expectSelectMyTable(mock sqlmock.Sqlmock, names ...string) {
	rows := sqlmock.NewRows([]string{"id", "name"})
	for i, name := range names {
		rows.AddRow(int64(i+1), name)
	}

	mock.ExpectQuery(regexp.QuoteMeta(selectMyTable)).WillReturnRows(rows)
}

func Test_FetchOne_ShouldReturnRowsInOrder_ThenNil(t *testing.T) {
	// setup
	e, mock, db := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second")

	// act
	result, err := e.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	first, err1 := result.FetchOne(ctx)
	second, err2 := result.FetchOne(ctx)
	exhausted, err3 := result.FetchOne(ctx)
	again, err4 := result.FetchOne(ctx)

	// assert
	assert.NoError(t, errors.Join(err1, err2, err3, err4))
	assert.Equal(t, asyncsql.Row{int64(1), "first"}, first)
	assert.Equal(t, asyncsql.Row{int64(2), "second"}, second)
	assert.Nil(t, exhausted)
	assert.Nil(t, again, "a soft-closed result should keep returning nil")
	assert.False(t, result.Closed(), "exhaustion should not hard-close the result")
	assert.Equal(t, 0, db.Stats().InUse, "exhaustion should release the connection")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_FetchMany_ShouldReturnBatches_ThenEmpty(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second", "third")

	// act
	result, err := e.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	firstBatch, err1 := result.FetchMany(ctx, 2)
	secondBatch, err2 := result.FetchMany(ctx, 2)
	thirdBatch, err3 := result.FetchMany(ctx, 2)

	// assert
	assert.NoError(t, errors.Join(err1, err2, err3))
	require.Len(t, firstBatch, 2)
	assert.Equal(t, asyncsql.Row{int64(1), "first"}, firstBatch[0])
	assert.Equal(t, asyncsql.Row{int64(2), "second"}, firstBatch[1])
	require.Len(t, secondBatch, 1)
	assert.Equal(t, asyncsql.Row{int64(3), "third"}, secondBatch[0])
	assert.NotNil(t, thirdBatch)
	assert.Empty(t, thirdBatch)
}

func Test_FetchMany_ShouldUseArraySize_WhenSizeIsNotPositive(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t, engine.WithArraySize(2))
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second", "third")

	// act
	result, err := e.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	batch, err := result.FetchMany(ctx, 0)

	// assert
	assert.NoError(t, err)
	assert.Len(t, batch, 2)
	assert.NoError(t, result.Close(ctx))
}

func Test_FetchAll_ShouldReturnAllRows_ThenEmpty(t *testing.T) {
	// setup
	e, mock, db := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second")

	// act
	result, err := e.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	rows, err1 := result.FetchAll(ctx)
	rest, err2 := result.FetchAll(ctx)

	// assert
	assert.NoError(t, errors.Join(err1, err2))
	assert.Equal(t, []asyncsql.Row{{int64(1), "first"}, {int64(2), "second"}}, rows)
	assert.NotNil(t, rest)
	assert.Empty(t, rest)
	assert.Equal(t, 0, db.Stats().InUse)
}

func Test_Scalar_ShouldReturnFirstColumnOfFirstRow_AndCloseTheResult(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second")

	// act
	result, err := e.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	value, err := result.Scalar(ctx)
	_, fetchErr := result.FetchOne(ctx)

	// assert
	assert.NoError(t, err)
	assert.EqualValues(t, 1, value)
	assert.True(t, result.Closed())
	assert.ErrorIs(t, fetchErr, asyncsql.ErrResultClosed)
}

func Test_Scalar_ShouldReturnNil_WhenThereAreNoRows(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock)

	// act
	value, err := e.Scalar(ctx, mytable.Select())

	// assert
	assert.NoError(t, err)
	assert.Nil(t, value)
}

func Test_First_ShouldReturnFirstRow_AndCloseTheResult(t *testing.T) {
	// setup
	e, mock, db := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second")

	// act
	result, err := e.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	row, err := result.First(ctx)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, asyncsql.Row{int64(1), "first"}, row)
	assert.True(t, result.Closed())
	assert.Equal(t, 0, db.Stats().InUse, "closing should release the connection")
}

func Test_Keys_ShouldReturnColumnNames(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()

	// arrange
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT NOW() AS "time"`)).
		WillReturnRows(sqlmock.NewRows([]string{"time"}).AddRow("2026-10-19 12:00:00"))

	// act
	result, err := e.Execute(ctx, asyncsql.Text(`SELECT NOW() AS "time"`))
	require.NoError(t, err)
	defer func() { _ = result.Close(ctx) }()

	// assert
	assert.Equal(t, []string{"time"}, result.Keys())
	assert.True(t, result.ReturnsRows())
}

func Test_Rows_ShouldYieldEachRemainingRowOnce(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second")
	result, err := e.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	// act
	var names []any
	for row, rowErr := range result.Rows(ctx) {
		require.NoError(t, rowErr)
		names = append(names, row[1])
	}

	// assert
	assert.Equal(t, []any{"first", "second"}, names)
}

func Test_Rows_ShouldStop_WhenTheLoopBreaks(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second", "third")
	result, err := e.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	// act
	count := 0
	for _, rowErr := range result.Rows(ctx) {
		require.NoError(t, rowErr)
		count++
		break
	}
	rest, err := result.FetchAll(ctx)

	// assert
	assert.Equal(t, 1, count)
	assert.NoError(t, err)
	assert.Len(t, rest, 2, "breaking out of the loop should leave the remaining rows")
}

func Test_Rows_ShouldYieldError_WhenFetchingFails(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)
	rowErr := errors.New("connection reset")

	// arrange
	mock.ExpectQuery(regexp.QuoteMeta(selectMyTable)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "first").
			AddRow(int64(2), "second").
			RowError(1, rowErr),
	)
	result, err := e.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	// act
	var yielded []error
	for _, err := range result.Rows(ctx) {
		yielded = append(yielded, err)
	}

	// assert
	require.Len(t, yielded, 2)
	assert.NoError(t, yielded[0])
	assert.ErrorIs(t, yielded[1], asyncsql.ErrFetchingRowsFailed)
	assert.ErrorIs(t, yielded[1], rowErr)
}

func Test_ExecutingDDL_ShouldReturnResultWithoutRows(t *testing.T) {
	// setup
	e, mock, db := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	mock.ExpectExec(regexp.QuoteMeta(createMyTable)).WillReturnResult(sqlmock.NewResult(0, 0))

	// act
	result, err := e.Execute(ctx, schema.CreateTable(mytable))
	require.NoError(t, err)

	_, fetchErr := result.FetchOne(ctx)
	_, pkErr := result.InsertedPrimaryKey()

	// assert
	assert.False(t, result.ReturnsRows())
	assert.Empty(t, result.Keys())
	assert.ErrorIs(t, fetchErr, asyncsql.ErrResultReturnsNoRows)
	assert.ErrorIs(t, pkErr, asyncsql.ErrNotAnInsertStatement)
	assert.Equal(t, 0, db.Stats().InUse, "results without rows should release the connection at once")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_RowCount_ShouldReportAffectedRows_ForDelete(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	mock.ExpectExec(regexp.QuoteMeta(deleteMyTable)).WillReturnResult(sqlmock.NewResult(0, 2))

	// act
	result, err := e.Execute(ctx, mytable.Delete())

	// assert
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.RowCount())
	assert.False(t, result.ReturnsRows())
}

func Test_RowCount_ShouldBeUnknown_WhenTheDriverCannotReportIt(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	mock.ExpectExec(regexp.QuoteMeta(deleteMyTable)).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows affected unsupported")))

	// act
	result, err := e.Execute(ctx, mytable.Delete())

	// assert
	require.NoError(t, err)
	assert.EqualValues(t, -1, result.RowCount())
}

func Test_InsertedPrimaryKey_ShouldComeFromReturning_OnPostgres(t *testing.T) {
	// setup
	e, mock, db := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	mock.ExpectQuery(regexp.QuoteMeta(insertFirst)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	// act
	result, err := e.Execute(ctx, mytable.Insert(map[string]any{"name": "first"}))
	require.NoError(t, err)

	primaryKey, pkErr := result.InsertedPrimaryKey()

	// assert
	assert.NoError(t, pkErr)
	assert.Equal(t, []any{int64(1)}, primaryKey)
	assert.EqualValues(t, 1, result.RowCount())
	assert.False(t, result.ReturnsRows())
	assert.Equal(t, 0, db.Stats().InUse)
}

func Test_InsertedPrimaryKey_ShouldComeFromLastInsertID_OnMySQL(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t, engine.WithDialect(asyncsql.DialectMySQL))
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `mytable`")).WillReturnResult(sqlmock.NewResult(7, 1))

	// act
	result, err := e.Execute(ctx, mytable.Insert(map[string]any{"name": "first"}))
	require.NoError(t, err)

	primaryKey, pkErr := result.InsertedPrimaryKey()

	// assert
	assert.NoError(t, pkErr)
	assert.Equal(t, []any{int64(7)}, primaryKey)
	assert.EqualValues(t, 1, result.RowCount())
}

func Test_Execute_ShouldWrapDriverErrors(t *testing.T) {
	// setup
	e, mock, db := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)
	driverErr := errors.New(`relation "mytable" does not exist`)

	// arrange
	mock.ExpectQuery(regexp.QuoteMeta(selectMyTable)).WillReturnError(driverErr)

	// act
	result, err := e.Execute(ctx, mytable.Select())

	// assert
	assert.Nil(t, result)
	assert.ErrorIs(t, err, asyncsql.ErrExecutingStatementFailed)
	assert.ErrorIs(t, err, driverErr)
	assert.Equal(t, 0, db.Stats().InUse, "a failed statement should release the connection")
}

func Test_Execute_ShouldFail_WithNilStatement(t *testing.T) {
	// setup
	e, _, _ := newMockEngine(t)

	// act
	_, err := e.Execute(context.Background(), nil)

	// assert
	assert.ErrorIs(t, err, asyncsql.ErrNilStatement)
}

func Test_Execute_ShouldFail_WhenStatementCannotBeBuilt(t *testing.T) {
	// setup
	e, _, _ := newMockEngine(t)

	// act
	_, err := e.Execute(context.Background(), asyncsql.Text("   "))

	// assert
	assert.ErrorIs(t, err, asyncsql.ErrBuildingStatementFailed)
}

func Test_Execute_ShouldReturnContextError_WhenContextIsCanceled(t *testing.T) {
	// setup
	e, _, _ := newMockEngine(t)
	mytable := helper.GivenMyTable(t)

	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	_, err := e.Execute(ctx, mytable.Select())

	// assert
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Execute_ShouldPassTextArguments(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()

	// arrange
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name FROM mytable WHERE id = $1`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("second"))

	// act
	value, err := e.Scalar(ctx, asyncsql.Text(`SELECT name FROM mytable WHERE id = $1`, 2))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "second", value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Close_ShouldBeIdempotent_AndFailLaterFetches(t *testing.T) {
	// setup
	e, mock, db := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second")
	result, err := e.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	// act
	firstErr := result.Close(ctx)
	secondErr := result.Close(ctx)
	_, fetchOneErr := result.FetchOne(ctx)
	_, fetchAllErr := result.FetchAll(ctx)

	// assert
	assert.NoError(t, firstErr)
	assert.NoError(t, secondErr)
	assert.True(t, result.Closed())
	assert.ErrorIs(t, fetchOneErr, asyncsql.ErrResultClosed)
	assert.ErrorIs(t, fetchAllErr, asyncsql.ErrResultClosed)
	assert.Equal(t, 0, db.Stats().InUse)
}
