package engine_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
	"github.com/AntonStoeckl/asyncsql-go/testutil/helper"
)

func Test_Connect_ShouldHoldOneConnection_UntilClosed(t *testing.T) {
	// setup
	e, _, db := newMockEngine(t)
	ctx := context.Background()

	// act
	conn, err := e.Connect(ctx)
	require.NoError(t, err)
	inUseWhileOpen := db.Stats().InUse

	closeErr := conn.Close(ctx)

	// assert
	assert.NoError(t, closeErr)
	assert.Equal(t, 1, inUseWhileOpen)
	assert.Equal(t, 0, db.Stats().InUse)
	assert.True(t, conn.Closed())
	assert.EqualValues(t, 7, conn.ID().Version())
}

func Test_Connect_ShouldWrapContextError_WhenContextIsCanceled(t *testing.T) {
	// setup
	e, _, _ := newMockEngine(t)

	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	conn, err := e.Connect(ctx)

	// assert
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, asyncsql.ErrAcquiringConnectionFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Connection_ShouldRunStatementsSequentially(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	mock.ExpectQuery(regexp.QuoteMeta(insertFirst)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	expectSelectMyTable(mock, "first")

	conn, err := e.Connect(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	// act
	inserted, insertErr := conn.Execute(ctx, mytable.Insert(map[string]any{"name": "first"}))
	selected, selectErr := conn.Execute(ctx, mytable.Select())
	require.NoError(t, errors.Join(insertErr, selectErr))

	rows, fetchErr := selected.FetchAll(ctx)

	// assert
	assert.NoError(t, fetchErr)
	assert.EqualValues(t, 1, inserted.RowCount())
	assert.Len(t, rows, 1)
	assert.False(t, conn.Closed(), "exhausting a result should not close an explicit connection")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Connection_ShouldBeBusy_WhileAResultHoldsTheCursor(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second")
	expectSelectMyTable(mock, "first", "second")

	conn, err := e.Connect(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	first, err := conn.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	// act
	_, busyErr := conn.Execute(ctx, mytable.Select())

	_, err = first.FetchAll(ctx)
	require.NoError(t, err)

	second, afterErr := conn.Execute(ctx, mytable.Select())

	// assert
	assert.ErrorIs(t, busyErr, asyncsql.ErrConnectionBusy)
	assert.NoError(t, afterErr, "an exhausted result should free the connection")
	assert.NoError(t, second.Close(ctx))
}

func Test_Connection_ShouldRejectStatements_AfterClose(t *testing.T) {
	// setup
	e, _, _ := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	conn, err := e.Connect(ctx)
	require.NoError(t, err)

	// act
	firstCloseErr := conn.Close(ctx)
	secondCloseErr := conn.Close(ctx)
	_, executeErr := conn.Execute(ctx, mytable.Select())
	runErr := conn.RunInWorker(ctx, func(context.Context) error { return nil })

	// assert
	assert.NoError(t, firstCloseErr)
	assert.NoError(t, secondCloseErr)
	assert.ErrorIs(t, executeErr, asyncsql.ErrConnectionClosed)
	assert.ErrorIs(t, runErr, asyncsql.ErrConnectionClosed)
}

func Test_ConnectionClose_ShouldReleaseAnOpenResult(t *testing.T) {
	// setup
	e, mock, db := newMockEngine(t)
	ctx := context.Background()
	mytable := helper.GivenMyTable(t)

	// arrange
	expectSelectMyTable(mock, "first", "second")

	conn, err := e.Connect(ctx)
	require.NoError(t, err)

	result, err := conn.Execute(ctx, mytable.Select())
	require.NoError(t, err)

	// act
	closeErr := conn.Close(ctx)
	rows, fetchErr := result.FetchAll(ctx)

	// assert
	assert.NoError(t, closeErr)
	assert.NoError(t, fetchErr)
	assert.Empty(t, rows, "the cursor went away with the connection")
	assert.Equal(t, 0, db.Stats().InUse)
}

func Test_ConnectionScalar_ShouldReturnTheValue(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()

	// arrange
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))

	conn, err := e.Connect(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	// act
	value, err := conn.Scalar(ctx, asyncsql.Text("SELECT 1"))

	// assert
	assert.NoError(t, err)
	assert.EqualValues(t, 1, value)
}

func Test_ConnectionRunInWorker_ShouldRunTheFunction(t *testing.T) {
	// setup
	e, _, _ := newMockEngine(t)
	ctx := context.Background()
	fnErr := errors.New("fn failed")

	conn, err := e.Connect(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	// act
	ran := false
	okErr := conn.RunInWorker(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	failedErr := conn.RunInWorker(ctx, func(context.Context) error { return fnErr })

	// assert
	assert.NoError(t, okErr)
	assert.True(t, ran)
	assert.ErrorIs(t, failedErr, fnErr)
}

func Test_EngineRunInWorker_ShouldReturnTheFunctionsError(t *testing.T) {
	// setup
	e, _, _ := newMockEngine(t)
	fnErr := errors.New("fn failed")

	// act
	err := e.RunInWorker(context.Background(), func(context.Context) error { return fnErr })

	// assert
	assert.ErrorIs(t, err, fnErr)
}

func Test_TableNames_ShouldListTablesOfTheCurrentSchema(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()

	// arrange
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "information_schema"."tables"`)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("accounts").AddRow("mytable"))

	// act
	names, err := e.TableNames(ctx)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, []string{"accounts", "mytable"}, names)
}

func Test_HasTable_ShouldReportWhetherTheTableExists(t *testing.T) {
	// setup
	e, mock, _ := newMockEngine(t)
	ctx := context.Background()

	// arrange
	mock.ExpectQuery(regexp.QuoteMeta(`("table_name" = 'mytable')`)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("mytable"))
	mock.ExpectQuery(regexp.QuoteMeta(`("table_name" = 'missing')`)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	// act
	exists, existsErr := e.HasTable(ctx, "mytable")
	missing, missingErr := e.HasTable(ctx, "missing")
	_, emptyErr := e.HasTable(ctx, "")

	// assert
	assert.NoError(t, errors.Join(existsErr, missingErr))
	assert.True(t, exists)
	assert.False(t, missing)
	assert.ErrorIs(t, emptyErr, asyncsql.ErrEmptyTableName)
}
