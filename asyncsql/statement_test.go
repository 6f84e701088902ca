package asyncsql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
)

func Test_LooksLikeRowQuery(t *testing.T) {
	testCases := []struct {
		name     string
		sql      string
		expected bool
	}{
		{name: "plain select", sql: "SELECT 1", expected: true},
		{name: "lowercase select with leading whitespace", sql: "\n\t  select now() as time", expected: true},
		{name: "parenthesized select", sql: "(SELECT 1) UNION (SELECT 2)", expected: true},
		{name: "common table expression", sql: "WITH x AS (SELECT 1) SELECT * FROM x", expected: true},
		{name: "values", sql: "VALUES (1), (2)", expected: true},
		{name: "explain", sql: "EXPLAIN SELECT 1", expected: true},
		{name: "show", sql: "SHOW server_version", expected: true},
		{name: "insert with returning", sql: `INSERT INTO "mytable" DEFAULT VALUES RETURNING "id"`, expected: true},
		{name: "delete with returning on new line", sql: "DELETE FROM mytable\nRETURNING id", expected: true},
		{name: "plain insert", sql: `INSERT INTO "mytable" DEFAULT VALUES`, expected: false},
		{name: "delete", sql: "DELETE FROM mytable", expected: false},
		{name: "create table", sql: "CREATE TABLE mytable (id SERIAL)", expected: false},
		{name: "identifier starting with keyword", sql: "SELECTION_PROC()", expected: false},
		{name: "column named returning_id", sql: "UPDATE t SET returning_id = 1", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, asyncsql.LooksLikeRowQuery(tc.sql))
		})
	}
}

func Test_Text_ShouldRenderQueryAndArgumentsUnchanged(t *testing.T) {
	// act
	query, args, err := asyncsql.Text("SELECT * FROM mytable WHERE id = $1", 42).ToSQL()

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "SELECT * FROM mytable WHERE id = $1", query)
	assert.Equal(t, []any{42}, args)
}

func Test_Text_ShouldFail_WithEmptyQuery(t *testing.T) {
	// act
	_, _, err := asyncsql.Text("   ").ToSQL()

	// assert
	assert.ErrorIs(t, err, asyncsql.ErrBuildingStatementFailed)
}

func Test_Text_ReturnsRows_ShouldInferFromKeyword(t *testing.T) {
	assert.True(t, asyncsql.Text("SELECT 1").ReturnsRows())
	assert.False(t, asyncsql.Text("DELETE FROM mytable").ReturnsRows())
}

func Test_Text_ReturnsRows_ShouldRespectOverride(t *testing.T) {
	assert.False(t, asyncsql.Text("SELECT pg_sleep(0)").WithReturnsRows(false).ReturnsRows())
	assert.True(t, asyncsql.Text("CALL proc_with_result()").WithReturnsRows(true).ReturnsRows())
}

func Test_ValidateDialect(t *testing.T) {
	assert.NoError(t, asyncsql.ValidateDialect(asyncsql.DialectPostgres))
	assert.NoError(t, asyncsql.ValidateDialect(asyncsql.DialectMySQL))
	assert.ErrorIs(t, asyncsql.ValidateDialect("oracle"), asyncsql.ErrUnsupportedDialect)
}

func Test_SupportsReturning(t *testing.T) {
	assert.True(t, asyncsql.SupportsReturning(asyncsql.DialectPostgres))
	assert.False(t, asyncsql.SupportsReturning(asyncsql.DialectMySQL))
}
