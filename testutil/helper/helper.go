package helper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql/engine"
	"github.com/AntonStoeckl/asyncsql-go/asyncsql/schema"
)

// MyTableName is the table the integration tests create and drop.
const MyTableName = "mytable"

// GivenMyTable returns the metadata of mytable: an integer primary key "id" and a "name" column.
func GivenMyTable(t testing.TB) *schema.Table {
	t.Helper()

	table, err := schema.NewTable(
		MyTableName,
		schema.NewColumn("id", schema.Integer).PrimaryKey(),
		schema.NewColumn("name", schema.String(255)),
	)
	require.NoError(t, err, "error in arranging test data")

	return table
}

// GivenMyTableWasCreated creates mytable, dropping a leftover from an earlier run first.
func GivenMyTableWasCreated(t testing.TB, ctx context.Context, e *engine.Engine) *schema.Table {
	t.Helper()

	table := GivenMyTable(t)

	for _, stmt := range []schema.DDLStatement{schema.DropTableIfExists(table), schema.CreateTable(table)} {
		result, err := e.Execute(ctx, stmt)
		require.NoError(t, err, "error in arranging test data")
		require.NoError(t, result.Close(ctx), "error in arranging test data")
	}

	return table
}

// GivenNamesWereInserted inserts one row per name into table, in order.
func GivenNamesWereInserted(t testing.TB, ctx context.Context, e *engine.Engine, table *schema.Table, names ...string) {
	t.Helper()

	for _, name := range names {
		result, err := e.Execute(ctx, table.Insert(map[string]any{"name": name}))
		require.NoError(t, err, "error in arranging test data")
		require.NoError(t, result.Close(ctx), "error in arranging test data")
	}
}
