package schema

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
)

// Table holds the name and ordered columns of a database table.
type Table struct {
	name    string
	columns []Column
}

// NewTable builds a Table. Column order is kept for DDL and for Select.
func NewTable(name string, columns ...Column) (*Table, error) {
	if name == "" {
		return nil, asyncsql.ErrEmptyTableName
	}

	if len(columns) == 0 {
		return nil, asyncsql.ErrNoColumns
	}

	for _, column := range columns {
		if column.name == "" {
			return nil, asyncsql.ErrEmptyColumnName
		}
	}

	return &Table{name: name, columns: columns}, nil
}

func (t *Table) Name() string {
	return t.name
}

// Columns returns a copy of the table's columns.
func (t *Table) Columns() []Column {
	columns := make([]Column, len(t.columns))
	copy(columns, t.columns)

	return columns
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.columns))
	for _, column := range t.columns {
		names = append(names, column.name)
	}

	return names
}

// PrimaryKeyColumns returns the names of the primary key columns in table order.
func (t *Table) PrimaryKeyColumns() []string {
	names := make([]string, 0, 1)
	for _, column := range t.columns {
		if column.primaryKey {
			names = append(names, column.name)
		}
	}

	return names
}

// Select selects all columns of the table, ordered by primary key when there is one.
func (t *Table) Select() SelectStatement {
	return SelectStatement{
		build: func(builder goqu.DialectWrapper) *goqu.SelectDataset {
			selectStmt := builder.From(t.name).Select(toInterfaces(t.ColumnNames())...)

			for _, pk := range t.PrimaryKeyColumns() {
				selectStmt = selectStmt.OrderAppend(goqu.C(pk).Asc())
			}

			return selectStmt
		},
	}
}

// Insert inserts the given records, or a single row of defaults when none are given.
func (t *Table) Insert(records ...map[string]any) InsertStatement {
	rows := make([]any, 0, len(records))
	for _, record := range records {
		rows = append(rows, goqu.Record(record))
	}

	return InsertStatement{table: t, rows: rows}
}

// Delete deletes all rows of the table unless narrowed with Where.
func (t *Table) Delete() DeleteStatement {
	return DeleteStatement{
		build: func(builder goqu.DialectWrapper) *goqu.DeleteDataset {
			return builder.Delete(t.name)
		},
	}
}

// Select builds a select without a FROM clause, e.g. Select(goqu.L("1")).
func Select(columns ...any) SelectStatement {
	return SelectStatement{
		build: func(builder goqu.DialectWrapper) *goqu.SelectDataset {
			return builder.Select(columns...)
		},
	}
}

// SelectStatement is a goqu select compiled per dialect.
type SelectStatement struct {
	build func(builder goqu.DialectWrapper) *goqu.SelectDataset
}

// Where adds filter expressions.
func (s SelectStatement) Where(expressions ...exp.Expression) SelectStatement {
	previous := s.build

	return SelectStatement{
		build: func(builder goqu.DialectWrapper) *goqu.SelectDataset {
			return previous(builder).Where(expressions...)
		},
	}
}

// Limit limits the number of selected rows.
func (s SelectStatement) Limit(limit uint) SelectStatement {
	previous := s.build

	return SelectStatement{
		build: func(builder goqu.DialectWrapper) *goqu.SelectDataset {
			return previous(builder).Limit(limit)
		},
	}
}

// Compile implements asyncsql.Compilable.
func (s SelectStatement) Compile(dialect string) (string, []any, error) {
	if err := asyncsql.ValidateDialect(dialect); err != nil {
		return "", nil, err
	}

	return s.build(goqu.Dialect(dialect)).ToSQL()
}

// ToSQL renders the statement for postgres.
func (s SelectStatement) ToSQL() (string, []any, error) {
	return s.Compile(asyncsql.DialectPostgres)
}

// ReturnsRows implements asyncsql.RowsReturner.
func (s SelectStatement) ReturnsRows() bool {
	return true
}

// DeleteStatement is a goqu delete compiled per dialect.
type DeleteStatement struct {
	build func(builder goqu.DialectWrapper) *goqu.DeleteDataset
}

// Where adds filter expressions.
func (d DeleteStatement) Where(expressions ...exp.Expression) DeleteStatement {
	previous := d.build

	return DeleteStatement{
		build: func(builder goqu.DialectWrapper) *goqu.DeleteDataset {
			return previous(builder).Where(expressions...)
		},
	}
}

// Compile implements asyncsql.Compilable.
func (d DeleteStatement) Compile(dialect string) (string, []any, error) {
	if err := asyncsql.ValidateDialect(dialect); err != nil {
		return "", nil, err
	}

	return d.build(goqu.Dialect(dialect)).ToSQL()
}

// ToSQL renders the statement for postgres.
func (d DeleteStatement) ToSQL() (string, []any, error) {
	return d.Compile(asyncsql.DialectPostgres)
}

// ReturnsRows implements asyncsql.RowsReturner.
func (d DeleteStatement) ReturnsRows() bool {
	return false
}

// InsertStatement is a goqu insert compiled per dialect.
// On dialects supporting RETURNING the primary key columns are returned.
type InsertStatement struct {
	table *Table
	rows  []any
}

// Compile implements asyncsql.Compilable.
func (i InsertStatement) Compile(dialect string) (string, []any, error) {
	if err := asyncsql.ValidateDialect(dialect); err != nil {
		return "", nil, err
	}

	if len(i.rows) == 0 && dialect == asyncsql.DialectMySQL {
		// MySQL has no DEFAULT VALUES
		return "INSERT INTO " + quoteIdent(dialect, i.table.name) + " () VALUES ()", nil, nil
	}

	insertStmt := goqu.Dialect(dialect).Insert(i.table.name)
	if len(i.rows) > 0 {
		insertStmt = insertStmt.Rows(i.rows...)
	}

	if pks := i.table.PrimaryKeyColumns(); asyncsql.SupportsReturning(dialect) && len(pks) > 0 {
		insertStmt = insertStmt.Returning(toInterfaces(pks)...)
	}

	return insertStmt.ToSQL()
}

// ToSQL renders the statement for postgres.
func (i InsertStatement) ToSQL() (string, []any, error) {
	return i.Compile(asyncsql.DialectPostgres)
}

// ReturnsRows implements asyncsql.RowsReturner; the RETURNING rows only feed the inserted primary key.
func (i InsertStatement) ReturnsRows() bool {
	return false
}

// PrimaryKeyColumns implements asyncsql.PrimaryKeyInserter.
func (i InsertStatement) PrimaryKeyColumns() []string {
	return i.table.PrimaryKeyColumns()
}

func toInterfaces(names []string) []any {
	columns := make([]any, 0, len(names))
	for _, name := range names {
		columns = append(columns, name)
	}

	return columns
}
