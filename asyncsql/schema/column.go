package schema

import (
	"fmt"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
)

// ColumnType maps a logical column type to its per-dialect DDL type name.
type ColumnType struct {
	name     string
	postgres string
	mysql    string
	integer  bool
}

var (
	Integer    = ColumnType{name: "integer", postgres: "INTEGER", mysql: "INTEGER", integer: true}
	BigInteger = ColumnType{name: "biginteger", postgres: "BIGINT", mysql: "BIGINT", integer: true}
	Text       = ColumnType{name: "text", postgres: "TEXT", mysql: "TEXT"}
	Boolean    = ColumnType{name: "boolean", postgres: "BOOLEAN", mysql: "BOOL"}
	Timestamp  = ColumnType{name: "timestamp", postgres: "TIMESTAMP WITH TIME ZONE", mysql: "DATETIME"}
)

// String returns a VARCHAR type with the given length.
func String(length int) ColumnType {
	varchar := fmt.Sprintf("VARCHAR(%d)", length)

	return ColumnType{name: "string", postgres: varchar, mysql: varchar}
}

// Name returns the logical type name.
func (ct ColumnType) Name() string {
	return ct.name
}

func (ct ColumnType) ddl(dialect string) string {
	if dialect == asyncsql.DialectMySQL {
		return ct.mysql
	}

	return ct.postgres
}

// Column describes one table column.
type Column struct {
	name       string
	colType    ColumnType
	primaryKey bool
	notNull    bool
}

// NewColumn builds a nullable, non-key column.
func NewColumn(name string, colType ColumnType) Column {
	return Column{name: name, colType: colType}
}

// PrimaryKey marks the column as (part of) the primary key, which implies NOT NULL.
func (c Column) PrimaryKey() Column {
	c.primaryKey = true
	c.notNull = true

	return c
}

// NotNull marks the column as NOT NULL.
func (c Column) NotNull() Column {
	c.notNull = true
	return c
}

func (c Column) Name() string {
	return c.name
}

func (c Column) Type() ColumnType {
	return c.colType
}

func (c Column) IsPrimaryKey() bool {
	return c.primaryKey
}
