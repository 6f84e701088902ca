package schema

import (
	"strings"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
)

type ddlKind int

const (
	ddlCreate ddlKind = iota
	ddlDrop
)

// DDLStatement creates or drops a table. It never returns rows.
type DDLStatement struct {
	table    *Table
	kind     ddlKind
	ifClause bool
}

// CreateTable renders CREATE TABLE for the given table.
func CreateTable(table *Table) DDLStatement {
	return DDLStatement{table: table, kind: ddlCreate}
}

// CreateTableIfNotExists renders CREATE TABLE IF NOT EXISTS for the given table.
func CreateTableIfNotExists(table *Table) DDLStatement {
	return DDLStatement{table: table, kind: ddlCreate, ifClause: true}
}

// DropTable renders DROP TABLE for the given table.
func DropTable(table *Table) DDLStatement {
	return DDLStatement{table: table, kind: ddlDrop}
}

// DropTableIfExists renders DROP TABLE IF EXISTS for the given table.
func DropTableIfExists(table *Table) DDLStatement {
	return DDLStatement{table: table, kind: ddlDrop, ifClause: true}
}

// Compile implements asyncsql.Compilable.
func (d DDLStatement) Compile(dialect string) (string, []any, error) {
	if err := asyncsql.ValidateDialect(dialect); err != nil {
		return "", nil, err
	}

	if d.table == nil {
		return "", nil, asyncsql.ErrNilStatement
	}

	if d.kind == ddlDrop {
		return d.dropSQL(dialect), nil, nil
	}

	return d.createSQL(dialect), nil, nil
}

// ToSQL renders the statement for postgres.
func (d DDLStatement) ToSQL() (string, []any, error) {
	return d.Compile(asyncsql.DialectPostgres)
}

// ReturnsRows implements asyncsql.RowsReturner.
func (d DDLStatement) ReturnsRows() bool {
	return false
}

func (d DDLStatement) dropSQL(dialect string) string {
	var b strings.Builder

	b.WriteString("DROP TABLE ")
	if d.ifClause {
		b.WriteString("IF EXISTS ")
	}
	b.WriteString(quoteIdent(dialect, d.table.name))

	return b.String()
}

func (d DDLStatement) createSQL(dialect string) string {
	pks := d.table.PrimaryKeyColumns()
	definitions := make([]string, 0, len(d.table.columns)+1)

	for _, column := range d.table.columns {
		autoIncrement := column.primaryKey && column.colType.integer && len(pks) == 1
		definitions = append(definitions, columnDefinition(dialect, column, autoIncrement))
	}

	if len(pks) > 0 {
		quoted := make([]string, 0, len(pks))
		for _, pk := range pks {
			quoted = append(quoted, quoteIdent(dialect, pk))
		}

		definitions = append(definitions, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}

	var b strings.Builder

	b.WriteString("CREATE TABLE ")
	if d.ifClause {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(quoteIdent(dialect, d.table.name))
	b.WriteString(" (")
	b.WriteString(strings.Join(definitions, ", "))
	b.WriteString(")")

	return b.String()
}

func columnDefinition(dialect string, column Column, autoIncrement bool) string {
	typeName := column.colType.ddl(dialect)

	if autoIncrement && dialect == asyncsql.DialectPostgres {
		typeName = "SERIAL"
		if column.colType.postgres == BigInteger.postgres {
			typeName = "BIGSERIAL"
		}
	}

	definition := quoteIdent(dialect, column.name) + " " + typeName
	if column.notNull {
		definition += " NOT NULL"
	}

	if autoIncrement && dialect == asyncsql.DialectMySQL {
		definition += " AUTO_INCREMENT"
	}

	return definition
}

func quoteIdent(dialect, identifier string) string {
	if dialect == asyncsql.DialectMySQL {
		return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
	}

	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
