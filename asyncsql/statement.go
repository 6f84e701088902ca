package asyncsql

import (
	"strings"
)

// Statement is anything that renders to SQL plus arguments.
// goqu's SelectDataset, InsertDataset, UpdateDataset and DeleteDataset satisfy it.
type Statement interface {
	ToSQL() (string, []any, error)
}

// Compilable statements render differently per dialect.
// The engine prefers Compile with its own dialect over ToSQL.
type Compilable interface {
	Compile(dialect string) (string, []any, error)
}

// RowsReturner statements know whether they produce a result set.
// Statements without this capability are classified with LooksLikeRowQuery.
type RowsReturner interface {
	ReturnsRows() bool
}

// PrimaryKeyInserter marks insert statements whose generated primary key is captured by the engine.
type PrimaryKeyInserter interface {
	PrimaryKeyColumns() []string
}

var rowQueryKeywords = []string{"SELECT", "WITH", "VALUES", "SHOW", "EXPLAIN", "TABLE", "DESCRIBE"}

// LooksLikeRowQuery infers from the SQL text whether a statement produces rows:
// it starts with a row producing keyword or carries a RETURNING clause.
func LooksLikeRowQuery(sqlQuery string) bool {
	normalized := strings.ToUpper(strings.TrimLeft(sqlQuery, " \t\r\n("))

	for _, keyword := range rowQueryKeywords {
		if strings.HasPrefix(normalized, keyword) {
			rest := normalized[len(keyword):]
			if rest == "" || !isIdentChar(rest[0]) {
				return true
			}
		}
	}

	return strings.Contains(strings.Join(strings.Fields(normalized), " "), " RETURNING ")
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// TextStatement is a raw SQL statement with driver placeholders ($1 for postgres, ? for mysql).
type TextStatement struct {
	query       string
	args        []any
	returnsRows *bool
}

// Text builds a TextStatement.
func Text(query string, args ...any) TextStatement {
	return TextStatement{query: query, args: args}
}

// WithReturnsRows overrides the keyword based rows inference.
func (t TextStatement) WithReturnsRows(returnsRows bool) TextStatement {
	t.returnsRows = &returnsRows
	return t
}

// ToSQL returns the query and its arguments unchanged.
func (t TextStatement) ToSQL() (string, []any, error) {
	if strings.TrimSpace(t.query) == "" {
		return "", nil, ErrBuildingStatementFailed
	}

	return t.query, t.args, nil
}

// ReturnsRows implements RowsReturner.
func (t TextStatement) ReturnsRows() bool {
	if t.returnsRows != nil {
		return *t.returnsRows
	}

	return LooksLikeRowQuery(t.query)
}
