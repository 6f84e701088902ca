package asyncsql

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// ValidateDialect returns ErrUnsupportedDialect for anything but the known dialects.
func ValidateDialect(dialect string) error {
	switch dialect {
	case DialectPostgres, DialectMySQL:
		return nil

	default:
		return ErrUnsupportedDialect
	}
}

// SupportsReturning reports whether generated keys can be read back with a RETURNING clause.
// Dialects without it report generated keys through the toolkit's LastInsertId.
func SupportsReturning(dialect string) bool {
	return dialect == DialectPostgres
}
