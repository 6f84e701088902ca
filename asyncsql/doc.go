// Package asyncsql provides core abstractions for executing statements through
// synchronous Go database toolkits while the caller only waits on a worker.
//
// This package defines the types shared by the engine implementation and its
// callers: rows, statements and their optional capabilities, dialect names,
// observability interfaces, and common error definitions.
//
// The wrapped toolkit (pgx, database/sql, sqlx) keeps full ownership of SQL
// dialect handling, connection pooling, and transactions. asyncsql only forwards
// blocking calls to a worker goroutine per connection and exposes a result
// proxy around the toolkit's cursor.
//
// Key types:
//   - Row: A fixed-arity tuple of column values
//   - Statement: Anything that renders to SQL, e.g. goqu datasets or Text
//   - Compilable, RowsReturner, PrimaryKeyInserter: Optional statement capabilities
//
// Common usage pattern:
//
//	result, err := engine.Execute(ctx, asyncsql.Text("SELECT 1"))
//	if err != nil {
//		// handle error
//	}
//	defer func() { _ = result.Close(ctx) }()
//
//	row, err := result.FetchOne(ctx) // asyncsql.Row{int64(1)}
package asyncsql
