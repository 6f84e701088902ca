// Package adapters provide database adapter implementations for the engine.
//
// This package implements the adapter pattern to support multiple Go database toolkits:
// pgxpool.Pool, sql.DB, and sqlx.DB. All adapters hand out dedicated connections
// through a common DBAdapter interface, so the engine can pin every statement and
// every fetch of a result to one connection and one worker goroutine.
//
// The adapters handle the specifics of each toolkit (value decoding, column names,
// affected rows, generated keys) while presenting a unified interface.
package adapters
