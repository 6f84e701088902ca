// Package engine executes statements against a wrapped database toolkit and hands back result
// proxies whose fetch methods run on a per-connection worker goroutine.
//
// Three toolkits are supported through internal adapters:
//
//	engine.NewEngineFromPGXPool(pgxPool, opts...)
//	engine.NewEngineFromSQLDB(sqlDB, opts...)
//	engine.NewEngineFromSQLX(sqlxDB, opts...)
//
// Every blocking call takes a context.Context. When the context ends before the worker is done,
// the call returns the context's error while the toolkit call finishes on the worker with the
// same (now canceled) context.
package engine
