package engine

import (
	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
)

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithDialect sets the SQL dialect statements are compiled for.
// Engines built from a pgx pool are always postgres; the option only validates there.
func WithDialect(dialect string) Option {
	return func(e *Engine) error {
		if err := asyncsql.ValidateDialect(dialect); err != nil {
			return err
		}

		if e.pgxOnly && dialect != asyncsql.DialectPostgres {
			return asyncsql.ErrUnsupportedDialect
		}

		e.dialect = dialect

		return nil
	}
}

// WithArraySize sets how many rows FetchMany returns when called with a size <= 0.
func WithArraySize(size int) Option {
	return func(e *Engine) error {
		if size <= 0 {
			return asyncsql.ErrInvalidArraySize
		}

		e.arraySize = size

		return nil
	}
}

// WithLogger sets the logger for the Engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing, fetched row counts
// Info level: executed statements with row counts and durations
// Warn level: cleanup failures like closing rows or releasing connections
// Error level: failures that make an operation fail.
func WithLogger(logger asyncsql.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, e.g. one that adds trace and span IDs.
// When both loggers are set, both receive every message.
func WithContextualLogger(logger asyncsql.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
// Collectors that also implement asyncsql.ContextualMetricsCollector receive the context.
func WithMetrics(collector asyncsql.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
// It receives one span per executed statement and one per fetch call.
func WithTracing(collector asyncsql.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}
