package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
)

const (
	logMsgAcquireFailed        = "failed to acquire database connection"
	logMsgBuildStatementFailed = "failed to build sql statement"
	logMsgExecuteFailed        = "statement execution failed"
	logMsgFetchFailed          = "fetching rows failed"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgReleaseConnFailed    = "failed to release database connection"
	logMsgRowsAffectedFailed   = "failed to get rows affected count"
	logMsgLastInsertIDFailed   = "failed to get last insert id"
	logMsgSQLExecuted          = "executed sql for: "
	logMsgOperation            = "asyncsql operation: "
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrDurationMS          = "duration_ms"
	logAttrRowCount            = "row_count"
	logAttrConnectionID        = "connection_id"

	operationConnect     = "connect"
	operationExecute     = "execute"
	operationFetchOne    = "fetchone"
	operationFetchMany   = "fetchmany"
	operationFetchAll    = "fetchall"
	operationFirst       = "first"
	operationRunInWorker = "run_in_worker"

	metricExecuteDuration     = "asyncsql_execute_duration_seconds"
	metricFetchDuration       = "asyncsql_fetch_duration_seconds"
	metricRowsFetched         = "asyncsql_rows_fetched"
	metricDatabaseErrors      = "asyncsql_database_errors_total"
	metricConnectionsAcquired = "asyncsql_connections_acquired_total"

	spanNameExecute         = "asyncsql.execute"
	spanNameFetch           = "asyncsql.fetch"
	spanAttrOperation       = "operation"
	spanAttrDialect         = "dialect"
	spanAttrStatement       = "statement_kind"
	spanAttrErrorType       = "error_type"
	spanAttrRowCount        = "row_count"
	spanAttrDurationMS      = "duration_ms"
	metricLabelStatus       = "status"
	statusSuccess           = "success"
	statusError             = "error"
	errorTypeAcquire        = "acquire_connection"
	errorTypeBuildStatement = "build_statement"
	errorTypeExecute        = "execute"
	errorTypeFetch          = "fetch"
	errorTypeCanceled       = "canceled"
	errorTypeTimeout        = "timeout"
)

func (k statementKind) String() string {
	switch k {
	case kindRows:
		return "rows"
	case kindInsertReturning:
		return "insert_returning"
	case kindInsertExec:
		return "insert"
	default:
		return "exec"
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMilliseconds(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d.Nanoseconds())/1e6)
}

// errorTypeFor distinguishes callers giving up from database failures.
func errorTypeFor(err error, fallback string) string {
	switch {
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeTimeout
	default:
		return fallback
	}
}

// logSQL logs an executed statement with its duration at debug level.
func (e *Engine) logSQL(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if e.logger != nil {
		e.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (e *Engine) logOperation(ctx context.Context, action string, args ...any) {
	if e.logger != nil {
		e.logger.Info(logMsgOperation+action, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logFetch logs fetched row counts at debug level; fetches are too frequent for info.
func (e *Engine) logFetch(ctx context.Context, action string, rowCount int, duration time.Duration) {
	args := []any{logAttrRowCount, rowCount, logAttrDurationMS, toMilliseconds(duration)}

	if e.logger != nil {
		e.logger.Debug(logMsgOperation+action, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs cleanup failures that do not fail the operation.
func (e *Engine) logWarn(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if e.logger != nil {
		e.logger.Warn(message, allArgs...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, message, allArgs...)
	}
}

// logError logs failures that make an operation fail.
func (e *Engine) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if e.logger != nil {
		e.logger.Error(message, allArgs...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// === Metrics ===

func (e *Engine) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := e.metricsCollector.(asyncsql.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metric, labels)
}

func (e *Engine) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := e.metricsCollector.(asyncsql.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metric, duration, labels)
}

func (e *Engine) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := e.metricsCollector.(asyncsql.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	e.metricsCollector.RecordValue(metric, value, labels)
}

// recordErrorMetrics counts a failed operation.
func (e *Engine) recordErrorMetrics(ctx context.Context, operation, errorType string) {
	e.incrementCounter(ctx, metricDatabaseErrors, map[string]string{
		spanAttrOperation: operation,
		metricLabelStatus: statusError,
		spanAttrErrorType: errorType,
	})
}

func (e *Engine) recordConnectionAcquired(ctx context.Context) {
	e.incrementCounter(ctx, metricConnectionsAcquired, map[string]string{
		spanAttrOperation: operationConnect,
		metricLabelStatus: statusSuccess,
	})
}

// executeMetricsObserver records the metrics of one Execute call.
type executeMetricsObserver struct {
	e   *Engine
	ctx context.Context
}

func (e *Engine) startExecuteMetrics(ctx context.Context) *executeMetricsObserver {
	return &executeMetricsObserver{e: e, ctx: ctx}
}

func (o *executeMetricsObserver) recordSuccess(duration time.Duration) {
	o.e.recordDuration(o.ctx, metricExecuteDuration, duration, map[string]string{
		spanAttrOperation: operationExecute,
		metricLabelStatus: statusSuccess,
	})
}

func (o *executeMetricsObserver) recordError(errorType string, duration time.Duration) {
	o.e.recordErrorMetrics(o.ctx, operationExecute, errorType)
	o.e.recordDuration(o.ctx, metricExecuteDuration, duration, map[string]string{
		spanAttrOperation: operationExecute,
		metricLabelStatus: statusError,
	})
}

// fetchMetricsObserver records the metrics of one fetch call.
type fetchMetricsObserver struct {
	e         *Engine
	ctx       context.Context
	operation string
}

func (e *Engine) startFetchMetrics(ctx context.Context, operation string) *fetchMetricsObserver {
	return &fetchMetricsObserver{e: e, ctx: ctx, operation: operation}
}

func (o *fetchMetricsObserver) recordSuccess(rowCount int, duration time.Duration) {
	labels := map[string]string{
		spanAttrOperation: o.operation,
		metricLabelStatus: statusSuccess,
	}

	o.e.recordDuration(o.ctx, metricFetchDuration, duration, labels)
	o.e.recordValue(o.ctx, metricRowsFetched, float64(rowCount), labels)
}

func (o *fetchMetricsObserver) recordError(errorType string, duration time.Duration) {
	o.e.recordErrorMetrics(o.ctx, o.operation, errorType)
	o.e.recordDuration(o.ctx, metricFetchDuration, duration, map[string]string{
		spanAttrOperation: o.operation,
		metricLabelStatus: statusError,
	})
}

// === Tracing ===

// tracingObserver encapsulates the lifecycle of one span. A nil span makes it a no-op.
type tracingObserver struct {
	e    *Engine
	span asyncsql.SpanContext
}

func (e *Engine) startSpan(ctx context.Context, name string, attrs map[string]string) (*tracingObserver, context.Context) {
	if e.tracingCollector == nil {
		return &tracingObserver{e: e}, ctx
	}

	newCtx, span := e.tracingCollector.StartSpan(ctx, name, attrs)

	return &tracingObserver{e: e, span: span}, newCtx
}

func (e *Engine) startExecuteTracing(ctx context.Context, kind statementKind) (*tracingObserver, context.Context) {
	return e.startSpan(ctx, spanNameExecute, map[string]string{
		spanAttrOperation: operationExecute,
		spanAttrDialect:   e.dialect,
		spanAttrStatement: kind.String(),
	})
}

func (e *Engine) startFetchTracing(ctx context.Context, operation string) (*tracingObserver, context.Context) {
	return e.startSpan(ctx, spanNameFetch, map[string]string{
		spanAttrOperation: operation,
		spanAttrDialect:   e.dialect,
	})
}

func (o *tracingObserver) finishSuccess(rowCount int64, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusSuccess)
	o.span.AddAttribute(spanAttrRowCount, strconv.FormatInt(rowCount, 10))
	o.span.AddAttribute(spanAttrDurationMS, formatMilliseconds(duration))

	o.e.tracingCollector.FinishSpan(o.span, statusSuccess, map[string]string{
		spanAttrRowCount: strconv.FormatInt(rowCount, 10),
	})
}

func (o *tracingObserver) finishError(errorType string, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusError)
	o.span.AddAttribute(spanAttrErrorType, errorType)
	o.span.AddAttribute(spanAttrDurationMS, formatMilliseconds(duration))

	o.e.tracingCollector.FinishSpan(o.span, statusError, map[string]string{
		spanAttrErrorType: errorType,
	})
}
