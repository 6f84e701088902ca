// Package oteladapters wires the asyncsql observability interfaces to OpenTelemetry.
//
// It lives in its own module so that the core library stays free of OpenTelemetry dependencies:
//
//	e, err := engine.NewEngineFromPGXPool(pool,
//		engine.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter("asyncsql"))),
//		engine.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer("asyncsql"))),
//		engine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("asyncsql")),
//	)
package oteladapters
